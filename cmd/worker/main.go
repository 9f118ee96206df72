package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/app"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/jobs"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	var once = flag.String("once", "", "Run a single task by name and exit")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	run := func(name string) {
		ctx, cancel := context.WithTimeout(context.Background(), service.Config.TaskTimeout())
		defer cancel()
		report, err := service.Jobs.Run(ctx, name)
		if err != nil {
			logger.Error.Printf("Task %s failed: %v", name, err)
			return
		}
		logger.Info.Printf("Task %s done: %+v", name, report)
	}

	if *once != "" {
		run(*once)
		return
	}

	seed := service.Config.Tasks.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	enabled := service.Config.Tasks.Enabled
	for _, def := range jobs.Definitions() {
		if len(enabled) > 0 && !slices.Contains(enabled, def.Name) {
			logger.Debug.Printf("Task %s disabled", def.Name)
			continue
		}
		spec, err := jobs.ResolveSchedule(def, rng)
		if err != nil {
			logger.Error.Fatalf("Bad schedule for %s: %v", def.Name, err)
		}
		name := def.Name
		if _, err := c.AddFunc(spec, func() { run(name) }); err != nil {
			logger.Error.Fatalf("Failed to schedule %s: %v", name, err)
		}
		logger.Info.Printf("Scheduled %s at %q", name, spec)
	}

	c.Start()
	logger.Info.Println("Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	<-c.Stop().Done()
	logger.Info.Println("Worker stopped")
}
