package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/app"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	server := &http.Server{
		Addr:              service.Config.Server.Port,
		Handler:           handlers.NewRouter(service),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info.Printf("Starting subcourse server on %s", service.Config.Server.Port)
	logger.Debug.Println("Requiring headers:")
	for _, h := range service.Config.API.RequiredHeaders {
		logger.Debug.Printf("  %s: %s", h.Name, h.Value)
	}
	if service.Config.Moodle.WSURL == "" {
		logger.Debug.Println("Reading referenced course grades from the local database")
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Error.Fatalf("Subcourse server failed: %v", err)
	}
}
