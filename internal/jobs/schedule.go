package jobs

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

// Random marks a schedule field picked once per installation.
const Random = "R"

type Definition struct {
	Name      string
	Minute    string
	Hour      string
	Day       string
	Month     string
	DayOfWeek string
}

// Definitions lists the scheduled jobs: weekdays only, grades at 3h and
// completions at 4h, each at a random minute.
func Definitions() []Definition {
	return []Definition{
		{Name: JobFetchGrades, Minute: Random, Hour: "3", Day: "*", Month: "*", DayOfWeek: "1-5"},
		{Name: JobCheckCompletedRefcourses, Minute: Random, Hour: "4", Day: "*", Month: "*", DayOfWeek: "1-5"},
	}
}

// ResolveSchedule turns a definition into a standard five-field cron spec.
func ResolveSchedule(def Definition, rng *rand.Rand) (string, error) {
	fields := []string{
		resolveField(def.Minute, 60, rng),
		resolveField(def.Hour, 24, rng),
		resolveField(def.Day, 0, rng),
		resolveField(def.Month, 0, rng),
		resolveField(def.DayOfWeek, 0, rng),
	}
	spec := strings.Join(fields, " ")
	if _, err := cron.ParseStandard(spec); err != nil {
		return "", fmt.Errorf("invalid schedule for %s: %w", def.Name, err)
	}
	return spec, nil
}

func resolveField(value string, span int, rng *rand.Rand) string {
	if value == "" {
		return "*"
	}
	if value == Random && span > 0 {
		return strconv.Itoa(rng.Intn(span))
	}
	return value
}
