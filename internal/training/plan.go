package training

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// PlanEntry is one day of the configured weekly workout plan.
type PlanEntry struct {
	Day     string `json:"day"`
	Workout string `json:"workout"`
}

// WeeklyPlan parses the configured weekly plan (a JSON list of day/workout
// pairs). Absence or parse failure yields an empty plan, the dashboard then
// skips per-day merging and still returns core stats.
func WeeklyPlan(planJSON string) []PlanEntry {
	if planJSON == "" {
		return nil
	}

	var plan []PlanEntry
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		log.Warnf("unparsable weekly plan, continuing without one: %s", err)
		return nil
	}

	return plan
}
