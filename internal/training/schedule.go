package training

import (
	"encoding/json"
	"sort"

	log "github.com/sirupsen/logrus"
)

// DefaultWeeklyTargetMiles is used whenever the training schedule is absent
// or cannot be parsed.
const DefaultWeeklyTargetMiles = 25.0

// ScheduleEntry is one bracket of the training schedule: once the event is
// WeeksUntil weeks (or closer) away, the weekly target is TargetMiles.
type ScheduleEntry struct {
	WeeksUntil  int     `json:"weeks_until"`
	TargetMiles float64 `json:"target_miles"`
}

// WeeklyTarget resolves the weekly mileage target for the given number of
// weeks until the event against the configured schedule (a JSON list of
// schedule entries). The entry with the smallest threshold still covering
// weeksUntilEvent wins; an event further out than every threshold gets the
// largest-threshold (highest volume) target. Malformed or missing schedule
// degrades to DefaultWeeklyTargetMiles, never an error.
func WeeklyTarget(weeksUntilEvent int, scheduleJSON string) float64 {
	if scheduleJSON == "" {
		return DefaultWeeklyTargetMiles
	}

	var schedule []ScheduleEntry
	if err := json.Unmarshal([]byte(scheduleJSON), &schedule); err != nil {
		log.Warnf("unparsable training schedule, using default target: %s", err)
		return DefaultWeeklyTargetMiles
	}
	if len(schedule) == 0 {
		return DefaultWeeklyTargetMiles
	}

	sort.Slice(schedule, func(i, j int) bool {
		return schedule[i].WeeksUntil > schedule[j].WeeksUntil
	})

	// scan thresholds from nearest to furthest
	for i := len(schedule) - 1; i >= 0; i-- {
		if schedule[i].WeeksUntil >= weeksUntilEvent {
			return schedule[i].TargetMiles
		}
	}

	// event is further out than every bracket, stay on the earliest one
	return schedule[0].TargetMiles
}
