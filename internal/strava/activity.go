package strava

import "strings"

// Activity is one athlete activity as returned by the Strava API v3.
// Optional physiological and environmental fields are pointers, absence
// and zero mean different things for them (see the nutrition stats).
type Activity struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	SportType          string   `json:"sport_type"`
	StartDate          string   `json:"start_date"`
	StartDateLocal     string   `json:"start_date_local"`
	Distance           float64  `json:"distance"`    // meters
	MovingTime         int      `json:"moving_time"` // seconds
	ElapsedTime        int      `json:"elapsed_time"`
	TotalElevationGain float64  `json:"total_elevation_gain"` // meters
	ElevHigh           *float64 `json:"elev_high"`
	ElevLow            *float64 `json:"elev_low"`
	AverageSpeed       float64  `json:"average_speed"` // m/s
	MaxSpeed           float64  `json:"max_speed"`
	AverageCadence     *float64 `json:"average_cadence"`
	AverageHeartrate   *float64 `json:"average_heartrate"`
	MaxHeartrate       *float64 `json:"max_heartrate"`
	HasHeartrate       bool     `json:"has_heartrate"`
	Calories           *float64 `json:"calories"`
	SufferScore        *float64 `json:"suffer_score"`
	AverageTemp        *float64 `json:"average_temp"` // celsius
	WorkoutType        *int     `json:"workout_type"`
	Description        *string  `json:"description"`
	Trainer            bool     `json:"trainer"`
	Commute            bool     `json:"commute"`
	AchievementCount   int      `json:"achievement_count"`
	KudosCount         int      `json:"kudos_count"`
	PRCount            int      `json:"pr_count"`
}

const TypeRun = "Run"

// StartDay returns the calendar date part of the start timestamp, e.g.
// "2026-01-19" for "2026-01-19T06:00:00Z".
func (a Activity) StartDay() string {
	day, _, _ := strings.Cut(a.StartDate, "T")
	return day
}

func (a Activity) IsRun() bool {
	return a.Type == TypeRun
}
