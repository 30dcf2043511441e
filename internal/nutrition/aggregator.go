package nutrition

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/strava"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/metrics"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/training"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/upstream"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultLookbackDays = 30
	MinLookbackDays     = 1
	MaxLookbackDays     = 90

	feetPerMeter  = 3.28084
	milesPerMeter = 0.000621371
)

type ActivitySource interface {
	ListDetailedSince(ctx context.Context, since time.Time) ([]strava.Activity, error)
}

type Period struct {
	Days      int    `json:"days"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Summary aggregates every activity in the lookback window. Calorie,
// heart rate and suffer score fields are null when no activity in the
// window reports them.
type Summary struct {
	TotalActivities        int      `json:"total_activities"`
	TotalDistanceKm        float64  `json:"total_distance_km"`
	TotalDistanceMiles     float64  `json:"total_distance_miles"`
	TotalMovingTimeHours   float64  `json:"total_moving_time_hours"`
	TotalElevationGainM    float64  `json:"total_elevation_gain_m"`
	TotalElevationGainFt   float64  `json:"total_elevation_gain_ft"`
	TotalCalories          *float64 `json:"total_calories"`
	AvgHeartrate           *float64 `json:"avg_heartrate"`
	AvgCaloriesPerActivity *float64 `json:"avg_calories_per_activity"`
	AvgSufferScore         *float64 `json:"avg_suffer_score"`
}

// PeriodAverages carries the per-week or per-day rollup of the totals.
type PeriodAverages struct {
	DistanceKm      float64  `json:"distance_km"`
	DistanceMiles   float64  `json:"distance_miles"`
	MovingTimeHours float64  `json:"moving_time_hours"`
	ElevationGainM  float64  `json:"elevation_gain_m"`
	Calories        *float64 `json:"calories"`
}

type TypeStats struct {
	Count                int     `json:"count"`
	TotalDistanceKm      float64 `json:"total_distance_km"`
	TotalMovingTimeHours float64 `json:"total_moving_time_hours"`
	TotalElevationGainM  float64 `json:"total_elevation_gain_m"`
	TotalCalories        float64 `json:"total_calories"`
}

type FormattedActivity struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Type               string   `json:"type"`
	SportType          string   `json:"sport_type"`
	Date               string   `json:"date"`
	StartDateLocal     string   `json:"start_date_local"`
	DistanceKm         float64  `json:"distance_km"`
	DistanceMiles      float64  `json:"distance_miles"`
	MovingTimeMinutes  int      `json:"moving_time_minutes"`
	ElapsedTimeMinutes int      `json:"elapsed_time_minutes"`
	PacePerKm          *string  `json:"pace_per_km,omitempty"`
	PacePerMile        *string  `json:"pace_per_mile,omitempty"`
	AverageSpeedKmh    float64  `json:"average_speed_kmh"`
	MaxSpeedKmh        float64  `json:"max_speed_kmh"`
	ElevationGainM     float64  `json:"elevation_gain_m"`
	ElevationGainFt    float64  `json:"elevation_gain_ft"`
	AverageCadence     *float64 `json:"average_cadence"`
	AverageHeartrate   *float64 `json:"average_heartrate"`
	MaxHeartrate       *float64 `json:"max_heartrate"`
	Calories           *float64 `json:"calories"`
	SufferScore        *float64 `json:"suffer_score"`
	TemperatureF       *float64 `json:"temperature_f,omitempty"`
	Trainer            bool     `json:"trainer"`
	Commute            bool     `json:"commute"`
	AchievementCount   int      `json:"achievement_count"`
	KudosCount         int      `json:"kudos_count"`
	PRCount            int      `json:"pr_count"`
}

type NutritionData struct {
	Period         Period                `json:"period"`
	Summary        Summary               `json:"summary"`
	WeeklyAverages PeriodAverages        `json:"weekly_averages"`
	DailyAverages  PeriodAverages        `json:"daily_averages"`
	ActivityTypes  map[string]*TypeStats `json:"activity_types"`
	Activities     []FormattedActivity   `json:"activities"`
}

type Aggregator struct {
	activitySource ActivitySource
	metricsManager *metrics.Manager
	now            func() time.Time
}

type NewAggregatorParams struct {
	ActivitySource ActivitySource
	MetricsManager *metrics.Manager
	Now            func() time.Time
}

func NewAggregator(params NewAggregatorParams) *Aggregator {
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Aggregator{
		activitySource: params.ActivitySource,
		metricsManager: params.MetricsManager,
		now:            params.Now,
	}
}

// ClampDays parses the lookback window query value. Non-numeric input
// falls back to the default, out of range values clamp silently.
func ClampDays(raw string) int {
	days, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultLookbackDays
	}
	if days < MinLookbackDays {
		return MinLookbackDays
	}
	if days > MaxLookbackDays {
		return MaxLookbackDays
	}
	return days
}

// NutritionData computes activity history statistics for the given lookback
// window. Unlike the dashboard, a failed activity fetch is fatal here, the
// whole endpoint is the activity list.
func (a *Aggregator) NutritionData(ctx context.Context, days int) (*NutritionData, error) {
	now := a.now()
	since := now.AddDate(0, 0, -days)

	activities, err := upstream.Fetch(
		upstream.Propagate, "strava", a.counterStravaErrors(),
		func() ([]strava.Activity, error) {
			return a.activitySource.ListDetailedSince(ctx, since)
		},
	)
	if err != nil {
		return nil, err
	}

	log.Debugf("nutrition: %d activities over the last %d days", len(activities), days)

	var (
		totalMeters       float64
		totalSeconds      int
		totalElevationM   float64
		totalCalories     float64
		heartrateSum      float64
		heartrateCount    int
		caloriesSum       float64
		caloriesCount     int
		sufferScoreSum    float64
		sufferScoreCount  int
	)

	activityTypes := make(map[string]*TypeStats)
	formatted := make([]FormattedActivity, 0, len(activities))

	for _, activity := range activities {
		totalMeters += activity.Distance
		totalSeconds += activity.MovingTime
		totalElevationM += activity.TotalElevationGain

		if activity.Calories != nil {
			totalCalories += *activity.Calories
			caloriesSum += *activity.Calories
			caloriesCount++
		}
		if activity.AverageHeartrate != nil {
			heartrateSum += *activity.AverageHeartrate
			heartrateCount++
		}
		if activity.SufferScore != nil {
			sufferScoreSum += *activity.SufferScore
			sufferScoreCount++
		}

		typeStats, ok := activityTypes[activity.Type]
		if !ok {
			typeStats = &TypeStats{}
			activityTypes[activity.Type] = typeStats
		}
		typeStats.Count++
		typeStats.TotalDistanceKm += activity.Distance / 1000
		typeStats.TotalMovingTimeHours += float64(activity.MovingTime) / 3600
		typeStats.TotalElevationGainM += activity.TotalElevationGain
		if activity.Calories != nil {
			typeStats.TotalCalories += *activity.Calories
		}

		formatted = append(formatted, formatActivity(activity))
	}

	for _, typeStats := range activityTypes {
		typeStats.TotalDistanceKm = round2(typeStats.TotalDistanceKm)
		typeStats.TotalMovingTimeHours = round2(typeStats.TotalMovingTimeHours)
		typeStats.TotalElevationGainM = round1(typeStats.TotalElevationGainM)
	}

	totalElevationM = round1(totalElevationM)
	summary := Summary{
		TotalActivities:        len(activities),
		TotalDistanceKm:        round2(totalMeters / 1000),
		TotalDistanceMiles:     training.MetersToMiles(totalMeters),
		TotalMovingTimeHours:   round2(float64(totalSeconds) / 3600),
		TotalElevationGainM:    totalElevationM,
		TotalElevationGainFt:   round1(totalElevationM * feetPerMeter),
		TotalCalories:          nilOnZero(totalCalories),
		AvgHeartrate:           subsetAverage(heartrateSum, heartrateCount),
		AvgCaloriesPerActivity: subsetAverage(caloriesSum, caloriesCount),
		AvgSufferScore:         subsetAverage(sufferScoreSum, sufferScoreCount),
	}

	weeks := float64(days) / 7
	return &NutritionData{
		Period: Period{
			Days:      days,
			StartDate: since.Format("2006-01-02"),
			EndDate:   now.Format("2006-01-02"),
		},
		Summary:        summary,
		WeeklyAverages: periodAverages(totalMeters, totalSeconds, totalElevationM, totalCalories, weeks),
		DailyAverages:  periodAverages(totalMeters, totalSeconds, totalElevationM, totalCalories, float64(days)),
		ActivityTypes:  activityTypes,
		Activities:     formatted,
	}, nil
}

func formatActivity(activity strava.Activity) FormattedActivity {
	elevationM := round1(activity.TotalElevationGain)
	formatted := FormattedActivity{
		ID:                 activity.ID,
		Name:               activity.Name,
		Type:               activity.Type,
		SportType:          activity.SportType,
		Date:               training.FormatDateForDisplay(activity.StartDateLocal),
		StartDateLocal:     activity.StartDateLocal,
		DistanceKm:         round2(activity.Distance / 1000),
		DistanceMiles:      training.MetersToMiles(activity.Distance),
		MovingTimeMinutes:  training.SecondsToMinutes(activity.MovingTime),
		ElapsedTimeMinutes: training.SecondsToMinutes(activity.ElapsedTime),
		AverageSpeedKmh:    round2(activity.AverageSpeed * 3.6),
		MaxSpeedKmh:        round2(activity.MaxSpeed * 3.6),
		ElevationGainM:     elevationM,
		ElevationGainFt:    round1(elevationM * feetPerMeter),
		AverageCadence:     activity.AverageCadence,
		AverageHeartrate:   activity.AverageHeartrate,
		MaxHeartrate:       activity.MaxHeartrate,
		Calories:           activity.Calories,
		SufferScore:        activity.SufferScore,
		Trainer:            activity.Trainer,
		Commute:            activity.Commute,
		AchievementCount:   activity.AchievementCount,
		KudosCount:         activity.KudosCount,
		PRCount:            activity.PRCount,
	}

	if activity.Distance > 0 {
		pacePerKm := training.PacePerKm(activity.Distance, activity.MovingTime)
		pacePerMile := training.PacePerMile(activity.Distance, activity.MovingTime)
		formatted.PacePerKm = &pacePerKm
		formatted.PacePerMile = &pacePerMile
	}

	if activity.AverageTemp != nil {
		tempF := round1(*activity.AverageTemp*9/5 + 32)
		formatted.TemperatureF = &tempF
	}

	return formatted
}

func periodAverages(totalMeters float64, totalSeconds int, totalElevationM, totalCalories, periods float64) PeriodAverages {
	averages := PeriodAverages{
		DistanceKm:      round2(totalMeters / 1000 / periods),
		DistanceMiles:   round2(totalMeters * milesPerMeter / periods),
		MovingTimeHours: round2(float64(totalSeconds) / 3600 / periods),
		ElevationGainM:  round1(totalElevationM / periods),
	}
	// same null-on-zero convention as the summary total
	if totalCalories != 0 {
		perPeriod := round1(totalCalories / periods)
		averages.Calories = &perPeriod
	}
	return averages
}

func (a *Aggregator) counterStravaErrors() prometheus.Counter {
	if a.metricsManager == nil {
		return nil
	}
	return a.metricsManager.CounterStravaFetchErrors
}

func nilOnZero(val float64) *float64 {
	if val == 0 {
		return nil
	}
	return &val
}

func subsetAverage(sum float64, count int) *float64 {
	if count == 0 {
		return nil
	}
	avg := math.Round(sum/float64(count)*10) / 10
	return &avg
}

func round1(val float64) float64 {
	return math.Round(val*10) / 10
}

func round2(val float64) float64 {
	return math.Round(val*100) / 100
}
