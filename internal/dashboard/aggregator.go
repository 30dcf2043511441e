package dashboard

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/config"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/strava"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/metrics"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/training"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/upstream"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/weather"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const forecastDays = 7

// ErrEventDateNotConfigured means the next event date is missing from the
// dashboard configuration, without it none of the countdown math works.
var ErrEventDateNotConfigured = errors.New("event date not configured")

var dayNames = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

var dayAbbreviations = map[string]string{
	"Monday":    "Mon",
	"Tuesday":   "Tue",
	"Wednesday": "Wed",
	"Thursday":  "Thu",
	"Friday":    "Fri",
	"Saturday":  "Sat",
	"Sunday":    "Sun",
}

type ActivitySource interface {
	ListRunsSince(ctx context.Context, since time.Time) ([]strava.Activity, error)
}

type ForecastSource interface {
	GetDailyForecast(ctx context.Context, days int) (map[string]weather.DailyForecast, error)
}

type QuoteSource interface {
	RandomQuote() string
}

type WeatherInfo struct {
	TempMorning       *float64 `json:"temp_morning"`
	FeelsLikeMorning  *float64 `json:"feels_like_morning"`
	PrecipitationProb int      `json:"precipitation_prob"`
	Description       string   `json:"description"`
}

// DayEntry is one row of the weekly plan, merged with the run (if any)
// completed that day and the forecast (if any) for that day.
type DayEntry struct {
	Day             string       `json:"day"`
	DayShort        string       `json:"day_short"`
	Workout         string       `json:"workout"`
	Completed       bool         `json:"completed"`
	DistanceMiles   *float64     `json:"distance_miles,omitempty"`
	DurationMinutes *int         `json:"duration_minutes,omitempty"`
	PacePerMile     *string      `json:"pace_per_mile,omitempty"`
	Weather         *WeatherInfo `json:"weather,omitempty"`
}

// RunningData is the full payload rendered by the TRMNL display.
type RunningData struct {
	WeeklyMiles        float64    `json:"weekly_miles"`
	TargetMiles        float64    `json:"target_miles"`
	WeeksUntilEvent    int        `json:"weeks_until_event"`
	EventName          string     `json:"event_name"`
	Quote              string     `json:"quote"`
	WeeklyPlan         []DayEntry `json:"weekly_plan"`
	HasWeeklyPlan      bool       `json:"has_weekly_plan"`
	ProgressPercentage int        `json:"progress_percentage"`
}

type Aggregator struct {
	runsSource     ActivitySource
	forecastSource ForecastSource
	quotes         QuoteSource
	cfg            config.Dashboard
	metricsManager *metrics.Manager
	now            func() time.Time
}

type NewAggregatorParams struct {
	RunsSource     ActivitySource
	ForecastSource ForecastSource
	Quotes         QuoteSource
	Config         config.Dashboard
	MetricsManager *metrics.Manager
	Now            func() time.Time
}

func NewAggregator(params NewAggregatorParams) *Aggregator {
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Aggregator{
		runsSource:     params.RunsSource,
		forecastSource: params.ForecastSource,
		quotes:         params.Quotes,
		cfg:            params.Config,
		metricsManager: params.MetricsManager,
		now:            params.Now,
	}
}

type runMetrics struct {
	distanceMiles   float64
	durationMinutes int
	pacePerMile     string
}

// RunningData assembles the dashboard payload. Both upstream sources are
// best-effort: a failed runs fetch renders an empty week, a failed forecast
// fetch renders day entries without weather. Only a missing event date fails
// the whole request.
func (a *Aggregator) RunningData(ctx context.Context) (*RunningData, error) {
	if a.cfg.EventDate == "" {
		return nil, ErrEventDateNotConfigured
	}

	now := a.now()
	weekStart := training.WeekStart(now)
	weekLabel := training.WeekLabel(now)
	weeksUntilEvent := training.WeeksUntilEvent(a.cfg.EventDate, now)
	targetMiles := training.WeeklyTarget(weeksUntilEvent, a.cfg.TrainingScheduleJSON)
	weeklyPlan := training.WeeklyPlan(a.cfg.WeeklyPlanJSON)

	log.Debugf(
		"dashboard: %s, weeks until event: %d, target: %.1f miles",
		weekLabel, weeksUntilEvent, targetMiles,
	)

	runs, _ := upstream.Fetch(
		upstream.Degrade, "strava", a.counterStravaErrors(),
		func() ([]strava.Activity, error) {
			return a.runsSource.ListRunsSince(ctx, weekStart)
		},
	)

	forecastByDate, _ := upstream.Fetch(
		upstream.Degrade, "weather", a.counterWeatherErrors(),
		func() (map[string]weather.DailyForecast, error) {
			return a.forecastSource.GetDailyForecast(ctx, forecastDays)
		},
	)

	weeklyMiles := 0.0
	runsByDate := make(map[string]runMetrics)
	for _, run := range runs {
		distanceMiles := training.MetersToMiles(run.Distance)
		weeklyMiles += distanceMiles
		// a later run on the same date wins the day slot, the weekly
		// total already counted both
		runsByDate[run.StartDay()] = runMetrics{
			distanceMiles:   distanceMiles,
			durationMinutes: training.SecondsToMinutes(run.MovingTime),
			pacePerMile:     training.PacePerMile(run.Distance, run.MovingTime),
		}
	}
	weeklyMiles = math.Round(weeklyMiles*10) / 10

	processedPlan := make([]DayEntry, 0, len(weeklyPlan))
	for _, dayPlan := range weeklyPlan {
		dayIndex := indexOfDay(dayPlan.Day)
		if dayIndex < 0 {
			log.Warnf("dashboard: unknown plan day name %q, skipping", dayPlan.Day)
			continue
		}
		dayDate := weekStart.AddDate(0, 0, dayIndex).Format("2006-01-02")

		entry := DayEntry{
			Day:      dayPlan.Day,
			DayShort: dayAbbreviations[dayPlan.Day],
			Workout:  dayPlan.Workout,
		}

		if run, ok := runsByDate[dayDate]; ok {
			entry.Completed = true
			entry.DistanceMiles = &run.distanceMiles
			entry.DurationMinutes = &run.durationMinutes
			entry.PacePerMile = &run.pacePerMile
		}

		if forecast, ok := forecastByDate[dayDate]; ok {
			entry.Weather = &WeatherInfo{
				TempMorning:       roundPtr(forecast.TempMorning),
				FeelsLikeMorning:  roundPtr(forecast.FeelsLikeMorning),
				PrecipitationProb: int(math.Round(forecast.PrecipitationProb)),
				Description:       forecast.Description,
			}
		}

		processedPlan = append(processedPlan, entry)
	}

	data := &RunningData{
		WeeklyMiles:        weeklyMiles,
		TargetMiles:        targetMiles,
		WeeksUntilEvent:    weeksUntilEvent,
		EventName:          a.cfg.EventName,
		Quote:              a.quotes.RandomQuote(),
		WeeklyPlan:         processedPlan,
		HasWeeklyPlan:      len(processedPlan) > 0,
		ProgressPercentage: training.ProgressPercentage(weeklyMiles, targetMiles),
	}

	completedCount := 0
	for _, day := range processedPlan {
		if day.Completed {
			completedCount++
		}
	}
	log.Debugf(
		"dashboard: %.1f/%.1f miles, %d runs completed",
		weeklyMiles, targetMiles, completedCount,
	)

	return data, nil
}

func (a *Aggregator) counterStravaErrors() prometheus.Counter {
	if a.metricsManager == nil {
		return nil
	}
	return a.metricsManager.CounterStravaFetchErrors
}

func (a *Aggregator) counterWeatherErrors() prometheus.Counter {
	if a.metricsManager == nil {
		return nil
	}
	return a.metricsManager.CounterWeatherFetchErrors
}

func indexOfDay(dayName string) int {
	for i, name := range dayNames {
		if name == dayName {
			return i
		}
	}
	return -1
}

func roundPtr(val *float64) *float64 {
	if val == nil {
		return nil
	}
	rounded := math.Round(*val*10) / 10
	return &rounded
}
