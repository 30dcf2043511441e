package nutrition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/strava"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivitySource struct {
	activities []strava.Activity
	err        error
	gotSince   time.Time
}

func (f *fakeActivitySource) ListDetailedSince(_ context.Context, since time.Time) ([]strava.Activity, error) {
	f.gotSince = since
	return f.activities, f.err
}

func floatPtr(v float64) *float64 { return &v }

var testNow = time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC)

func testActivities() []strava.Activity {
	return []strava.Activity{
		{
			ID:                 1,
			Name:               "Morning Run",
			Type:               "Run",
			SportType:          "Run",
			StartDate:          "2026-01-20T06:00:00Z",
			StartDateLocal:     "2026-01-20T06:00:00Z",
			Distance:           8000,
			MovingTime:         2400,
			ElapsedTime:        2500,
			TotalElevationGain: 100,
			AverageSpeed:       3.33,
			MaxSpeed:           4.5,
			AverageCadence:     floatPtr(170),
			AverageHeartrate:   floatPtr(155),
			MaxHeartrate:       floatPtr(175),
			HasHeartrate:       true,
			Calories:           floatPtr(450),
			SufferScore:        floatPtr(42),
			AverageTemp:        floatPtr(12),
			AchievementCount:   1,
			KudosCount:         3,
		},
		{
			ID:                 2,
			Name:               "Easy Run",
			Type:               "Run",
			SportType:          "Run",
			StartDate:          "2026-01-18T07:00:00Z",
			StartDateLocal:     "2026-01-18T07:00:00Z",
			Distance:           5000,
			MovingTime:         1800,
			ElapsedTime:        1900,
			TotalElevationGain: 50,
			AverageSpeed:       2.78,
			MaxSpeed:           3.5,
			AverageCadence:     floatPtr(165),
			AverageHeartrate:   floatPtr(145),
			MaxHeartrate:       floatPtr(160),
			HasHeartrate:       true,
			Calories:           floatPtr(300),
			SufferScore:        floatPtr(28),
			AverageTemp:        floatPtr(10),
			KudosCount:         5,
			PRCount:            1,
		},
		{
			ID:                 3,
			Name:               "Recovery Bike",
			Type:               "Ride",
			SportType:          "MountainBikeRide",
			StartDate:          "2026-01-19T08:00:00Z",
			StartDateLocal:     "2026-01-19T08:00:00Z",
			Distance:           15000,
			MovingTime:         2700,
			ElapsedTime:        3000,
			TotalElevationGain: 200,
			AverageSpeed:       5.56,
			MaxSpeed:           8.0,
			AverageCadence:     floatPtr(80),
			AverageHeartrate:   floatPtr(130),
			MaxHeartrate:       floatPtr(150),
			HasHeartrate:       true,
			Calories:           floatPtr(400),
			SufferScore:        floatPtr(35),
			AverageTemp:        floatPtr(15),
			KudosCount:         2,
		},
	}
}

func newTestAggregator(source *fakeActivitySource, metricsManager *metrics.Manager) *Aggregator {
	return NewAggregator(NewAggregatorParams{
		ActivitySource: source,
		MetricsManager: metricsManager,
		Now:            func() time.Time { return testNow },
	})
}

func TestClampDays(t *testing.T) {
	assert.Equal(t, 30, ClampDays(""))
	assert.Equal(t, 30, ClampDays("abc"))
	assert.Equal(t, 30, ClampDays("30"))
	assert.Equal(t, 45, ClampDays("45"))
	assert.Equal(t, 1, ClampDays("0"))
	assert.Equal(t, 1, ClampDays("-5"))
	assert.Equal(t, 90, ClampDays("100"))
	assert.Equal(t, 90, ClampDays("90"))
	assert.Equal(t, 1, ClampDays("1"))
}

func TestAggregator_NutritionData_Summary(t *testing.T) {
	source := &fakeActivitySource{activities: testActivities()}
	agg := newTestAggregator(source, metrics.NewTestManager())

	data, err := agg.NutritionData(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, testNow.AddDate(0, 0, -30), source.gotSince)
	assert.Equal(t, Period{Days: 30, StartDate: "2025-12-22", EndDate: "2026-01-21"}, data.Period)

	summary := data.Summary
	assert.Equal(t, 3, summary.TotalActivities)
	assert.Equal(t, 28.0, summary.TotalDistanceKm)
	assert.Equal(t, 17.4, summary.TotalDistanceMiles)
	assert.Equal(t, 1.92, summary.TotalMovingTimeHours)
	assert.Equal(t, 350.0, summary.TotalElevationGainM)
	assert.Equal(t, 1148.3, summary.TotalElevationGainFt)
	require.NotNil(t, summary.TotalCalories)
	assert.Equal(t, 1150.0, *summary.TotalCalories)
	require.NotNil(t, summary.AvgHeartrate)
	assert.Equal(t, 143.3, *summary.AvgHeartrate)
	require.NotNil(t, summary.AvgCaloriesPerActivity)
	assert.Equal(t, 383.3, *summary.AvgCaloriesPerActivity)
	require.NotNil(t, summary.AvgSufferScore)
	assert.Equal(t, 35.0, *summary.AvgSufferScore)
}

func TestAggregator_NutritionData_ActivityTypes(t *testing.T) {
	agg := newTestAggregator(&fakeActivitySource{activities: testActivities()}, metrics.NewTestManager())

	data, err := agg.NutritionData(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, data.ActivityTypes, 2)

	runStats := data.ActivityTypes["Run"]
	require.NotNil(t, runStats)
	assert.Equal(t, 2, runStats.Count)
	assert.Equal(t, 13.0, runStats.TotalDistanceKm)
	assert.Equal(t, 1.17, runStats.TotalMovingTimeHours)
	assert.Equal(t, 150.0, runStats.TotalElevationGainM)
	assert.Equal(t, 750.0, runStats.TotalCalories)

	rideStats := data.ActivityTypes["Ride"]
	require.NotNil(t, rideStats)
	assert.Equal(t, 1, rideStats.Count)
	assert.Equal(t, 15.0, rideStats.TotalDistanceKm)
	assert.Equal(t, 0.75, rideStats.TotalMovingTimeHours)
	assert.Equal(t, 400.0, rideStats.TotalCalories)
}

func TestAggregator_NutritionData_PeriodAverages(t *testing.T) {
	agg := newTestAggregator(&fakeActivitySource{activities: testActivities()}, metrics.NewTestManager())

	data, err := agg.NutritionData(context.Background(), 30)
	require.NoError(t, err)

	weekly := data.WeeklyAverages
	assert.Equal(t, 6.53, weekly.DistanceKm)
	assert.Equal(t, 4.06, weekly.DistanceMiles)
	assert.Equal(t, 0.45, weekly.MovingTimeHours)
	assert.Equal(t, 81.7, weekly.ElevationGainM)
	require.NotNil(t, weekly.Calories)
	assert.Equal(t, 268.3, *weekly.Calories)

	daily := data.DailyAverages
	assert.Equal(t, 0.93, daily.DistanceKm)
	assert.Equal(t, 0.58, daily.DistanceMiles)
	assert.Equal(t, 0.06, daily.MovingTimeHours)
	assert.Equal(t, 11.7, daily.ElevationGainM)
	require.NotNil(t, daily.Calories)
	assert.Equal(t, 38.3, *daily.Calories)
}

func TestAggregator_NutritionData_FormattedActivities(t *testing.T) {
	agg := newTestAggregator(&fakeActivitySource{activities: testActivities()}, metrics.NewTestManager())

	data, err := agg.NutritionData(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, data.Activities, 3)

	run := data.Activities[0]
	assert.Equal(t, int64(1), run.ID)
	assert.Equal(t, "Morning Run", run.Name)
	assert.Equal(t, "Tue, Jan 20", run.Date)
	assert.Equal(t, 8.0, run.DistanceKm)
	assert.Equal(t, 5.0, run.DistanceMiles)
	assert.Equal(t, 40, run.MovingTimeMinutes)
	assert.Equal(t, 42, run.ElapsedTimeMinutes)
	require.NotNil(t, run.PacePerKm)
	assert.Equal(t, "5:00", *run.PacePerKm)
	require.NotNil(t, run.PacePerMile)
	assert.Equal(t, "8:02", *run.PacePerMile)
	assert.Equal(t, 11.99, run.AverageSpeedKmh)
	assert.Equal(t, 16.2, run.MaxSpeedKmh)
	assert.Equal(t, 100.0, run.ElevationGainM)
	assert.Equal(t, 328.1, run.ElevationGainFt)
	require.NotNil(t, run.TemperatureF)
	assert.Equal(t, 53.6, *run.TemperatureF)
	require.NotNil(t, run.AverageHeartrate)
	assert.Equal(t, 155.0, *run.AverageHeartrate)
	assert.Equal(t, 1, run.AchievementCount)
	assert.Equal(t, 3, run.KudosCount)
}

func TestAggregator_NutritionData_ZeroDistanceActivityHasNoPace(t *testing.T) {
	agg := newTestAggregator(&fakeActivitySource{
		activities: []strava.Activity{
			{ID: 7, Name: "Yoga", Type: "Workout", SportType: "Workout", MovingTime: 3600, ElapsedTime: 3600},
		},
	}, metrics.NewTestManager())

	data, err := agg.NutritionData(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, data.Activities, 1)
	assert.Nil(t, data.Activities[0].PacePerKm)
	assert.Nil(t, data.Activities[0].PacePerMile)
	assert.Nil(t, data.Activities[0].TemperatureF)
}

func TestAggregator_NutritionData_NoActivities(t *testing.T) {
	agg := newTestAggregator(&fakeActivitySource{}, metrics.NewTestManager())

	data, err := agg.NutritionData(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, 0, data.Summary.TotalActivities)
	assert.Equal(t, 0.0, data.Summary.TotalDistanceKm)
	assert.Nil(t, data.Summary.TotalCalories)
	assert.Nil(t, data.Summary.AvgHeartrate)
	assert.Nil(t, data.Summary.AvgSufferScore)
	assert.Nil(t, data.WeeklyAverages.Calories)
	assert.Nil(t, data.DailyAverages.Calories)
	assert.Empty(t, data.ActivityTypes)
	assert.Empty(t, data.Activities)
}

func TestAggregator_NutritionData_MissingCaloriesExcludedFromAverage(t *testing.T) {
	agg := newTestAggregator(&fakeActivitySource{
		activities: []strava.Activity{
			{ID: 1, Type: "Run", Distance: 5000, MovingTime: 1500, Calories: floatPtr(300)},
			{ID: 2, Type: "Run", Distance: 5000, MovingTime: 1500},
		},
	}, metrics.NewTestManager())

	data, err := agg.NutritionData(context.Background(), 30)
	require.NoError(t, err)

	require.NotNil(t, data.Summary.TotalCalories)
	assert.Equal(t, 300.0, *data.Summary.TotalCalories)
	// the activity without calories is excluded entirely, not counted as 0
	require.NotNil(t, data.Summary.AvgCaloriesPerActivity)
	assert.Equal(t, 300.0, *data.Summary.AvgCaloriesPerActivity)
	assert.Nil(t, data.Summary.AvgHeartrate)
}

func TestAggregator_NutritionData_FetchFailureIsFatal(t *testing.T) {
	fetchErr := errors.New("strava is down")
	metricsManager := metrics.NewTestManager()
	agg := newTestAggregator(&fakeActivitySource{err: fetchErr}, metricsManager)

	_, err := agg.NutritionData(context.Background(), 30)
	require.ErrorIs(t, err, fetchErr)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterStravaFetchErrors))
}
