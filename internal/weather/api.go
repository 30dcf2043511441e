package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// example API call
// https://api.openweathermap.org/data/2.5/forecast/daily?lat=51.5&lon=-0.1&cnt=7&appid=TODO&units=metric

const (
	DefaultForecastURL = "https://api.openweathermap.org/data/2.5/forecast/daily"

	maxForecastDays = 16
)

var ErrMissingCredentials = errors.New("missing required weather API credentials")

// FetchError is returned on transport failures and non-2xx responses,
// there is no retry for the forecast.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("weather api request failed with status %d: %s", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("weather api request failed: %s", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Api struct {
	forecastURL string
	apiKey      string
	lat         string
	lon         string
	httpClient  *http.Client
}

type ApiParams struct {
	ApiKey string
	Lat    string
	Lon    string
	// ForecastURL defaults to the openweathermap daily forecast endpoint
	ForecastURL string
	HTTPClient  *http.Client
}

func NewApi(params ApiParams) (*Api, error) {
	if params.ApiKey == "" || params.Lat == "" || params.Lon == "" {
		return nil, ErrMissingCredentials
	}
	if params.ForecastURL == "" {
		params.ForecastURL = DefaultForecastURL
	}
	if params.HTTPClient == nil {
		params.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Api{
		forecastURL: params.ForecastURL,
		apiKey:      params.ApiKey,
		lat:         params.Lat,
		lon:         params.Lon,
		httpClient:  params.HTTPClient,
	}, nil
}

// GetDailyForecast fetches the daily forecast for the configured location
// and returns it keyed by local calendar date ("2006-01-02"). The number of
// days is capped at the upstream maximum of 16.
func (w *Api) GetDailyForecast(ctx context.Context, days int) (_ map[string]DailyForecast, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "weatherApi.getDailyForecast")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if days <= 0 || days > maxForecastDays {
		days = maxForecastDays
	}
	span.SetAttributes(attribute.Int("forecast.days", days))

	params := url.Values{
		"lat":   {w.lat},
		"lon":   {w.lon},
		"cnt":   {strconv.Itoa(days)},
		"appid": {w.apiKey},
		"units": {"metric"},
	}

	log.Debugf("fetching %d-day weather forecast", days)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.forecastURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("http client do: %w", err)}
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("read weather api response bytes: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("daily forecast: %s", respBytes),
		}
	}

	var apiResponse ApiDailyResponse
	if err := json.Unmarshal(respBytes, &apiResponse); err != nil {
		return nil, fmt.Errorf("unmarshal weather api response bytes: %w", err)
	}

	forecastsByDate := make(map[string]DailyForecast, len(apiResponse.List))
	for _, day := range apiResponse.List {
		description := "Unknown"
		if len(day.WeatherDescriptions) > 0 {
			description = day.WeatherDescriptions[0].Description
		}

		forecastsByDate[day.Timestamp().Format("2006-01-02")] = DailyForecast{
			TempMorning:       day.Temp.Morning,
			FeelsLikeMorning:  day.FeelsLike.Morning,
			PrecipitationProb: day.Pop * 100,
			Description:       description,
		}
	}

	log.Debugf("fetched weather forecast for %d days", len(forecastsByDate))

	return forecastsByDate, nil
}
