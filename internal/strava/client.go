package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/tracing"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultTokenURL      = "https://www.strava.com/oauth/token"
	DefaultActivitiesURL = "https://www.strava.com/api/v3/athlete/activities"

	maxPageSize = 200
)

var ErrMissingCredentials = errors.New("missing required Strava credentials")

// FetchError is returned when the Strava API answers with a non-2xx status
// after the retry policy is exhausted, or the transport fails.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("strava api request failed with status %d: %s", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("strava api request failed: %s", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client wraps the Strava API v3 athlete activities endpoint. The access
// token is obtained lazily from the long-lived refresh token and refreshed
// exactly once more when a request comes back unauthorized.
type Client struct {
	mu             sync.Mutex
	tokenURL       string
	activitiesURL  string
	clientID       string
	clientSecret   string
	refreshToken   string
	accessToken    string
	httpClient     *http.Client
	tokenRefreshes prometheus.Counter
}

type ClientParams struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// TokenURL and ActivitiesURL default to the strava.com endpoints
	TokenURL      string
	ActivitiesURL string
	HTTPClient    *http.Client
	// TokenRefreshes (optional) counts successful access token refreshes
	TokenRefreshes prometheus.Counter
}

func NewClient(params ClientParams) (*Client, error) {
	if params.ClientID == "" || params.ClientSecret == "" || params.RefreshToken == "" {
		return nil, ErrMissingCredentials
	}

	if params.TokenURL == "" {
		params.TokenURL = DefaultTokenURL
	}
	if params.ActivitiesURL == "" {
		params.ActivitiesURL = DefaultActivitiesURL
	}
	if params.HTTPClient == nil {
		params.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		tokenURL:       params.TokenURL,
		activitiesURL:  params.ActivitiesURL,
		clientID:       params.ClientID,
		clientSecret:   params.ClientSecret,
		refreshToken:   params.RefreshToken,
		httpClient:     params.HTTPClient,
		tokenRefreshes: params.TokenRefreshes,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Authenticate exchanges the refresh token for a short-lived access token.
func (c *Client) Authenticate(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.client.authenticate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	log.Debugln("refreshing strava access token")

	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"refresh_token": {c.refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FetchError{Err: fmt.Errorf("strava token refresh: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return &FetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("strava token refresh: %s", respBytes),
		}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("unmarshal strava token response: %w", err)
	}

	c.accessToken = token.AccessToken
	if c.tokenRefreshes != nil {
		c.tokenRefreshes.Inc()
	}
	log.Debugln("strava access token refreshed")

	return nil
}

// ListActivities fetches athlete activities, newest pages first. A zero
// `after` means no lower bound; perPage is capped at the Strava maximum of
// 200. On an unauthorized response the token is refreshed once and the same
// request retried.
func (c *Client) ListActivities(ctx context.Context, after time.Time, perPage int) (activities []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.client.listActivities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken == "" {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	if perPage <= 0 || perPage > maxPageSize {
		perPage = maxPageSize
	}

	params := url.Values{"per_page": {strconv.Itoa(perPage)}}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	requestURL := c.activitiesURL + "?" + params.Encode()

	resp, err := c.doAuthorized(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		log.Warnln("strava access token rejected, refreshing once and retrying")
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
		resp, err = c.doAuthorized(ctx, requestURL)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("list activities: %s", respBytes),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("unmarshal strava activities response: %w", err)
	}

	span.SetAttributes(attribute.Int("activities.count", len(activities)))
	log.Debugf("fetched %d activities from strava", len(activities))

	return activities, nil
}

func (c *Client) doAuthorized(ctx context.Context, requestURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("http client do: %w", err)}
	}
	return resp, nil
}

// ListRunsSince returns Run-type activities started after the given time.
func (c *Client) ListRunsSince(ctx context.Context, since time.Time) ([]Activity, error) {
	activities, err := c.ListActivities(ctx, since, 50)
	if err != nil {
		return nil, err
	}

	var runs []Activity
	for _, activity := range activities {
		if activity.IsRun() {
			runs = append(runs, activity)
		}
	}

	log.Debugf("filtered %d runs from %d activities", len(runs), len(activities))
	return runs, nil
}

// ListDetailedSince returns all activities (any type, full field set)
// started after the given time, up to one full page of 200.
func (c *Client) ListDetailedSince(ctx context.Context, since time.Time) ([]Activity, error) {
	return c.ListActivities(ctx, since, maxPageSize)
}
