package internal

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/config"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/dashboard"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/middleware"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/misc"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/nutrition"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/strava"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/metrics"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/tracing"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/weather"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config        *config.Config
	dashboardCfg  config.Dashboard
	stravaClient  *strava.Client
	weatherApi    *weather.Api
	quotesManager *misc.QuotesManager

	// telemetry
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config             *config.Config
	Dashboard          config.Dashboard
	StravaClientID     string
	StravaClientSecret string
	StravaRefreshToken string
	OpenWeatherApiKey  string
	WeatherLat         string
	WeatherLon         string
	VersionInfo        string
}

func NewServer(params NewServerParams) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("dashboard", "api", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(
		params.Config.HoneycombTracingEnabled,
		"trmnl-running-dashboard",
	)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	stravaClient, err := strava.NewClient(strava.ClientParams{
		ClientID:       params.StravaClientID,
		ClientSecret:   params.StravaClientSecret,
		RefreshToken:   params.StravaRefreshToken,
		HTTPClient:     tracedHttpClient,
		TokenRefreshes: metricsManager.CounterTokenRefreshes,
	})
	if err != nil {
		return nil, err
	}

	weatherApi, err := weather.NewApi(weather.ApiParams{
		ApiKey:     params.OpenWeatherApiKey,
		Lat:        params.WeatherLat,
		Lon:        params.WeatherLon,
		HTTPClient: tracedHttpClient,
	})
	if err != nil {
		return nil, err
	}

	quotesManager, err := misc.NewQuotesManager(
		misc.RunningQuotes,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:        params.Config,
		dashboardCfg:  params.Dashboard,
		stravaClient:  stravaClient,
		weatherApi:    weatherApi,
		quotesManager: quotesManager,
		versionInfo:   params.VersionInfo,

		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	dashboardHandler := dashboard.NewHandler(
		dashboard.NewAggregator(dashboard.NewAggregatorParams{
			RunsSource:     s.stravaClient,
			ForecastSource: s.weatherApi,
			Quotes:         s.quotesManager,
			Config:         s.dashboardCfg,
			MetricsManager: s.metricsManager,
		}),
		s.metricsManager,
	)
	dashboardHandler.SetupRoutes(r)

	nutritionHandler := nutrition.NewHandler(
		nutrition.NewAggregator(nutrition.NewAggregatorParams{
			ActivitySource: s.stravaClient,
			MetricsManager: s.metricsManager,
		}),
		s.metricsManager,
	)
	nutritionHandler.SetupRoutes(r)

	miscHandler := misc.NewHandler(s.versionInfo, nil)
	miscHandler.SetupRoutes(r)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
