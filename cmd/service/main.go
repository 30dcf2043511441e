package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/config"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/logging"

	log "github.com/sirupsen/logrus"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "running-dashboard-api",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	stravaClientID := os.Getenv("STRAVA_CLIENT_ID")
	stravaClientSecret := os.Getenv("STRAVA_CLIENT_SECRET")
	stravaRefreshToken := os.Getenv("STRAVA_REFRESH_TOKEN")
	if stravaClientID == "" || stravaClientSecret == "" || stravaRefreshToken == "" {
		log.Errorf("strava credentials not set, use STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET and STRAVA_REFRESH_TOKEN env vars")
	}

	openWeatherApiKey := os.Getenv("OPENWEATHER_API_KEY")
	if openWeatherApiKey == "" {
		log.Errorf("open weather API key not set, use OPENWEATHER_API_KEY env var to set it")
	}
	weatherLat := os.Getenv("WEATHER_LAT")
	weatherLon := os.Getenv("WEATHER_LON")
	if weatherLat == "" || weatherLon == "" {
		log.Errorf("weather coordinates not set, use WEATHER_LAT and WEATHER_LON env vars")
	}

	dashboardCfg := config.Dashboard{
		EventName:            os.Getenv("NEXT_EVENT_NAME"),
		EventDate:            os.Getenv("NEXT_EVENT_DATE"),
		TrainingScheduleJSON: os.Getenv("TRAINING_SCHEDULE"),
		WeeklyPlanJSON:       os.Getenv("WEEKLY_PLAN"),
	}
	if dashboardCfg.EventName == "" {
		dashboardCfg.EventName = "Next Running Event"
	}
	if dashboardCfg.EventDate == "" {
		log.Errorf("next event date not set, the dashboard endpoint will fail, use NEXT_EVENT_DATE env var")
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	if cfg.HoneycombTracingEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	server, err := internal.NewServer(internal.NewServerParams{
		Config:             cfg,
		Dashboard:          dashboardCfg,
		StravaClientID:     stravaClientID,
		StravaClientSecret: stravaClientSecret,
		StravaRefreshToken: stravaRefreshToken,
		OpenWeatherApiKey:  openWeatherApiKey,
		WeatherLat:         weatherLat,
		WeatherLon:         weatherLon,
		VersionInfo:        versionInfo,
	})
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(stdout)), nil
}
