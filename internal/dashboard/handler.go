package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/metrics"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/tracing"
	"github.com/tomorgan/trmnl-running-dashboard-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

type Handler struct {
	aggregator     *Aggregator
	metricsManager *metrics.Manager
}

func NewHandler(aggregator *Aggregator, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		aggregator:     aggregator,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.
		HandleFunc("/running-data", handler.handleGetRunningData).
		Methods("GET", "OPTIONS").
		Name("running-data")
}

func (handler *Handler) handleGetRunningData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.runningData")
	defer span.End()

	handler.metricsManager.CounterDashboardRequests.Inc()

	data, err := handler.aggregator.RunningData(ctx)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("get running data: %s", err))
		if errors.Is(err, ErrEventDateNotConfigured) {
			log.Error("running data request failed: event date not configured")
			pkg.WriteJSONError(w, http.StatusInternalServerError, "Event date not configured", "")
			return
		}
		log.Errorf("running data request failed: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	respBytes, err := json.Marshal(data)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("marshal running data: %s", err))
		log.Errorf("marshal running data: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}
