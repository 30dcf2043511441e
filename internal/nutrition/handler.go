package nutrition

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/metrics"
	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/tracing"
	"github.com/tomorgan/trmnl-running-dashboard-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
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
		HandleFunc("/nutrition-data", handler.handleGetNutritionData).
		Methods("GET", "OPTIONS").
		Name("nutrition-data")
}

func (handler *Handler) handleGetNutritionData(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "nutritionHandler.nutritionData")
	defer span.End()

	handler.metricsManager.CounterNutritionRequests.Inc()

	days := ClampDays(r.URL.Query().Get("days"))
	span.SetAttributes(attribute.Int("lookback.days", days))

	data, err := handler.aggregator.NutritionData(ctx, days)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("get nutrition data: %s", err))
		log.Errorf("nutrition data request failed: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to fetch activity data", err.Error())
		return
	}

	respBytes, err := json.Marshal(data)
	if err != nil {
		span.SetStatus(codes.Error, fmt.Sprintf("marshal nutrition data: %s", err))
		log.Errorf("marshal nutrition data: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}
