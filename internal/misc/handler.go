package misc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tomorgan/trmnl-running-dashboard-api/internal/telemetry/tracing"
	"github.com/tomorgan/trmnl-running-dashboard-api/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	versionInfo string
	now         func() time.Time
}

func NewHandler(versionInfo string, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		versionInfo: versionInfo,
		now:         now,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET", "OPTIONS").Name("health")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.health")
	defer span.End()

	healthResp := struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}{
		Status:    "healthy",
		Timestamp: handler.now().UTC().Format(time.RFC3339),
	}

	respBytes, err := json.Marshal(healthResp)
	if err != nil {
		log.Errorf("marshal health response: %s", err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}
