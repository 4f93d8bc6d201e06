// Package api exposes the HTTP surface: webhook ingestion, lifecycle
// operations, escalation sweeps and aggregate statistics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"argus/core"
	"argus/escalate"
	"argus/service"
	"argus/stats"
	"argus/storage"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// API holds the HTTP server and its service dependencies.
type API struct {
	router    *mux.Router
	server    *http.Server
	ingest    *service.IngestService
	lifecycle *service.LifecycleService
	evaluator *escalate.Evaluator
	store     service.AlertStore
	logger    *zap.SugaredLogger
}

// New creates the API server.
func New(addr string, ingest *service.IngestService, lifecycle *service.LifecycleService, evaluator *escalate.Evaluator, store service.AlertStore, logger *zap.SugaredLogger) *API {
	a := &API{
		router:    mux.NewRouter(),
		ingest:    ingest,
		lifecycle: lifecycle,
		evaluator: evaluator,
		store:     store,
		logger:    logger,
	}

	a.router.HandleFunc("/api/v1/webhooks/{source}", a.ingestWebhook).Methods("POST")
	a.router.HandleFunc("/api/v1/alerts", a.listAlerts).Methods("GET")
	a.router.HandleFunc("/api/v1/alerts/{id}", a.getAlert).Methods("GET")
	a.router.HandleFunc("/api/v1/alerts/{id}/acknowledge", a.acknowledgeAlert).Methods("POST")
	a.router.HandleFunc("/api/v1/alerts/{id}/resolve", a.resolveAlert).Methods("POST")
	a.router.HandleFunc("/api/v1/alerts/{id}/suppress", a.suppressAlert).Methods("POST")
	a.router.HandleFunc("/api/v1/escalation/check", a.checkEscalation).Methods("POST")
	a.router.HandleFunc("/api/v1/stats", a.getStats).Methods("GET")
	a.router.HandleFunc("/healthz", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return a
}

// Router exposes the mux for tests.
func (a *API) Router() *mux.Router {
	return a.router
}

// Start begins serving. Blocks until the server stops.
func (a *API) Start() error {
	a.logger.Infow("API server listening", "addr", a.server.Addr)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *API) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *API) ingestWebhook(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	result, err := a.ingest.Ingest(r.Context(), source, payload)
	if err != nil {
		a.internalError(w, "ingestion failed", err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	a.writeJSON(w, status, result)
}

func (a *API) listAlerts(w http.ResponseWriter, r *http.Request) {
	filters := core.NewAlertFilters()
	q := r.URL.Query()
	for _, s := range q["status"] {
		filters.Statuses = append(filters.Statuses, core.AlertStatus(s))
	}
	for _, s := range q["severity"] {
		filters.Severities = append(filters.Severities, core.Severity(s))
	}
	for _, s := range q["source"] {
		filters.Sources = append(filters.Sources, s)
	}
	if search := q.Get("search"); search != "" {
		filters.Search = search
	}

	alerts, total, err := a.lifecycle.List(r.Context(), filters)
	if err != nil {
		a.internalError(w, "failed to list alerts", err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  total,
	})
}

func (a *API) getAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := a.lifecycle.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, storage.ErrAlertNotFound) {
			a.writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		a.internalError(w, "failed to get alert", err)
		return
	}
	a.writeJSON(w, http.StatusOK, alert)
}

type lifecycleRequest struct {
	UserID          string `json:"user_id"`
	Comment         string `json:"comment,omitempty"`
	Reason          string `json:"reason,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

func (a *API) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	a.lifecycleOp(w, r, func(ctx context.Context, id string, req lifecycleRequest) error {
		if req.UserID == "" {
			return errMissingUser
		}
		return a.lifecycle.Acknowledge(ctx, id, req.UserID, req.Comment)
	})
}

func (a *API) resolveAlert(w http.ResponseWriter, r *http.Request) {
	a.lifecycleOp(w, r, func(ctx context.Context, id string, req lifecycleRequest) error {
		if req.UserID == "" {
			return errMissingUser
		}
		return a.lifecycle.Resolve(ctx, id, req.UserID, req.Comment)
	})
}

func (a *API) suppressAlert(w http.ResponseWriter, r *http.Request) {
	a.lifecycleOp(w, r, func(ctx context.Context, id string, req lifecycleRequest) error {
		if req.UserID == "" {
			return errMissingUser
		}
		if req.DurationMinutes <= 0 {
			return errInvalidDuration
		}
		return a.lifecycle.Suppress(ctx, id, req.UserID, req.DurationMinutes, req.Reason)
	})
}

var (
	errMissingUser     = errors.New("user_id is required")
	errInvalidDuration = errors.New("duration_minutes must be positive")
)

// lifecycleOp factors the shared decode/dispatch/error mapping for the
// acknowledge, resolve and suppress handlers. Internal errors surface as an
// opaque message; details stay in the server log.
func (a *API) lifecycleOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, lifecycleRequest) error) {
	id := mux.Vars(r)["id"]

	var req lifecycleRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
	}

	err := op(r.Context(), id, req)
	switch {
	case err == nil:
		a.writeJSON(w, http.StatusOK, map[string]any{"success": true, "alert_id": id})
	case errors.Is(err, storage.ErrAlertNotFound):
		a.writeError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, errMissingUser) || errors.Is(err, errInvalidDuration):
		a.writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.internalError(w, "lifecycle operation failed", err)
	}
}

func (a *API) checkEscalation(w http.ResponseWriter, r *http.Request) {
	escalated, err := a.evaluator.CheckForEscalation(r.Context())
	if err != nil {
		a.internalError(w, "escalation sweep failed", err)
		return
	}
	if escalated == nil {
		escalated = []string{}
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"escalated": escalated})
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	window := stats.Window{}
	q := r.URL.Query()
	if s := q.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid start time, want RFC3339")
			return
		}
		window.Start = t
	}
	if s := q.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid end time, want RFC3339")
			return
		}
		window.End = t
	}

	start := window.Start
	if start.IsZero() {
		start = time.Now().UTC().Add(-24 * time.Hour)
		window.Start = start
	}
	end := window.End
	if end.IsZero() {
		end = time.Now().UTC()
		window.End = end
	}

	alerts, err := a.store.QueryByWindow(r.Context(), start, end)
	if err != nil {
		a.internalError(w, "failed to query alerts for stats", err)
		return
	}
	a.writeJSON(w, http.StatusOK, stats.Compute(alerts, window))
}

func (a *API) healthCheck(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Debugf("Failed to encode response: %v", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

// internalError logs the real error server-side and returns an opaque body.
func (a *API) internalError(w http.ResponseWriter, message string, err error) {
	a.logger.Errorw(message, "error", err)
	a.writeError(w, http.StatusInternalServerError, "internal error")
}
