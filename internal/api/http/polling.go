package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"der-explorer/internal/audit"
	"der-explorer/internal/auth"
	"der-explorer/internal/polling"
)

// Tracker is the registry surface the polling endpoints use.
type Tracker interface {
	AddGroupedEntities(entities []polling.Entity, params polling.Params) error
	AddScalarEntities(entities []polling.Entity) error
	Reset()
	Snapshot() polling.Snapshot
}

// PollingHandler registers in-progress entities for background refresh and
// reports what is being tracked.
type PollingHandler struct {
	tracker     Tracker
	auditLogger audit.Logger
	logger      *log.Logger
}

// NewPollingHandler constructs a PollingHandler.
func NewPollingHandler(tracker Tracker, auditLogger audit.Logger, logger *log.Logger) (*PollingHandler, error) {
	if tracker == nil {
		return nil, errors.New("polling handler: nil tracker")
	}
	return &PollingHandler{tracker: tracker, auditLogger: auditLogger, logger: logger}, nil
}

// ServeHTTP routes /api/v1/polling requests.
func (h *PollingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/polling" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.tracker.Snapshot())
	case r.URL.Path == "/api/v1/polling/meter-groups" && r.Method == http.MethodPost:
		h.handleMeterGroups(w, r)
	case r.URL.Path == "/api/v1/polling/scenarios" && r.Method == http.MethodPost:
		h.handleScenarios(w, r)
	case r.URL.Path == "/api/v1/polling" || r.URL.Path == "/api/v1/polling/meter-groups" || r.URL.Path == "/api/v1/polling/scenarios":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *PollingHandler) handleMeterGroups(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entities []polling.Entity `json:"entities"`
		Params   polling.Params   `json:"params"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.tracker.AddGroupedEntities(req.Entities, req.Params); err != nil {
		h.respondTrackError(w, err)
		return
	}
	logAudit(r, h.auditLogger, h.logger, audit.ActionPollingRegister, string(polling.KindMeterGroup), map[string]any{
		"ids":    entityIDs(req.Entities),
		"params": req.Params,
	})
	writeJSON(w, http.StatusAccepted, h.tracker.Snapshot())
}

func (h *PollingHandler) handleScenarios(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entities []polling.Entity `json:"entities"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.tracker.AddScalarEntities(req.Entities); err != nil {
		h.respondTrackError(w, err)
		return
	}
	logAudit(r, h.auditLogger, h.logger, audit.ActionPollingRegister, string(polling.KindScenario), map[string]any{
		"ids": entityIDs(req.Entities),
	})
	writeJSON(w, http.StatusAccepted, h.tracker.Snapshot())
}

func (h *PollingHandler) respondTrackError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, polling.ErrInvalidParams):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, polling.ErrNilFetcher):
		http.Error(w, "polling not configured", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// LogoutHandler stops all polling for the signed-out session.
type LogoutHandler struct {
	tracker     Tracker
	auditLogger audit.Logger
	logger      *log.Logger
}

// NewLogoutHandler constructs a LogoutHandler.
func NewLogoutHandler(tracker Tracker, auditLogger audit.Logger, logger *log.Logger) (*LogoutHandler, error) {
	if tracker == nil {
		return nil, errors.New("logout handler: nil tracker")
	}
	return &LogoutHandler{tracker: tracker, auditLogger: auditLogger, logger: logger}, nil
}

// ServeHTTP handles POST /api/v1/auth/logout.
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.tracker.Reset()
	logAudit(r, h.auditLogger, h.logger, audit.ActionPollingReset, "polling", nil)
	w.WriteHeader(http.StatusNoContent)
}

func entityIDs(entities []polling.Entity) []polling.ID {
	ids := make([]polling.ID, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}

func logAudit(r *http.Request, auditLogger audit.Logger, logger *log.Logger, action, resourceType string, meta map[string]any) {
	if auditLogger == nil {
		return
	}
	var payload []byte
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	id, _ := auth.IdentityFromContext(r.Context())
	err := auditLogger.Log(r.Context(), audit.Entry{
		Actor:        id.Subject,
		Role:         string(id.Role),
		Action:       action,
		ResourceType: resourceType,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil && logger != nil {
		logger.Printf("audit log error: action=%s err=%v", action, err)
	}
}
