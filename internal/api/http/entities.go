package apihttp

import (
	"errors"
	"net/http"
	"strings"

	"der-explorer/internal/polling"
	"der-explorer/internal/store"
)

// EntitiesHandler reads polled entities back out of the shared store.
type EntitiesHandler struct {
	reader store.Reader
}

// NewEntitiesHandler constructs an EntitiesHandler.
func NewEntitiesHandler(reader store.Reader) (*EntitiesHandler, error) {
	if reader == nil {
		return nil, errors.New("entities handler: nil reader")
	}
	return &EntitiesHandler{reader: reader}, nil
}

// ServeHTTP handles GET /api/v1/entities/{kind} and /api/v1/entities/{kind}/{id}.
func (h *EntitiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !strings.HasPrefix(r.URL.Path, "/api/v1/entities/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/entities/"), "/"), "/")
	kind := polling.Kind(parts[0])
	if kind != polling.KindMeterGroup && kind != polling.KindScenario {
		http.Error(w, "unknown entity kind", http.StatusNotFound)
		return
	}

	switch len(parts) {
	case 1:
		entities, err := h.reader.List(r.Context(), kind)
		if err != nil {
			http.Error(w, "list entities error", http.StatusInternalServerError)
			return
		}
		if entities == nil {
			entities = []polling.Entity{}
		}
		writeJSON(w, http.StatusOK, entities)
	case 2:
		entity, err := h.reader.Get(r.Context(), kind, polling.ID(parts[1]))
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "entity not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "get entity error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entity)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
