package apihttp

import (
	"net/http"

	"der-explorer/internal/frame288"
)

type gridSummary struct {
	Name  string         `json:"name"`
	Units string         `json:"units"`
	Min   float64        `json:"min"`
	Max   float64        `json:"max"`
	Scale frame288.Scale `json:"scale"`
}

// GridSummaryHandler summarizes a posted 288 grid.
type GridSummaryHandler struct{}

// NewGridSummaryHandler constructs a GridSummaryHandler.
func NewGridSummaryHandler() *GridSummaryHandler {
	return &GridSummaryHandler{}
}

// ServeHTTP handles POST /api/v1/grids/summary.
func (h *GridSummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req gridPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	grid, err := req.build()
	if err != nil {
		respondError(w, err)
		return
	}
	lo, hi := grid.Range()
	writeJSON(w, http.StatusOK, gridSummary{
		Name:  grid.Name(),
		Units: grid.Units(),
		Min:   lo,
		Max:   hi,
		Scale: grid.Scale(),
	})
}
