package apihttp

import (
	"errors"
	"log"
	"net/http"

	"der-explorer/internal/export"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// ExportHandler renders posted grids and series as downloadable files.
type ExportHandler struct {
	logger *log.Logger
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(logger *log.Logger) *ExportHandler {
	return &ExportHandler{logger: logger}
}

// ServeHTTP handles POST /api/v1/exports/{grid.xlsx,grid.pdf,interval.xlsx}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var render func(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error)
	switch r.URL.Path {
	case "/api/v1/exports/grid.xlsx":
		render = h.gridXLSX
	case "/api/v1/exports/grid.pdf":
		render = h.gridPDF
	case "/api/v1/exports/interval.xlsx":
		render = h.intervalXLSX
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data, contentType, filename, err := render(w, r)
	if err != nil {
		if errors.Is(err, errDecoded) {
			return
		}
		if h.logger != nil && !isInputError(err) {
			h.logger.Printf("export error: path=%s err=%v", r.URL.Path, err)
		}
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// errDecoded means a response was already written while decoding the body.
var errDecoded = errors.New("request rejected")

func (h *ExportHandler) gridXLSX(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error) {
	var req gridPayload
	if !decodeJSON(w, r, &req) {
		return nil, "", "", errDecoded
	}
	grid, err := req.build()
	if err != nil {
		return nil, "", "", err
	}
	data, err := export.GridXLSX(grid)
	return data, contentTypeXLSX, filename(grid.Name(), "grid") + ".xlsx", err
}

func (h *ExportHandler) gridPDF(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error) {
	var req gridPayload
	if !decodeJSON(w, r, &req) {
		return nil, "", "", errDecoded
	}
	grid, err := req.build()
	if err != nil {
		return nil, "", "", err
	}
	data, err := export.GridPDF(grid)
	return data, contentTypePDF, filename(grid.Name(), "grid") + ".pdf", err
}

func (h *ExportHandler) intervalXLSX(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error) {
	var req struct {
		Column string          `json:"column"`
		Unit   string          `json:"unit"`
		Series []seriesPayload `json:"series"`
	}
	if !decodeJSON(w, r, &req) {
		return nil, "", "", errDecoded
	}
	if len(req.Series) == 0 {
		http.Error(w, "at least one series is required", http.StatusBadRequest)
		return nil, "", "", errDecoded
	}
	series, err := buildSeries(req.Series, req.Column, req.Unit)
	if err != nil {
		return nil, "", "", err
	}
	data, err := export.SeriesXLSX(series...)
	return data, contentTypeXLSX, filename(series[0].Name(), "interval") + ".xlsx", err
}

func filename(name, fallback string) string {
	out := make([]rune, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		case c == ' ':
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return string(out)
}
