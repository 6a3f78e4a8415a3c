package apihttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"der-explorer/internal/frame288"
	"der-explorer/internal/interval"
)

const (
	timeLayout = time.RFC3339

	defaultColumnKey = "timestamp"
	defaultUnitKey   = "value"

	maxBodyBytes = 8 << 20
)

// gridPayload is the wire shape of a grid: metadata plus a
// {"1": [...24], ..., "12": [...24]} frame.
type gridPayload struct {
	Name  string          `json:"name"`
	Units string          `json:"units"`
	Frame json.RawMessage `json:"frame"`
}

func (p gridPayload) build() (*frame288.Grid, error) {
	if len(p.Frame) == 0 {
		return nil, fmt.Errorf("%w: frame is required", frame288.ErrShape)
	}
	return frame288.Parse(p.Frame, frame288.WithName(p.Name), frame288.WithUnits(p.Units))
}

// seriesPayload is one named series in column form.
type seriesPayload struct {
	Name string           `json:"name"`
	Data interval.Columns `json:"data"`
}

func buildSeries(payloads []seriesPayload, columnKey, unitKey string) ([]*interval.Series, error) {
	if columnKey == "" {
		columnKey = defaultColumnKey
	}
	if unitKey == "" {
		unitKey = defaultUnitKey
	}
	series := make([]*interval.Series, 0, len(payloads))
	for i, p := range payloads {
		s, err := interval.Parse(p.Data, columnKey, unitKey, p.Name)
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", i, err)
		}
		series = append(series, s)
	}
	return series, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON encodes v before writing the status so that a result holding
// NaN or Inf is reported as 422 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		var unsupported *json.UnsupportedValueError
		if errors.As(err, &unsupported) {
			http.Error(w, "result is not finite: "+unsupported.Str, http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// isInputError reports whether err was caused by a malformed request payload.
func isInputError(err error) bool {
	return errors.Is(err, frame288.ErrShape) ||
		errors.Is(err, frame288.ErrIndex) ||
		errors.Is(err, interval.ErrInsufficientData) ||
		errors.Is(err, interval.ErrEmptySeries) ||
		errors.Is(err, interval.ErrInvalidTimestamp) ||
		errors.Is(err, interval.ErrMissingColumn) ||
		errors.Is(err, interval.ErrColumnMismatch)
}

func respondError(w http.ResponseWriter, err error) {
	if isInputError(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseTimeValue(key, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := interval.ParseTimestring(value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be a timestamp")
	}
	return parsed, nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(timeLayout)
}
