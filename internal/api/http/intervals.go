package apihttp

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"der-explorer/internal/interval"
)

const (
	opSubtract    = "subtract"
	opMultiply    = "multiply"
	opDivide      = "divide"
	opMultiply288 = "multiply288"
	opAlign288    = "align288"
	opFilter      = "filter"
)

type filterPayload struct {
	Month int        `json:"month"`
	Start string     `json:"start"`
	End   string     `json:"end"`
	Range *[2]string `json:"range"`
}

func (p filterPayload) build() (interval.Filter, error) {
	var f interval.Filter
	if p.Month < 0 || p.Month > 12 {
		return f, errors.New("month must be 1-12")
	}
	f.Month = time.Month(p.Month)
	var err error
	if f.Start, err = parseTimeValue("start", p.Start); err != nil {
		return f, err
	}
	if f.End, err = parseTimeValue("end", p.End); err != nil {
		return f, err
	}
	if p.Range != nil {
		lo, err := parseTimeValue("range[0]", p.Range[0])
		if err != nil {
			return f, err
		}
		hi, err := parseTimeValue("range[1]", p.Range[1])
		if err != nil {
			return f, err
		}
		f.Range = &[2]time.Time{lo, hi}
	}
	return f, nil
}

type intervalOpRequest struct {
	Op     string          `json:"op"`
	Column string          `json:"column"`
	Unit   string          `json:"unit"`
	Series []seriesPayload `json:"series"`
	Grid   *gridPayload    `json:"grid"`
	Filter *filterPayload  `json:"filter"`
	Scalar *float64        `json:"scalar"`
}

type intervalOpResponse struct {
	Name          string           `json:"name"`
	Data          interval.Columns `json:"data"`
	PeriodMinutes *float64         `json:"period_minutes"`
	TimeDomain    []string         `json:"time_domain"`
	ValueDomain   []float64        `json:"value_domain"`
	Years         []int            `json:"years"`
}

// IntervalOpsHandler applies one series operation to posted series.
type IntervalOpsHandler struct{}

// NewIntervalOpsHandler constructs an IntervalOpsHandler.
func NewIntervalOpsHandler() *IntervalOpsHandler {
	return &IntervalOpsHandler{}
}

// ServeHTTP handles POST /api/v1/intervals/ops.
func (h *IntervalOpsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req intervalOpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	series, err := buildSeries(req.Series, req.Column, req.Unit)
	if err != nil {
		respondError(w, err)
		return
	}
	result, err := applyOp(req, series)
	if err != nil {
		var bad *badRequestError
		if errors.As(err, &bad) {
			http.Error(w, bad.Error(), http.StatusBadRequest)
			return
		}
		respondError(w, err)
		return
	}

	column, unit := req.Column, req.Unit
	if column == "" {
		column = defaultColumnKey
	}
	if unit == "" {
		unit = defaultUnitKey
	}
	writeJSON(w, http.StatusOK, describe(result, unit, column))
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func applyOp(req intervalOpRequest, series []*interval.Series) (*interval.Series, error) {
	if len(series) == 0 {
		return nil, badRequest("at least one series is required")
	}
	first := series[0]
	switch req.Op {
	case opSubtract:
		if len(series) != 2 {
			return nil, badRequest("subtract needs exactly 2 series")
		}
		return first.Subtract(series[1]), nil
	case opMultiply:
		if req.Scalar != nil {
			if len(series) != 1 {
				return nil, badRequest("scalar multiply takes 1 series")
			}
			return first.Multiply(*req.Scalar), nil
		}
		if len(series) < 2 {
			return nil, badRequest("multiply needs a scalar or at least 2 series")
		}
		return first.MultiplySeries(series[1:]...), nil
	case opDivide:
		if req.Scalar == nil || *req.Scalar == 0 {
			return nil, badRequest("divide needs a non-zero scalar")
		}
		return first.Divide(*req.Scalar), nil
	case opMultiply288, opAlign288:
		if req.Grid == nil {
			return nil, badRequest("%s needs a grid", req.Op)
		}
		grid, err := req.Grid.build()
		if err != nil {
			return nil, err
		}
		if req.Op == opAlign288 {
			return first.Align288(grid), nil
		}
		return first.Multiply288(grid), nil
	case opFilter:
		if req.Filter == nil {
			return nil, badRequest("filter needs filter")
		}
		f, err := req.Filter.build()
		if err != nil {
			return nil, badRequest("%s", err.Error())
		}
		return first.Filter(f), nil
	default:
		return nil, badRequest("unknown op %q", req.Op)
	}
}

func describe(s *interval.Series, unitKey, columnKey string) intervalOpResponse {
	resp := intervalOpResponse{
		Name:  s.Name(),
		Data:  s.Serialize(unitKey, columnKey),
		Years: s.Years(),
	}
	if period, err := s.Period(); err == nil {
		minutes := period.Minutes()
		resp.PeriodMinutes = &minutes
	}
	if first, last, err := s.TimeDomain(); err == nil {
		resp.TimeDomain = []string{formatTime(first), formatTime(last)}
	}
	if lo, hi, err := s.ValueDomain(); err == nil && !math.IsInf(lo, 0) && !math.IsInf(hi, 0) {
		resp.ValueDomain = []float64{lo, hi}
	}
	return resp
}
