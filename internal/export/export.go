package export

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"der-explorer/internal/frame288"
	"der-explorer/internal/interval"
	"der-explorer/internal/observability/metrics"
)

// ErrNilInput is returned when there is nothing to render.
var ErrNilInput = errors.New("export: nil input")

const (
	FormatGridXLSX   = "grid_xlsx"
	FormatGridPDF    = "grid_pdf"
	FormatSeriesXLSX = "series_xlsx"
)

var monthNames = [frame288.Months]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// GridXLSX renders a grid as a 12x24 sheet plus a summary sheet.
func GridXLSX(grid *frame288.Grid) (out []byte, err error) {
	start := time.Now()
	defer func() { observe(FormatGridXLSX, start, err) }()
	if grid == nil {
		return nil, ErrNilInput
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	gridSheet := "grid"
	summarySheet := "summary"
	if err := f.SetSheetName("Sheet1", gridSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(gridSheet, "A1", "Month")
	for h := 0; h < frame288.Hours; h++ {
		_ = f.SetCellValue(gridSheet, cell(h+2, 1), fmt.Sprintf("%02d:00", h))
	}
	values := grid.Values()
	for m := 0; m < frame288.Months; m++ {
		row := m + 2
		_ = f.SetCellValue(gridSheet, cell(1, row), monthNames[m])
		for h := 0; h < frame288.Hours; h++ {
			_ = f.SetCellValue(gridSheet, cell(h+2, row), values[m][h])
		}
	}

	lo, hi := grid.Range()
	_ = f.SetCellValue(summarySheet, "A1", "Name")
	_ = f.SetCellValue(summarySheet, "B1", grid.Name())
	_ = f.SetCellValue(summarySheet, "A2", "Units")
	_ = f.SetCellValue(summarySheet, "B2", grid.Units())
	_ = f.SetCellValue(summarySheet, "A3", "Min")
	_ = f.SetCellValue(summarySheet, "B3", lo)
	_ = f.SetCellValue(summarySheet, "A4", "Max")
	_ = f.SetCellValue(summarySheet, "B4", hi)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GridPDF renders a grid as a landscape table, scaled to the largest power
// unit that keeps the peak at or above one.
func GridPDF(grid *frame288.Grid) (out []byte, err error) {
	start := time.Now()
	defer func() { observe(FormatGridPDF, start, err) }()
	if grid == nil {
		return nil, ErrNilInput
	}
	scaled, scale := grid.Scaled()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	title := grid.Name()
	if title == "" {
		title = "288 Grid"
	}
	pdf.Cell(0, 8, title)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	lo, hi := scaled.Range()
	pdf.Cell(0, 6, fmt.Sprintf("Units: %s   Min: %.3f   Max: %.3f", scale.Unit, lo, hi))
	pdf.Ln(8)

	const monthWidth, hourWidth = 13.0, 11.0
	pdf.SetFont("Arial", "B", 6)
	pdf.CellFormat(monthWidth, 5, "Month", "1", 0, "C", false, 0, "")
	for h := 0; h < frame288.Hours; h++ {
		pdf.CellFormat(hourWidth, 5, fmt.Sprintf("%02d", h), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 6)
	values := scaled.Values()
	for m := 0; m < frame288.Months; m++ {
		pdf.CellFormat(monthWidth, 5, monthNames[m], "1", 0, "C", false, 0, "")
		for h := 0; h < frame288.Hours; h++ {
			pdf.CellFormat(hourWidth, 5, fmt.Sprintf("%.2f", values[m][h]), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SeriesXLSX renders one or more series side by side, one row per sample of
// the alignment. Cells of series with no sample at that timestamp stay empty.
func SeriesXLSX(series ...*interval.Series) (out []byte, err error) {
	start := time.Now()
	defer func() { observe(FormatSeriesXLSX, start, err) }()
	if len(series) == 0 {
		return nil, ErrNilInput
	}
	for _, s := range series {
		if s == nil {
			return nil, ErrNilInput
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := "series"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", "Timestamp")
	for i, s := range series {
		name := s.Name()
		if name == "" {
			name = fmt.Sprintf("series_%d", i+1)
		}
		_ = f.SetCellValue(sheet, cell(i+2, 1), name)
	}
	for r, group := range interval.Align(series...) {
		row := r + 2
		_ = f.SetCellValue(sheet, cell(1, row), group.Timestamp.Format(time.RFC3339))
		for i, member := range group.Members {
			if member != nil {
				_ = f.SetCellValue(sheet, cell(i+2, row), member.Value())
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}

func observe(format string, start time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(format, result, time.Since(start))
}
