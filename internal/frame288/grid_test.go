package frame288

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func sequentialFrame() map[int][]float64 {
	frame := make(map[int][]float64, Months)
	for month := 1; month <= Months; month++ {
		row := make([]float64, Hours)
		for hour := range row {
			row[hour] = float64(month*100 + hour)
		}
		frame[month] = row
	}
	return frame
}

func mustGrid(t *testing.T, opts ...Option) *Grid {
	t.Helper()
	g, err := New(sequentialFrame(), opts...)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	return g
}

func TestNew_RejectsBadShape(t *testing.T) {
	missing := sequentialFrame()
	delete(missing, 7)

	short := sequentialFrame()
	short[3] = short[3][:23]

	extra := sequentialFrame()
	extra[13] = make([]float64, Hours)

	cases := map[string]map[int][]float64{
		"missing month": missing,
		"short month":   short,
		"extra month":   extra,
		"empty":         {},
	}
	for name, frame := range cases {
		if _, err := New(frame); !errors.Is(err, ErrShape) {
			t.Fatalf("%s: expected ErrShape, got %v", name, err)
		}
	}
}

func TestNew_CopiesInput(t *testing.T) {
	frame := sequentialFrame()
	g, err := New(frame)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	frame[1][0] = -1
	if v, _ := g.ValueByMonthHour(1, 0); v != 100 {
		t.Fatalf("expected grid to keep 100, got %v", v)
	}
}

func TestMonthAndLookup(t *testing.T) {
	g := mustGrid(t)

	row, err := g.Month(12)
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if len(row) != Hours || row[0] != 1200 || row[23] != 1223 {
		t.Fatalf("unexpected december row: %v", row)
	}

	for _, month := range []int{0, 13} {
		if _, err := g.Month(month); !errors.Is(err, ErrIndex) {
			t.Fatalf("month %d: expected ErrIndex, got %v", month, err)
		}
	}
	if _, err := g.ValueByMonthHour(1, 24); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex for hour 24, got %v", err)
	}

	v, err := g.ValueByMonthHour(6, 13)
	if err != nil || v != 613 {
		t.Fatalf("expected 613, got %v (%v)", v, err)
	}
}

func TestValueByDate_UsesCarriedLocation(t *testing.T) {
	g := mustGrid(t)

	utc := time.Date(2020, time.March, 31, 23, 30, 0, 0, time.UTC)
	if v := g.ValueByDate(utc); v != 323 {
		t.Fatalf("expected 323, got %v", v)
	}

	// Same instant in UTC+2 lands in April, hour 1.
	shifted := utc.In(time.FixedZone("UTC+2", 2*60*60))
	if v := g.ValueByDate(shifted); v != 401 {
		t.Fatalf("expected 401, got %v", v)
	}
}

func TestRangeMinMax(t *testing.T) {
	frame := sequentialFrame()
	frame[4][5] = -50
	g, err := New(frame)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	lo, hi := g.Range()
	if lo != -50 || hi != 1223 {
		t.Fatalf("expected [-50, 1223], got [%v, %v]", lo, hi)
	}
	if g.Min() != -50 || g.Max() != 1223 {
		t.Fatalf("unexpected min/max: %v %v", g.Min(), g.Max())
	}
}

func TestTransformsCarryMetadata(t *testing.T) {
	g := mustGrid(t, WithName("load"), WithUnits("kW"))

	doubled := g.Multiply(2)
	if doubled.Name() != "load" || doubled.Units() != "kW" {
		t.Fatalf("expected metadata to carry forward, got %q %q", doubled.Name(), doubled.Units())
	}
	if v, _ := doubled.ValueByMonthHour(2, 3); v != 406 {
		t.Fatalf("expected 406, got %v", v)
	}
	if v, _ := g.ValueByMonthHour(2, 3); v != 203 {
		t.Fatalf("source grid mutated: %v", v)
	}

	halved := g.Divide(2, WithName("half"), WithUnits("MW"))
	if halved.Name() != "half" || halved.Units() != "MW" {
		t.Fatalf("expected overrides, got %q %q", halved.Name(), halved.Units())
	}
	if v, _ := halved.ValueByMonthHour(1, 0); v != 50 {
		t.Fatalf("expected 50, got %v", v)
	}

	renamed := g.Rename("other")
	if renamed.Name() != "other" || renamed.Units() != "kW" || g.Name() != "load" {
		t.Fatalf("unexpected rename result: %q %q (source %q)", renamed.Name(), renamed.Units(), g.Name())
	}
	if renamed.Values() != g.Values() {
		t.Fatalf("rename changed payload")
	}
}

func TestParseAndMarshal(t *testing.T) {
	g := mustGrid(t)
	data, err := g.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	parsed, err := Parse(data, WithName("parsed"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Values() != g.Values() {
		t.Fatalf("payload changed through json")
	}
	if parsed.Name() != "parsed" {
		t.Fatalf("expected name parsed, got %q", parsed.Name())
	}

	if _, err := Parse([]byte(`{"jan": [1]}`)); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
	if _, err := Parse([]byte(`not json`)); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}

	row := "[" + strings.TrimSuffix(strings.Repeat("99,", Hours), ",") + "]"
	padded := append([]byte(`{"01":`+row+`,`), data[1:]...)
	if _, err := Parse(padded); !errors.Is(err, ErrShape) {
		t.Fatalf("expected ErrShape for duplicate month key, got %v", err)
	}
}
