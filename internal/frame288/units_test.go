package frame288

import "testing"

func TestChooseScale(t *testing.T) {
	cases := []struct {
		lo, hi float64
		want   Scale
	}{
		{lo: -10, hi: 750, want: Scale{Factor: 1, Unit: "kW"}},
		{lo: -10000, hi: 750000, want: Scale{Factor: 1000, Unit: "MW"}},
		{lo: -10000000, hi: 750, want: Scale{Factor: 1000000, Unit: "GW"}},
		{lo: 10000000, hi: 10000001, want: Scale{Factor: 1000000, Unit: "GW"}},
		{lo: 0, hi: 0, want: Scale{Factor: 1, Unit: "kW"}},
		{lo: 0, hi: 999.99, want: Scale{Factor: 1, Unit: "kW"}},
		{lo: -1000, hi: 0, want: Scale{Factor: 1000, Unit: "MW"}},
	}
	for _, tc := range cases {
		got := ChooseScale(tc.lo, tc.hi)
		if got != tc.want {
			t.Fatalf("ChooseScale(%v, %v): expected %+v, got %+v", tc.lo, tc.hi, tc.want, got)
		}
	}
}

func TestGridScaled(t *testing.T) {
	g := FromValues(Values{}, WithName("pv"), WithUnits("kW")).Map(func(float64) float64 { return 2500 })

	scaled, scale := g.Scaled()
	if scale.Unit != "MW" || scale.Factor != 1000 {
		t.Fatalf("expected MW scale, got %+v", scale)
	}
	if scaled.Units() != "MW" || scaled.Name() != "pv" {
		t.Fatalf("unexpected scaled metadata: %q %q", scaled.Name(), scaled.Units())
	}
	if v, _ := scaled.ValueByMonthHour(12, 23); v != 2.5 {
		t.Fatalf("expected 2.5, got %v", v)
	}
}
