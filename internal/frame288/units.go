package frame288

import "math"

// Scale is a display divisor paired with the unit label it produces.
type Scale struct {
	Factor float64 `json:"factor"`
	Unit   string  `json:"unit"`
}

// Power scales, largest first.
var powerScales = []Scale{
	{Factor: 1_000_000, Unit: "GW"},
	{Factor: 1_000, Unit: "MW"},
	{Factor: 1, Unit: "kW"},
}

// ChooseScale picks the largest unit for which the bigger magnitude of lo and
// hi is at least one whole unit. Values are assumed to be in kW.
func ChooseScale(lo, hi float64) Scale {
	magnitude := math.Max(math.Abs(lo), math.Abs(hi))
	for _, scale := range powerScales {
		if magnitude/scale.Factor >= 1 {
			return scale
		}
	}
	return powerScales[len(powerScales)-1]
}

// Scale returns the display scale for the grid's value range.
func (g *Grid) Scale() Scale {
	return ChooseScale(g.Range())
}

// Scaled divides the grid by its display scale and relabels its units.
func (g *Grid) Scaled() (*Grid, Scale) {
	scale := g.Scale()
	return g.Divide(scale.Factor, WithUnits(scale.Unit)), scale
}
