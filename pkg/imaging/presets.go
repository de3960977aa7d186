package imaging

import "math"

// Preset is a named anatomical window in Hounsfield units.
type Preset struct {
	Name   string
	Center float64
	Width  float64
}

// Presets are the standard CT review windows, ordered for deterministic
// reverse lookup.
var Presets = []Preset{
	{Name: "lung", Center: -600, Width: 1500},
	{Name: "bone", Center: 400, Width: 1800},
	{Name: "brain", Center: 40, Width: 80},
	{Name: "abdomen", Center: 60, Width: 400},
	{Name: "mediastinum", Center: 50, Width: 350},
}

// PresetByName returns the named preset.
func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// MatchPreset maps an arbitrary (center, width) pair back to the closest
// preset whose center and width both lie within tolerance. When several
// qualify the closest by combined distance wins.
func MatchPreset(center, width, tolerance float64) (Preset, bool) {
	best := Preset{}
	bestDist := math.Inf(1)
	found := false
	for _, p := range Presets {
		dc := math.Abs(p.Center - center)
		dw := math.Abs(p.Width - width)
		if dc > tolerance || dw > tolerance {
			continue
		}
		if d := dc + dw; d < bestDist {
			best, bestDist, found = p, d, true
		}
	}
	return best, found
}
