package core

import "github.com/signalsfoundry/orrery/model"

// DefaultRingBands is the number of concentric bands in a ring system.
const DefaultRingBands = 50

// GapRange is a closed interval of band fractions that stays empty.
type GapRange struct {
	Start float64
	End   float64
}

// Contains reports whether f lies within the gap, endpoints included.
func (g GapRange) Contains(f float64) bool {
	return f >= g.Start && f <= g.End
}

// DefaultRingGaps approximates the major divisions of a banded ring system.
var DefaultRingGaps = []GapRange{
	{Start: 0.30, End: 0.32},
	{Start: 0.50, End: 0.53},
	{Start: 0.55, End: 0.58},
}

// InGap reports whether f falls in any of gaps.
func InGap(f float64, gaps []GapRange) bool {
	for _, g := range gaps {
		if g.Contains(f) {
			return true
		}
	}
	return false
}

// RingBand is one rendered band of a ring system.
type RingBand struct {
	Index    int
	Fraction float64
	Inner    float64
	Outer    float64
	Opacity  float64
	Color    model.Color
}

// RingBands splits [1.1r, 2r] into n equal-width bands and returns those
// whose fraction i/n is outside every gap. Opacity falls off linearly with
// distance from the planet and lightness rises from 20% to 70%.
func RingBands(radius float64, n int, gaps []GapRange) []RingBand {
	if n <= 0 || radius <= 0 {
		return nil
	}
	inner := radius * 1.1
	outer := radius * 2
	width := (outer - inner) / float64(n)

	bands := make([]RingBand, 0, n)
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n)
		if InGap(f, gaps) {
			continue
		}
		r0 := inner + width*float64(i)
		bands = append(bands, RingBand{
			Index:    i,
			Fraction: f,
			Inner:    r0,
			Outer:    r0 + width,
			Opacity:  0.5 - f*0.4,
			Color:    model.Grey(0.2 + f*0.5),
		})
	}
	return bands
}
