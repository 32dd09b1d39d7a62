package core

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/orrery/model"
)

func TestStaticOrbit_NoChange(t *testing.T) {
	m := NewOrbitModel(model.CelestialBodyConfig{Name: "still", Radius: 1, OrbitDistance: 3}, DefaultScaleFactor)
	first := m.PositionAt(0)
	for _, d := range []time.Duration{time.Second, time.Hour, 1000 * time.Hour} {
		if got := m.PositionAt(d); got != first {
			t.Fatalf("static orbit moved at %s: %+v != %+v", d, got, first)
		}
	}
	if first != (Vec3{X: 30}) {
		t.Fatalf("static orbit position = %+v, want (30,0,0)", first)
	}
}

func TestZeroDistanceStaysAtCentre(t *testing.T) {
	m := NewOrbitModel(model.CelestialBodyConfig{Name: "centre", Radius: 1, OrbitSpeed: 0.5}, DefaultScaleFactor)
	for _, d := range []time.Duration{0, 3 * time.Second, time.Minute} {
		if got := m.PositionAt(d); got != (Vec3{}) {
			t.Fatalf("PositionAt(%s) = %+v, want origin", d, got)
		}
	}
}

func TestCircularOrbitRadiusInvariant(t *testing.T) {
	speeds := []float64{0.001, 0.004, 0.01, 0.04, 1.3}
	distances := []float64{1.39, 2, 10.58, 31.05}
	for _, s := range speeds {
		for _, d := range distances {
			m := NewOrbitModel(model.CelestialBodyConfig{Name: "b", Radius: 1, OrbitDistance: d, OrbitSpeed: s}, DefaultScaleFactor)
			for ms := int64(0); ms < 5_000_000; ms += 77_777 {
				pos := m.PositionAt(time.Duration(ms) * time.Millisecond)
				if got := pos.DistanceTo(Vec3{}); !almostEqual(got, d*DefaultScaleFactor, 1e-9) {
					t.Fatalf("speed=%v dist=%v t=%dms |pos|=%v, want %v", s, d, ms, got, d*DefaultScaleFactor)
				}
				if pos.Y != 0 {
					t.Fatalf("orbit left the ecliptic: %+v", pos)
				}
			}
		}
	}
}

func TestCircularOrbitPeriodic(t *testing.T) {
	o := CircularOrbit{Radius: 20, AngularSpeed: 0.01}
	period := o.Period()
	for _, start := range []time.Duration{0, 13 * time.Second, 17 * time.Minute} {
		a := o.PositionAt(start)
		b := o.PositionAt(start + period)
		if !vecAlmostEqual(a, b, 1e-6) {
			t.Fatalf("position not periodic from %s: %+v vs %+v", start, a, b)
		}
	}
	if (CircularOrbit{Radius: 1}).Period() != 0 {
		t.Fatalf("stationary orbit should report zero period")
	}
}

func TestSingleBodyQuarterTurn(t *testing.T) {
	cfg := model.CelestialBodyConfig{Name: "Earth", Radius: 0.09149, OrbitDistance: 2, OrbitSpeed: 0.01}
	m := NewOrbitModel(cfg, DefaultScaleFactor)

	if got := m.PositionAt(0); !vecAlmostEqual(got, Vec3{X: 20}, eps) {
		t.Fatalf("t=0 position = %+v, want (20,0,0)", got)
	}

	quarterSeconds := math.Pi / 2 / 0.01
	quarter := time.Duration(quarterSeconds * float64(time.Second))
	if got := m.PositionAt(quarter); !vecAlmostEqual(got, Vec3{Z: 20}, 1e-6) {
		t.Fatalf("quarter-turn position = %+v, want (0,0,20)", got)
	}
}

func TestPivotAngle(t *testing.T) {
	if got := PivotAngle(0.005, 0); got != 0 {
		t.Fatalf("PivotAngle at frame 0 = %v", got)
	}
	if got := PivotAngle(0.005, 200); !almostEqual(got, 1, eps) {
		t.Fatalf("PivotAngle at frame 200 = %v, want 1", got)
	}
	// Wraps rather than growing without bound.
	if got := PivotAngle(0.005, 10_000_000); got < 0 || got >= 2*math.Pi {
		t.Fatalf("PivotAngle not wrapped: %v", got)
	}
}
