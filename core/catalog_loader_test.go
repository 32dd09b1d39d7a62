package core

import (
	"errors"
	"os"
	"testing"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
)

func TestLoadCatalog_SkipsInvalidEntries(t *testing.T) {
	const payload = `{
		"star": {"name": "Sun", "size": 5, "texture": "sun.jpg"},
		"planets": [
			{"name": "Earth", "color": "#0000ff", "size": 0.09149, "distance": 2, "orbit_speed": 0.01},
			{"name": "Ghost", "size": 0, "distance": 3, "orbit_speed": 0.01},
			{"name": "", "size": 1, "distance": 4},
			{"name": "Earth", "size": 1, "distance": 5}
		],
		"satellites": [
			{"name": "Moon", "parent": "Earth", "size": 0.015, "distance_from_planet": 0.2, "orbit_speed": 0.005},
			{"name": "Phobos", "parent": "Mars", "size": 0.01, "distance_from_planet": 0.1}
		]
	}`

	c := kb.NewCatalog()
	report, err := LoadCatalogString(c, payload)
	if err != nil {
		t.Fatalf("LoadCatalog error: %v", err)
	}

	if len(report.Bodies) != 2 || report.Bodies[0] != "Sun" || report.Bodies[1] != "Earth" {
		t.Fatalf("loaded bodies = %v, want [Sun Earth]", report.Bodies)
	}
	if len(report.Satellites) != 1 || report.Satellites[0] != "Moon" {
		t.Fatalf("loaded satellites = %v, want [Moon]", report.Satellites)
	}
	if len(report.Skipped) != 4 {
		t.Fatalf("skipped %d entries, want 4: %+v", len(report.Skipped), report.Skipped)
	}

	wantErrs := map[string]error{
		"Ghost":     kb.ErrInvalidBody,
		"<unnamed>": kb.ErrInvalidBody,
		"Earth":     kb.ErrBodyExists,
		"Phobos":    kb.ErrParentNotFound,
	}
	for _, s := range report.Skipped {
		want, ok := wantErrs[s.Name]
		if !ok {
			t.Fatalf("unexpected skipped entry %q", s.Name)
		}
		if !errors.Is(s.Err, want) {
			t.Fatalf("skip %q err = %v, want %v", s.Name, s.Err, want)
		}
	}

	earth, _ := c.Body("Earth")
	if earth.Color != (model.Color{B: 1}) || earth.OrbitColor != earth.Color {
		t.Fatalf("Earth colours = %+v / %+v", earth.Color, earth.OrbitColor)
	}
	star, ok := c.Star()
	if !ok || star.Kind != model.KindStar {
		t.Fatalf("star not registered: %+v", star)
	}
}

func TestLoadCatalog_MalformedJSON(t *testing.T) {
	if _, err := LoadCatalogString(kb.NewCatalog(), `{"planets": [`); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := LoadCatalogString(kb.NewCatalog(), `{"planets": [], "comets": []}`); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := LoadCatalogString(kb.NewCatalog(), `{"planets": {"name": "x"}}`); err == nil {
		t.Fatalf("expected error for non-array planets")
	}
}

func TestLoadCatalog_MalformedEntriesAreSkipped(t *testing.T) {
	const payload = `{
		"planets": [
			{"name": "Earth", "color": "#0000ff", "size": 0.09149, "distance": 2, "orbit_speed": 0.01},
			{"name": "Mars", "size": "big", "distance": 2.52},
			{"name": "Venus", "size": 1, "distance": 1.72, "color": "blue"},
			{"name": "Pluto", "size": 1, "distance": 40, "mass": 3}
		],
		"satellites": [
			{"name": "Moon", "parent": "Earth", "size": "tiny"},
			{"name": 7, "parent": "Earth"},
			{"name": "Luna", "parent": "Earth", "size": 0.015, "distance_from_planet": 0.2}
		]
	}`

	c := kb.NewCatalog()
	report, err := LoadCatalogString(c, payload)
	if err != nil {
		t.Fatalf("one bad entry must not reject the file: %v", err)
	}
	if len(report.Bodies) != 1 || report.Bodies[0] != "Earth" {
		t.Fatalf("loaded bodies = %v, want [Earth]", report.Bodies)
	}
	if len(report.Satellites) != 1 || report.Satellites[0] != "Luna" {
		t.Fatalf("loaded satellites = %v, want [Luna]", report.Satellites)
	}

	want := []string{"Mars", "Venus", "Pluto", "Moon", "<unnamed>"}
	if len(report.Skipped) != len(want) {
		t.Fatalf("skipped = %+v, want %v", report.Skipped, want)
	}
	for i, s := range report.Skipped {
		if s.Name != want[i] {
			t.Fatalf("skipped[%d] = %q, want %q", i, s.Name, want[i])
		}
		if !errors.Is(s.Err, kb.ErrInvalidBody) {
			t.Fatalf("skip %q err = %v, want ErrInvalidBody", s.Name, s.Err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("catalog Len() = %d, want 2", c.Len())
	}
}

func TestLoadCatalog_BundledConfigMatchesDefault(t *testing.T) {
	f, err := os.Open("../configs/solar_system.json")
	if err != nil {
		t.Fatalf("open bundled catalog: %v", err)
	}
	defer f.Close()

	c := kb.NewCatalog()
	report, err := LoadCatalog(c, f)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(report.Skipped) != 0 {
		t.Fatalf("bundled catalog has invalid entries: %+v", report.Skipped)
	}

	def := DefaultCatalog()
	got, want := c.Bodies(), def.Bodies()
	if len(got) != len(want) {
		t.Fatalf("bundled has %d bodies, default has %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Radius != want[i].Radius ||
			got[i].OrbitDistance != want[i].OrbitDistance || got[i].OrbitSpeed != want[i].OrbitSpeed ||
			got[i].RingTexture != want[i].RingTexture || got[i].Color.Hex() != want[i].Color.Hex() {
			t.Fatalf("body %d differs: bundled %+v, default %+v", i, got[i], want[i])
		}
	}
	if len(c.Satellites()) != len(def.Satellites()) {
		t.Fatalf("satellite count mismatch")
	}
}

func TestDefaultCatalogIsFrozen(t *testing.T) {
	c := DefaultCatalog()
	if !c.Frozen() {
		t.Fatalf("default catalog should be frozen")
	}
	if c.Len() != 10 {
		t.Fatalf("default catalog Len() = %d, want 10", c.Len())
	}
	saturn, ok := c.Body("Saturn")
	if !ok || !saturn.HasRings() {
		t.Fatalf("Saturn should carry a ring texture: %+v", saturn)
	}
}
