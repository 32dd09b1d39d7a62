package kb

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/signalsfoundry/orrery/model"
)

func planet(name string, radius float64) model.CelestialBodyConfig {
	return model.CelestialBodyConfig{Name: name, Radius: radius, OrbitDistance: 2, OrbitSpeed: 0.01}
}

func TestAddAndGetBody(t *testing.T) {
	c := NewCatalog()
	if err := c.AddBody(planet("Earth", 0.09149)); err != nil {
		t.Fatalf("AddBody error: %v", err)
	}
	got, ok := c.Body("Earth")
	if !ok || got.Radius != 0.09149 {
		t.Fatalf("Body returned %#v (ok=%v), want radius 0.09149", got, ok)
	}
}

func TestAddBodyDuplicate(t *testing.T) {
	c := NewCatalog()
	if err := c.AddBody(planet("Mars", 0.04868)); err != nil {
		t.Fatalf("first AddBody error: %v", err)
	}
	if err := c.AddBody(planet("Mars", 0.05)); !errors.Is(err, ErrBodyExists) {
		t.Fatalf("duplicate AddBody err = %v, want ErrBodyExists", err)
	}
}

func TestAddBodyValidation(t *testing.T) {
	cases := []struct {
		name string
		body model.CelestialBodyConfig
	}{
		{"empty name", model.CelestialBodyConfig{Radius: 1}},
		{"zero radius", model.CelestialBodyConfig{Name: "a"}},
		{"negative radius", model.CelestialBodyConfig{Name: "a", Radius: -1}},
		{"nan radius", model.CelestialBodyConfig{Name: "a", Radius: math.NaN()}},
		{"negative distance", model.CelestialBodyConfig{Name: "a", Radius: 1, OrbitDistance: -2}},
		{"negative speed", model.CelestialBodyConfig{Name: "a", Radius: 1, OrbitSpeed: -0.1}},
		{"offset star", model.CelestialBodyConfig{Name: "a", Radius: 1, Kind: model.KindStar, OrbitDistance: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCatalog()
			if err := c.AddBody(tc.body); !errors.Is(err, ErrInvalidBody) {
				t.Fatalf("AddBody err = %v, want ErrInvalidBody", err)
			}
			if c.Len() != 0 {
				t.Fatalf("rejected body was stored")
			}
		})
	}
}

func TestStationaryBodyIsValid(t *testing.T) {
	c := NewCatalog()
	b := planet("Still", 1)
	b.OrbitSpeed = 0
	if err := c.AddBody(b); err != nil {
		t.Fatalf("AddBody with zero speed: %v", err)
	}
}

func TestSingleStar(t *testing.T) {
	c := NewCatalog()
	sun := model.CelestialBodyConfig{Name: "Sun", Kind: model.KindStar, Radius: 5}
	if err := c.AddBody(sun); err != nil {
		t.Fatalf("AddBody(sun): %v", err)
	}
	other := sun
	other.Name = "Sun2"
	if err := c.AddBody(other); !errors.Is(err, ErrInvalidBody) {
		t.Fatalf("second star err = %v, want ErrInvalidBody", err)
	}
	got, ok := c.Star()
	if !ok || got.Name != "Sun" {
		t.Fatalf("Star() = %#v, %v", got, ok)
	}
}

func TestAddSatelliteParentValidation(t *testing.T) {
	c := NewCatalog()
	moon := model.SatelliteConfig{Name: "Moon", Parent: "Earth", Radius: 0.015, DistanceFromParent: 0.2, OrbitSpeed: 0.005}
	if err := c.AddSatellite(moon); !errors.Is(err, ErrParentNotFound) {
		t.Fatalf("AddSatellite err = %v, want ErrParentNotFound", err)
	}

	if err := c.AddBody(planet("Earth", 0.09149)); err != nil {
		t.Fatalf("AddBody error: %v", err)
	}
	if err := c.AddSatellite(moon); err != nil {
		t.Fatalf("AddSatellite error: %v", err)
	}
	if err := c.AddBody(planet("Moon", 1)); !errors.Is(err, ErrBodyExists) {
		t.Fatalf("body reusing satellite name err = %v, want ErrBodyExists", err)
	}
	if got := c.Satellites(); len(got) != 1 || got[0].Parent != "Earth" {
		t.Fatalf("Satellites() = %#v", got)
	}
}

func TestBodiesKeepInsertionOrder(t *testing.T) {
	c := NewCatalog()
	names := []string{"Mercury", "Venus", "Earth", "Mars"}
	for _, n := range names {
		if err := c.AddBody(planet(n, 1)); err != nil {
			t.Fatalf("AddBody(%s): %v", n, err)
		}
	}
	got := c.Bodies()
	for i, b := range got {
		if b.Name != names[i] {
			t.Fatalf("Bodies()[%d] = %s, want %s", i, b.Name, names[i])
		}
	}
}

func TestFreezeRejectsWrites(t *testing.T) {
	c := NewCatalog()
	c.Freeze()
	if !c.Frozen() {
		t.Fatalf("Frozen() = false after Freeze")
	}
	if err := c.AddBody(planet("Late", 1)); !errors.Is(err, ErrCatalogFrozen) {
		t.Fatalf("AddBody after Freeze err = %v, want ErrCatalogFrozen", err)
	}
}

func TestBodiesReturnsCopies(t *testing.T) {
	c := NewCatalog()
	if err := c.AddBody(planet("Earth", 1)); err != nil {
		t.Fatalf("AddBody: %v", err)
	}
	bodies := c.Bodies()
	bodies[0].Radius = 99
	if got, _ := c.Body("Earth"); got.Radius != 1 {
		t.Fatalf("catalog entry mutated through snapshot: radius=%v", got.Radius)
	}
}

func TestCatalogConcurrentAdds(t *testing.T) {
	c := NewCatalog()
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.AddBody(planet(fmt.Sprintf("b-%d", i), 1))
		}(i)
	}
	wg.Wait()
	if got := c.Len(); got != 32 {
		t.Fatalf("Len() = %d, want 32", got)
	}
}
