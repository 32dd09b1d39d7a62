package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/signalsfoundry/orrery/kb"
	"github.com/signalsfoundry/orrery/model"
)

// CatalogReport summarises what LoadCatalog accepted and rejected.
type CatalogReport struct {
	Bodies     []string
	Satellites []string
	Skipped    []SkippedEntry
}

// internal JSON shapes – keep them unexported so we're free to evolve them.
// Entries stay raw until each is decoded on its own, so one malformed
// entry cannot take its siblings down with it.
type catalogJSON struct {
	Star       json.RawMessage   `json:"star"`
	Planets    []json.RawMessage `json:"planets"`
	Satellites []json.RawMessage `json:"satellites"`
}

type bodyJSON struct {
	Name        string       `json:"name"`
	Color       *model.Color `json:"color"`
	OrbitColor  *model.Color `json:"orbit_color"`
	Size        float64      `json:"size"`
	Distance    float64      `json:"distance"`
	OrbitSpeed  float64      `json:"orbit_speed"`
	Texture     string       `json:"texture"`
	RingTexture string       `json:"ring_texture"`
}

type satelliteJSON struct {
	Name               string       `json:"name"`
	Parent             string       `json:"parent"`
	Color              *model.Color `json:"color"`
	Size               float64      `json:"size"`
	DistanceFromParent float64      `json:"distance_from_planet"`
	OrbitSpeed         float64      `json:"orbit_speed"`
	Texture            string       `json:"texture"`
}

// LoadCatalog decodes a JSON catalog from r into c. It fails only when the
// document itself is unreadable; entries that cannot be decoded or that
// violate catalog invariants are skipped and listed in the report so the
// rest still loads.
func LoadCatalog(c *kb.Catalog, r io.Reader) (*CatalogReport, error) {
	if c == nil {
		return nil, fmt.Errorf("LoadCatalog: catalog is nil")
	}

	var payload catalogJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadCatalog: decode failed: %w", err)
	}

	report := &CatalogReport{}
	skip := func(name string, err error) {
		report.Skipped = append(report.Skipped, SkippedEntry{Name: entryName(name), Err: err})
	}
	add := func(raw json.RawMessage, kind model.BodyKind) {
		var b bodyJSON
		if err := decodeEntry(raw, &b); err != nil {
			skip(rawEntryName(raw), err)
			return
		}
		cfg := b.toConfig()
		cfg.Kind = kind
		if err := c.AddBody(cfg); err != nil {
			skip(cfg.Name, err)
			return
		}
		report.Bodies = append(report.Bodies, cfg.Name)
	}

	if len(payload.Star) > 0 && string(payload.Star) != "null" {
		add(payload.Star, model.KindStar)
	}
	for _, raw := range payload.Planets {
		add(raw, model.KindPlanet)
	}
	for _, raw := range payload.Satellites {
		var sj satelliteJSON
		if err := decodeEntry(raw, &sj); err != nil {
			skip(rawEntryName(raw), err)
			continue
		}
		cfg := sj.toConfig()
		if err := c.AddSatellite(cfg); err != nil {
			skip(cfg.Name, err)
			continue
		}
		report.Satellites = append(report.Satellites, cfg.Name)
	}
	return report, nil
}

// decodeEntry strictly decodes one catalog entry. Failures wrap
// kb.ErrInvalidBody.
func decodeEntry(raw json.RawMessage, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", kb.ErrInvalidBody, err)
	}
	return nil
}

// rawEntryName recovers the name of an entry that failed to decode, if it
// has a usable one.
func rawEntryName(raw json.RawMessage) string {
	var named struct {
		Name string `json:"name"`
	}
	// Type errors on other fields still leave Name populated.
	_ = json.Unmarshal(raw, &named)
	return named.Name
}

// LoadCatalogString is a convenience wrapper for tests and embedded data.
func LoadCatalogString(c *kb.Catalog, s string) (*CatalogReport, error) {
	return LoadCatalog(c, strings.NewReader(s))
}

func (b bodyJSON) toConfig() model.CelestialBodyConfig {
	cfg := model.CelestialBodyConfig{
		Name:          b.Name,
		Radius:        b.Size,
		OrbitDistance: b.Distance,
		OrbitSpeed:    b.OrbitSpeed,
		Color:         model.White,
		Texture:       b.Texture,
		RingTexture:   b.RingTexture,
	}
	if b.Color != nil {
		cfg.Color = *b.Color
	}
	cfg.OrbitColor = cfg.Color
	if b.OrbitColor != nil {
		cfg.OrbitColor = *b.OrbitColor
	}
	return cfg
}

func (s satelliteJSON) toConfig() model.SatelliteConfig {
	cfg := model.SatelliteConfig{
		Name:               s.Name,
		Parent:             s.Parent,
		Radius:             s.Size,
		DistanceFromParent: s.DistanceFromParent,
		OrbitSpeed:         s.OrbitSpeed,
		Color:              model.White,
		Texture:            s.Texture,
	}
	if s.Color != nil {
		cfg.Color = *s.Color
	}
	return cfg
}

func entryName(name string) string {
	if name == "" {
		return "<unnamed>"
	}
	return name
}

// DefaultCatalog returns the built-in solar system: the Sun, eight planets
// and Earth's Moon.
func DefaultCatalog() *kb.Catalog {
	c := kb.NewCatalog()
	for _, b := range defaultBodies {
		// The built-in table is known-good.
		if err := c.AddBody(b); err != nil {
			panic(fmt.Sprintf("default catalog: %v", err))
		}
	}
	for _, s := range defaultSatellites {
		if err := c.AddSatellite(s); err != nil {
			panic(fmt.Sprintf("default catalog: %v", err))
		}
	}
	c.Freeze()
	return c
}

func planetEntry(name string, color uint32, size, distance, speed float64, texture string) model.CelestialBodyConfig {
	c := model.ColorFromRGB24(color)
	return model.CelestialBodyConfig{
		Name:          name,
		Kind:          model.KindPlanet,
		Radius:        size,
		OrbitDistance: distance,
		OrbitSpeed:    speed,
		Color:         c,
		OrbitColor:    c,
		Texture:       texture,
	}
}

var defaultBodies = func() []model.CelestialBodyConfig {
	saturn := planetEntry("Saturn", 0xf4c542, 0.83626, 10.58, 0.003, "saturn.jpg")
	saturn.RingTexture = "saturn_ring.png"

	return []model.CelestialBodyConfig{
		{
			Name:    "Sun",
			Kind:    model.KindStar,
			Radius:  5,
			Color:   model.ColorFromRGB24(0xffcc33),
			Texture: "sun.jpg",
		},
		planetEntry("Mercury", 0xaaaaaa, 0.03504, 1.39, 0.04, "mercury.jpg"),
		planetEntry("Venus", 0xffd700, 0.08691, 1.72, 0.02, "venus.jpg"),
		planetEntry("Earth", 0x0000ff, 0.09149, 2, 0.01, "earth_daymap.jpg"),
		planetEntry("Mars", 0xff4500, 0.04868, 2.52, 0.008, "mars.jpg"),
		planetEntry("Jupiter", 0xffa500, 1.00398, 6.3, 0.004, "jupiter.jpg"),
		saturn,
		planetEntry("Uranus", 0x4169e1, 0.36422, 20.22, 0.002, "uranus.jpg"),
		planetEntry("Neptune", 0x1e90ff, 0.35359, 31.05, 0.001, "neptune.jpg"),
	}
}()

var defaultSatellites = []model.SatelliteConfig{
	{
		Name:               "Moon",
		Parent:             "Earth",
		Radius:             0.015,
		DistanceFromParent: 0.2,
		OrbitSpeed:         0.005,
		Color:              model.White,
		Texture:            "moon.jpg",
	},
}
