package kb

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/signalsfoundry/orrery/model"
)

var (
	ErrInvalidBody    = errors.New("invalid body")
	ErrBodyExists     = errors.New("body already exists")
	ErrParentNotFound = errors.New("parent body not found")
	ErrCatalogFrozen  = errors.New("catalog is frozen")
)

// Catalog is the ordered, in-memory body catalog. Entries are validated on
// insert; once frozen the catalog is read-only.
type Catalog struct {
	mu sync.RWMutex

	order      []string
	bodies     map[string]*model.CelestialBodyConfig
	satellites []*model.SatelliteConfig
	names      map[string]struct{}
	star       string

	frozen bool
}

// NewCatalog constructs an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		bodies: make(map[string]*model.CelestialBodyConfig),
		names:  make(map[string]struct{}),
	}
}

// ValidateBody checks the structural invariants of a body entry.
func ValidateBody(b model.CelestialBodyConfig) error {
	if b.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidBody)
	}
	if !positive(b.Radius) {
		return fmt.Errorf("%w: %q radius %v must be positive", ErrInvalidBody, b.Name, b.Radius)
	}
	if !nonNegative(b.OrbitDistance) {
		return fmt.Errorf("%w: %q orbit distance %v must be non-negative", ErrInvalidBody, b.Name, b.OrbitDistance)
	}
	if !nonNegative(b.OrbitSpeed) {
		return fmt.Errorf("%w: %q orbit speed %v must be non-negative", ErrInvalidBody, b.Name, b.OrbitSpeed)
	}
	if b.Kind == model.KindStar && b.OrbitDistance != 0 {
		return fmt.Errorf("%w: star %q must sit at the origin", ErrInvalidBody, b.Name)
	}
	return nil
}

// ValidateSatellite checks the structural invariants of a satellite entry.
func ValidateSatellite(s model.SatelliteConfig) error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty satellite name", ErrInvalidBody)
	}
	if s.Parent == "" {
		return fmt.Errorf("%w: satellite %q has no parent", ErrInvalidBody, s.Name)
	}
	if !positive(s.Radius) {
		return fmt.Errorf("%w: satellite %q radius %v must be positive", ErrInvalidBody, s.Name, s.Radius)
	}
	if !nonNegative(s.DistanceFromParent) {
		return fmt.Errorf("%w: satellite %q distance %v must be non-negative", ErrInvalidBody, s.Name, s.DistanceFromParent)
	}
	if math.IsNaN(s.OrbitSpeed) || math.IsInf(s.OrbitSpeed, 0) {
		return fmt.Errorf("%w: satellite %q orbit speed is not finite", ErrInvalidBody, s.Name)
	}
	return nil
}

// AddBody validates and appends a body. Names are unique across bodies and
// satellites, and at most one star is allowed.
func (c *Catalog) AddBody(b model.CelestialBodyConfig) error {
	if err := ValidateBody(b); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrCatalogFrozen
	}
	if _, exists := c.names[b.Name]; exists {
		return fmt.Errorf("%w: %q", ErrBodyExists, b.Name)
	}
	if b.Kind == model.KindStar && c.star != "" {
		return fmt.Errorf("%w: second star %q (already have %q)", ErrInvalidBody, b.Name, c.star)
	}

	stored := b
	c.bodies[b.Name] = &stored
	c.order = append(c.order, b.Name)
	c.names[b.Name] = struct{}{}
	if b.Kind == model.KindStar {
		c.star = b.Name
	}
	return nil
}

// AddSatellite validates and appends a satellite. The parent must already be
// a non-star body in the catalog.
func (c *Catalog) AddSatellite(s model.SatelliteConfig) error {
	if err := ValidateSatellite(s); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return ErrCatalogFrozen
	}
	if _, exists := c.names[s.Name]; exists {
		return fmt.Errorf("%w: %q", ErrBodyExists, s.Name)
	}
	parent, ok := c.bodies[s.Parent]
	if !ok || parent.Kind == model.KindStar {
		return fmt.Errorf("%w: %q for satellite %q", ErrParentNotFound, s.Parent, s.Name)
	}

	stored := s
	c.satellites = append(c.satellites, &stored)
	c.names[s.Name] = struct{}{}
	return nil
}

// Freeze makes the catalog read-only.
func (c *Catalog) Freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (c *Catalog) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Body returns a copy of the named body.
func (c *Catalog) Body(name string) (model.CelestialBodyConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bodies[name]
	if !ok {
		return model.CelestialBodyConfig{}, false
	}
	return *b, true
}

// Star returns the catalog's light source, if any.
func (c *Catalog) Star() (model.CelestialBodyConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.star == "" {
		return model.CelestialBodyConfig{}, false
	}
	return *c.bodies[c.star], true
}

// Bodies returns copies of all bodies in insertion order.
func (c *Catalog) Bodies() []model.CelestialBodyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]model.CelestialBodyConfig, 0, len(c.order))
	for _, name := range c.order {
		res = append(res, *c.bodies[name])
	}
	return res
}

// Satellites returns copies of all satellites in insertion order.
func (c *Catalog) Satellites() []model.SatelliteConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := make([]model.SatelliteConfig, 0, len(c.satellites))
	for _, s := range c.satellites {
		res = append(res, *s)
	}
	return res
}

// Len returns the number of bodies plus satellites.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order) + len(c.satellites)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
