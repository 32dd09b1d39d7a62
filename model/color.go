package model

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an sRGB colour with components in [0,1].
type Color struct {
	R float64
	G float64
	B float64
}

// White is the default tint for textured and unlit materials.
var White = Color{R: 1, G: 1, B: 1}

// ColorFromHex parses "#rrggbb" (or "rrggbb") into a Color.
func ColorFromHex(s string) (Color, error) {
	if s == "" {
		return Color{}, fmt.Errorf("empty colour")
	}
	if s[0] != '#' {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse colour %q: %w", s, err)
	}
	return Color{R: c.R, G: c.G, B: c.B}, nil
}

// ColorFromRGB24 converts a packed 0xRRGGBB value.
func ColorFromRGB24(v uint32) Color {
	return Color{
		R: float64((v>>16)&0xff) / 255.0,
		G: float64((v>>8)&0xff) / 255.0,
		B: float64(v&0xff) / 255.0,
	}
}

// Grey returns an achromatic colour with the given HSL lightness in [0,1].
func Grey(lightness float64) Color {
	c := colorful.Hsl(0, 0, lightness).Clamped()
	return Color{R: c.R, G: c.G, B: c.B}
}

// Hex formats the colour as "#rrggbb".
func (c Color) Hex() string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

// RGB255 returns the colour as 8-bit channels.
func (c Color) RGB255() (r, g, b uint8) {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().RGB255()
}

// Scale multiplies every channel by f, clamping to [0,1].
func (c Color) Scale(f float64) Color {
	out := colorful.Color{R: c.R * f, G: c.G * f, B: c.B * f}.Clamped()
	return Color{R: out.R, G: out.G, B: out.B}
}

// MarshalText renders the colour as a hex string so catalogs round-trip
// through JSON and YAML.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText accepts "#rrggbb" or "rrggbb".
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ColorFromHex(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
