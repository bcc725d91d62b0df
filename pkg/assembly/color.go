package assembly

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultPalette is the color wheel used for newly placed modules.
var DefaultPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// Color is a display color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// ParseColor parses a "#rrggbb" string.
func ParseColor(hex string) (Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("assembly: color %q: %w", hex, err)
	}
	return Color{R: c.R, G: c.G, B: c.B}, nil
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return colorful.Color{R: c.R, G: c.G, B: c.B}.Clamped().Hex()
}

func (c Color) String() string { return c.Hex() }

// MarshalText encodes the color as hex.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes a hex color.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ColorWheel hands out palette colors in turn.
type ColorWheel struct {
	palette []Color
	next    int
}

// NewColorWheel builds a wheel from hex colors. Invalid entries are
// reported; an empty palette falls back to DefaultPalette.
func NewColorWheel(hexes ...string) (*ColorWheel, error) {
	if len(hexes) == 0 {
		hexes = DefaultPalette
	}
	w := &ColorWheel{}
	for _, h := range hexes {
		c, err := ParseColor(h)
		if err != nil {
			return nil, err
		}
		w.palette = append(w.palette, c)
	}
	return w, nil
}

// Next returns the next color of the wheel.
func (w *ColorWheel) Next() Color {
	c := w.palette[w.next%len(w.palette)]
	w.next++
	return c
}

// Give colors a module and makes it visible, the common touch-up after
// placement or extrusion.
func (m *Module) Give(c Color) {
	m.Color = c
	m.Hidden = false
}
