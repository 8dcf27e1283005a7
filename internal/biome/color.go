package biome

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Magikos/Procedural-Planets/pkg/math"
)

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Palette colors.
var (
	Gray  = Color{0.5, 0.5, 0.5, 1}
	White = Color{1, 1, 1, 1}
)

// RGB returns an opaque color.
func RGB(r, g, b float32) Color {
	return Color{r, g, b, 1}
}

// Lerp interpolates component-wise towards other.
func (c Color) Lerp(other Color, t float32) Color {
	return Color{
		R: math.Lerp(c.R, other.R, t),
		G: math.Lerp(c.G, other.G, t),
		B: math.Lerp(c.B, other.B, t),
		A: math.Lerp(c.A, other.A, t),
	}
}

// Array returns the color as a vertex attribute.
func (c Color) Array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// String formats the color as #rrggbbaa.
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", toByte(c.R), toByte(c.G), toByte(c.B), toByte(c.A))
}

// MarshalText encodes the color as hex.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes #rrggbb or #rrggbbaa.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "#")
	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color %q: expected #rrggbb or #rrggbbaa", text)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("invalid color %q: %w", text, err)
	}
	c.R = float32(v>>24&0xff) / 255
	c.G = float32(v>>16&0xff) / 255
	c.B = float32(v>>8&0xff) / 255
	c.A = float32(v&0xff) / 255
	return nil
}

func toByte(v float32) uint8 {
	return uint8(math.Clamp01(v)*255 + 0.5)
}
