package display

import (
	"fmt"
	"math"
)

// Color is an opaque sRGB color.
type Color struct{ R, G, B uint8 }

// Hex renders c as #rrggbb.
func (c Color) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func (c Color) MarshalText() ([]byte, error) { return []byte(c.Hex()), nil }

var (
	ColdColor  = Color{0x21, 0x96, 0xF3}
	MildColor  = Color{0xFF, 0xF1, 0x76}
	HotColor   = Color{0xFF, 0x70, 0x43}
	white      = Color{0xFF, 0xFF, 0xFF}
	fullScaleC = 40.0
)

// Gradient is a vertical background: Top fades into Bottom, both tints of Base.
type Gradient struct {
	Base   Color `json:"base"`
	Top    Color `json:"top"`
	Bottom Color `json:"bottom"`
}

// Background maps a temperature onto the cold → mild → hot scale. 0 °C and
// below is ColdColor, 40 °C and above is HotColor.
func Background(tempC float64) Gradient {
	ratio := tempC / fullScaleC
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	base := lerp(lerp(ColdColor, MildColor, ratio), HotColor, ratio)
	return Gradient{
		Base:   base,
		Top:    lerp(base, white, 0.3),
		Bottom: lerp(base, white, 0.7),
	}
}

func lerp(a, b Color, t float64) Color {
	ch := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return Color{ch(a.R, b.R), ch(a.G, b.G), ch(a.B, b.B)}
}
