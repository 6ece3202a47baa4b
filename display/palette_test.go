package display

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackground_Endpoints(t *testing.T) {
	require.Equal(t, ColdColor, Background(0).Base)
	require.Equal(t, ColdColor, Background(-15).Base)
	require.Equal(t, ColdColor, Background(math.NaN()).Base)
	require.Equal(t, HotColor, Background(40).Base)
	require.Equal(t, HotColor, Background(55).Base)
}

func TestBackground_Midpoint(t *testing.T) {
	g := Background(20)
	// lerp(lerp(cold, mild, .5), hot, .5)
	require.Equal(t, Color{0xC8, 0x9A, 0x7C}, g.Base)
}

func TestBackground_Tints(t *testing.T) {
	g := Background(0)
	require.Equal(t, "#2196f3", g.Base.Hex())
	require.Equal(t, Color{0x64, 0xB6, 0xF7}, g.Top)
	require.Equal(t, Color{0xBC, 0xE0, 0xFB}, g.Bottom)
}

func TestColorMarshalText(t *testing.T) {
	b, err := Color{1, 2, 255}.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "#0102ff", string(b))
}
