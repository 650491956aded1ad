package quantize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func solidRaster(w, h int, r, g, b uint8) []uint8 {
	pix := make([]uint8, 4*w*h)
	for i := 0; i < w*h; i++ {
		pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = r, g, b, 255
	}
	return pix
}

func TestQuantize_SolidColorYieldsOneCluster(t *testing.T) {
	pix := solidRaster(8, 8, 200, 50, 50)
	palette, out, err := Quantize(pix, 8, 8, 8, 1)
	require.NoError(t, err)
	assert.Len(t, palette, 1)
	assert.Equal(t, pix, out)
}

func TestQuantize_TransparentPixelsIgnored(t *testing.T) {
	pix := solidRaster(4, 4, 10, 10, 10)
	pix[4*0+3] = 0 // first pixel fully transparent
	palette, _, err := Quantize(pix, 4, 4, 4, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, palette)
}

func TestQuantize_AllTransparentFails(t *testing.T) {
	pix := make([]uint8, 4*4*4)
	_, _, err := Quantize(pix, 4, 4, 4, 1)
	require.Error(t, err)
}

func TestQuantize_PaletteNeverExceedsTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.IntRange(2, 6).Draw(t, "w")
		h := rapid.IntRange(2, 6).Draw(t, "h")
		k := rapid.IntRange(1, 8).Draw(t, "k")
		seed := rapid.Uint64().Draw(t, "seed")

		pix := make([]uint8, 4*w*h)
		for i := 0; i < w*h; i++ {
			pix[4*i] = uint8(rapid.IntRange(0, 255).Draw(t, "r"))
			pix[4*i+1] = uint8(rapid.IntRange(0, 255).Draw(t, "g"))
			pix[4*i+2] = uint8(rapid.IntRange(0, 255).Draw(t, "b"))
			pix[4*i+3] = 255
		}

		palette, out, err := Quantize(pix, w, h, k, seed)
		if err != nil {
			t.Fatal(err)
		}
		if len(palette) > k {
			t.Fatalf("palette size %d exceeds target %d", len(palette), k)
		}
		if len(out) != len(pix) {
			t.Fatalf("output length changed: got %d want %d", len(out), len(pix))
		}
		for i := 0; i < w*h; i++ {
			if out[4*i+3] != pix[4*i+3] {
				t.Fatalf("alpha channel mutated at pixel %d", i)
			}
		}
	})
}

func TestQuantize_Deterministic(t *testing.T) {
	pix := solidRaster(6, 6, 1, 2, 3)
	for i := range pix {
		pix[i] += uint8(i % 17)
	}
	p1, o1, err := Quantize(pix, 6, 6, 3, 42)
	require.NoError(t, err)
	p2, o2, err := Quantize(pix, 6, 6, 3, 42)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.Equal(t, o1, o2)
}
