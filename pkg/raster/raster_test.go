package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRaster_RejectsBadDimensions(t *testing.T) {
	_, err := NewRaster(0, 10, nil)
	require.Error(t, err)

	_, err = NewRaster(20000, 10, nil)
	require.Error(t, err)

	_, err = NewRaster(10, 10, make([]uint8, 3))
	require.Error(t, err)
}

func TestRaster_AtSetRoundtrip(t *testing.T) {
	r, err := NewRaster(2, 2, make([]uint8, 16))
	require.NoError(t, err)
	r.Set(1, 1, 10, 20, 30, 40)
	rr, gg, bb, aa := r.At(1, 1)
	assert.Equal(t, uint8(10), rr)
	assert.Equal(t, uint8(20), gg)
	assert.Equal(t, uint8(30), bb)
	assert.Equal(t, uint8(40), aa)
}

func TestRaster_CloneIsIndependent(t *testing.T) {
	r, _ := NewRaster(1, 1, []uint8{1, 2, 3, 4})
	clone := r.Clone()
	clone.Set(0, 0, 9, 9, 9, 9)
	rr, _, _, _ := r.At(0, 0)
	assert.Equal(t, uint8(1), rr)
}

func TestPolyline_LengthAndClosed(t *testing.T) {
	p, err := NewPolyline([]Point{{0, 0}, {3, 4}})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, p.Length(), 1e-9)
	assert.False(t, p.Closed(1e-6))

	loop, _ := NewPolyline([]Point{{0, 0}, {1, 1}, {0, 0}})
	assert.True(t, loop.Closed(1e-6))
}

func TestNewPolyline_RejectsTooFewPoints(t *testing.T) {
	_, err := NewPolyline([]Point{{0, 0}})
	require.Error(t, err)
}

func TestCubicBezier_EvalEndpoints(t *testing.T) {
	c := CubicBezier{P0: Point{0, 0}, P1: Point{1, 1}, P2: Point{2, 1}, P3: Point{3, 0}}
	assert.Equal(t, c.P0, c.Eval(0))
	assert.Equal(t, c.P3, c.Eval(1))
}

func TestCubicBezier_SplitReproducesEndpoints(t *testing.T) {
	c := CubicBezier{P0: Point{0, 0}, P1: Point{1, 2}, P2: Point{3, 2}, P3: Point{4, 0}}
	left, right := c.Split(0.5)
	assert.Equal(t, c.P0, left.P0)
	assert.Equal(t, c.P3, right.P3)
	assert.Equal(t, left.P3, right.P0)
	mid := c.Eval(0.5)
	assert.InDelta(t, mid.X, left.P3.X, 1e-9)
	assert.InDelta(t, mid.Y, left.P3.Y, 1e-9)
}

func TestConvertToFromNRGBA_Roundtrip(t *testing.T) {
	pix := make([]uint8, 4*3*2)
	for i := range pix {
		pix[i] = uint8(i * 7 % 256)
	}
	r, err := NewRaster(3, 2, pix)
	require.NoError(t, err)
	img := r.ToNRGBA()
	back, err := FromNRGBA(img)
	require.NoError(t, err)
	assert.Equal(t, r.Pix, back.Pix)
}

func TestPreprocess_ResizeScalesDown(t *testing.T) {
	pix := make([]uint8, 4*100*50)
	for i := 0; i < 100*50; i++ {
		pix[4*i+3] = 255
	}
	r, err := NewRaster(100, 50, pix)
	require.NoError(t, err)

	res, err := Preprocess(r, PreprocessOptions{MaxImageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Raster.Width)
	assert.Equal(t, 25, res.Raster.Height)
	assert.InDelta(t, 2.0, res.ScaleFactor, 1e-9)
}

func TestPreprocess_BackgroundRemovalZeroesAlpha(t *testing.T) {
	w, h := 10, 10
	pix := make([]uint8, 4*w*h)
	for i := 0; i < w*h; i++ {
		// Uniform near-white background.
		pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = 250, 250, 250, 255
	}
	// A dark foreground blob.
	for y := 3; y < 7; y++ {
		for x := 3; x < 7; x++ {
			i := y*w + x
			pix[4*i], pix[4*i+1], pix[4*i+2] = 10, 10, 10
		}
	}
	r, err := NewRaster(w, h, pix)
	require.NoError(t, err)

	res, err := Preprocess(r, PreprocessOptions{BackgroundRemoval: BackgroundOtsu})
	require.NoError(t, err)

	_, _, _, a := res.Raster.At(0, 0)
	assert.Equal(t, uint8(0), a)
	_, _, _, aFg := res.Raster.At(5, 5)
	assert.Equal(t, uint8(255), aFg)
}

func TestPreprocess_DenoisePreservesAlpha(t *testing.T) {
	w, h := 5, 5
	pix := make([]uint8, 4*w*h)
	for i := 0; i < w*h; i++ {
		pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = uint8(i * 10), uint8(i * 5), uint8(i), 200
	}
	r, err := NewRaster(w, h, pix)
	require.NoError(t, err)

	res, err := Preprocess(r, PreprocessOptions{Denoise: true})
	require.NoError(t, err)
	for i := 0; i < w*h; i++ {
		_, _, _, a := res.Raster.At(i%w, i/w)
		assert.Equal(t, uint8(200), a)
	}
}

func TestAnalyze_SolidImageIsNotPhotographic(t *testing.T) {
	pix := make([]uint8, 4*8*8)
	for i := 0; i < 8*8; i++ {
		pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = 0, 0, 0, 255
	}
	r, _ := NewRaster(8, 8, pix)
	a := Analyze(r)
	assert.True(t, a.Bilevel)
	assert.False(t, a.Photographic)
}
