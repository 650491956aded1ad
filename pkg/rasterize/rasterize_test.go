package rasterize

import (
	"testing"

	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/go-vectorize/vectorize/pkg/svgemit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterize_EmptyDocumentIsAllWhite(t *testing.T) {
	doc := svgemit.Emit(nil, 20, 10, 2)
	r, err := Rasterize(doc, 20, 10)
	require.NoError(t, err)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			rr, gg, bb, aa := r.At(x, y)
			assert.Equal(t, uint8(255), rr)
			assert.Equal(t, uint8(255), gg)
			assert.Equal(t, uint8(255), bb)
			assert.Equal(t, uint8(255), aa)
		}
	}
}

func TestRasterize_FillPathPaintsInterior(t *testing.T) {
	poly := &raster.Polyline{Points: []raster.Point{{X: 2, Y: 2}, {X: 18, Y: 2}, {X: 18, Y: 18}, {X: 2, Y: 18}}}
	paths := []raster.SvgPath{{
		Kind:      raster.PathFill,
		Polyline:  poly,
		FillColor: &raster.Color{R: 255},
		Opacity:   1,
	}}
	doc := svgemit.Emit(paths, 20, 20, 2)
	r, err := Rasterize(doc, 20, 20)
	require.NoError(t, err)
	rr, gg, bb, _ := r.At(10, 10)
	assert.Greater(t, int(rr), int(gg))
	assert.Greater(t, int(rr), int(bb))
}

func TestRasterize_ClampsDimensions(t *testing.T) {
	doc := svgemit.Emit(nil, 10, 10, 0)
	r, err := Rasterize(doc, 0, 100000)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Width)
	assert.Equal(t, 4096, r.Height)
}

func TestRasterize_MalformedDocumentFails(t *testing.T) {
	_, err := Rasterize("not an svg document", 10, 10)
	require.Error(t, err)
}

func TestRasterize_DeterministicAcrossRuns(t *testing.T) {
	poly := &raster.Polyline{Points: []raster.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}}
	paths := []raster.SvgPath{{Kind: raster.PathStroke, Polyline: poly, StrokeColor: &raster.Color{G: 255}, StrokeWidth: 2, Opacity: 1}}
	doc := svgemit.Emit(paths, 10, 10, 2)
	r1, err1 := Rasterize(doc, 10, 10)
	r2, err2 := Rasterize(doc, 10, 10)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, r1.Pix, r2.Pix)
}
