package refine

import (
	"testing"

	"github.com/go-vectorize/vectorize/pkg/config"
	"github.com/go-vectorize/vectorize/pkg/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidRaster(w, h int, r, g, b uint8) *raster.Raster {
	pix := make([]uint8, 4*w*h)
	for i := 0; i < w*h; i++ {
		pix[4*i], pix[4*i+1], pix[4*i+2], pix[4*i+3] = r, g, b, 255
	}
	rr, err := raster.NewRaster(w, h, pix)
	if err != nil {
		panic(err)
	}
	return rr
}

func TestAnalyze_IdenticalRastersHaveNoKeptTiles(t *testing.T) {
	original := solidRaster(64, 64, 100, 150, 200)
	rasterized := solidRaster(64, 64, 100, 150, 200)
	cfg := config.DefaultRefineConfig()
	tiles := Analyze(original, rasterized, cfg)
	assert.Empty(t, tiles)
}

func TestAnalyze_DivergentRastersProduceSortedPriority(t *testing.T) {
	original := solidRaster(64, 64, 10, 10, 10)
	rasterized := solidRaster(64, 64, 240, 240, 240)
	cfg := config.DefaultRefineConfig()
	tiles := Analyze(original, rasterized, cfg)
	require.NotEmpty(t, tiles)
	for i := 1; i < len(tiles); i++ {
		assert.GreaterOrEqual(t, tiles[i-1].Priority, tiles[i].Priority)
	}
	assert.LessOrEqual(t, len(tiles), cfg.MaxTilesPerIteration)
}

func TestAnalyze_PartialTileDroppedIfTooSmall(t *testing.T) {
	original := solidRaster(34, 34, 0, 0, 0)
	rasterized := solidRaster(34, 34, 255, 255, 255)
	cfg := config.DefaultRefineConfig()
	cfg.TileSize = 32
	tiles := AllTiles(original, rasterized, cfg)
	// 34 = 32 + 2; the trailing 2px strip is dropped (< 4x4), leaving a
	// single full 32x32 tile.
	assert.Len(t, tiles, 1)
}

func TestRun_DisabledReturnsInputUnchanged(t *testing.T) {
	cfg := config.DefaultRefineConfig()
	cfg.Enabled = false
	paths := []raster.SvgPath{{Kind: raster.PathFill, Polyline: &raster.Polyline{Points: []raster.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}}}
	result := Run(nil, paths, 10, 10, cfg)
	assert.True(t, result.Converged)
	assert.Equal(t, paths, result.Paths)
}

func TestRun_ConvergesWhenNoTilesNeedRepair(t *testing.T) {
	original := solidRaster(20, 20, 255, 255, 255)
	cfg := config.DefaultRefineConfig()
	cfg.Enabled = true
	cfg.MaxIterations = 2
	result := Run(original, nil, 20, 20, cfg)
	assert.True(t, result.Converged)
	assert.NotEmpty(t, result.Reason)
}

func TestRun_StopsWithinMaxIterations(t *testing.T) {
	original := solidRaster(64, 64, 255, 0, 0)
	fill := &raster.Color{B: 255}
	paths := []raster.SvgPath{{
		Kind:      raster.PathFill,
		Polyline:  &raster.Polyline{Points: []raster.Point{{X: 0, Y: 0}, {X: 64, Y: 0}, {X: 64, Y: 64}, {X: 0, Y: 64}}},
		FillColor: fill,
		Opacity:   1,
	}}
	cfg := config.DefaultRefineConfig()
	cfg.Enabled = true
	cfg.MaxIterations = 2
	cfg.MaxTimeMs = 5000
	result := Run(original, paths, 64, 64, cfg)
	assert.LessOrEqual(t, result.Iterations, cfg.MaxIterations)
	assert.NotEmpty(t, result.Reason)
}

func TestChooseAction_LowSSIMPicksSplitRegion(t *testing.T) {
	assert.Equal(t, SplitRegion, chooseAction(TileError{SSIM: 0.5}))
}

func TestChooseAction_HighSSIMHighDeltaEPicksUpgradeFill(t *testing.T) {
	assert.Equal(t, UpgradeFill, chooseAction(TileError{SSIM: 0.95, DeltaEAvg: 10}))
}

func TestChooseAction_DefaultPicksAddControlPoint(t *testing.T) {
	assert.Equal(t, AddControlPoint, chooseAction(TileError{SSIM: 0.88, DeltaEAvg: 5}))
}

func TestSplitPolygon_ProducesTwoValidHalves(t *testing.T) {
	pts := []raster.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	a, b := splitPolygon(pts)
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.GreaterOrEqual(t, len(a), 3)
	assert.GreaterOrEqual(t, len(b), 3)
}
