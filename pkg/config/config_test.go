package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuilder_DefaultsValidate(t *testing.T) {
	assert := assert.New(t)

	cfg, err := NewBuilder(BackendEdge).Build()
	assert.NoError(err)
	assert.NoError(cfg.Validate())
}

func TestBuilder_DetailOutOfRange(t *testing.T) {
	_, err := NewBuilder(BackendEdge).Detail(1.5).Build()
	require.Error(t, err)
}

func TestBuilder_HandDrawnCustomWithoutPresetConflicts(t *testing.T) {
	tremor := 0.2
	_, err := NewBuilder(BackendEdge).
		HandDrawnPresetOption(HandDrawnOff, &tremor, nil, nil, 1).
		Build()
	require.Error(t, err)
}

func TestBuilder_HandDrawnPresetBaseline(t *testing.T) {
	cfg, err := NewBuilder(BackendEdge).
		HandDrawnPresetOption(HandDrawnStrong, nil, nil, nil, 42).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 0.35, cfg.HandDrawn.Tremor)
	assert.Equal(t, 0.80, cfg.HandDrawn.VariableWeights)
	assert.Equal(t, 0.60, cfg.HandDrawn.Tapering)
}

func TestBuilder_HandDrawnCustomOverridesBaseline(t *testing.T) {
	tremor := 0.42
	cfg, err := NewBuilder(BackendEdge).
		HandDrawnPresetOption(HandDrawnSubtle, &tremor, nil, nil, 7).
		Build()
	require.NoError(t, err)
	assert.Equal(t, 0.42, cfg.HandDrawn.Tremor)
	assert.Equal(t, 0.15, cfg.HandDrawn.VariableWeights)
}

func TestPresets_AllValidate(t *testing.T) {
	for _, name := range []string{"line_art", "sketch", "technical", "stippling", "pointillism"} {
		cfg, err := Preset(name)
		require.NoErrorf(t, err, "preset %s", name)
		require.NoErrorf(t, cfg.Validate(), "preset %s", name)
	}
}

func TestPreset_UnknownNameFails(t *testing.T) {
	_, err := Preset("does-not-exist")
	require.Error(t, err)
}

func TestDots_InvalidRadiiRejected(t *testing.T) {
	d := DefaultDotConfig()
	d.MinRadius = 5
	d.MaxRadius = 2
	_, err := NewBuilder(BackendDots).Dots(d).Build()
	require.Error(t, err)
}

func TestCenterline_EvenWindowRejected(t *testing.T) {
	c := DefaultCenterlineConfig()
	c.WindowSize = 16
	_, err := NewBuilder(BackendCenterline).Centerline(c).Build()
	require.Error(t, err)
}

// TestProperty_AnyValidDetailBuilds checks that every detail value within
// the documented range always yields a buildable Config, for any backend.
func TestProperty_AnyValidDetailBuilds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		backend := Backend(rapid.IntRange(0, 3).Draw(t, "backend"))
		detail := rapid.Float64Range(0, 1).Draw(t, "detail")

		cfg, err := NewBuilder(backend).Detail(detail).Build()
		if err != nil {
			t.Fatalf("unexpected build failure: %v", err)
		}
		if cfg.Detail != detail {
			t.Fatalf("detail not preserved: got %f want %f", cfg.Detail, detail)
		}
	})
}

// TestProperty_ConfigHashDeterministic checks that identical configs always
// hash identically, and that changing MasterSeed changes the hash.
func TestProperty_ConfigHashDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seedA := rapid.Uint64().Draw(t, "seedA")
		seedB := rapid.Uint64().Draw(t, "seedB")

		cfgA, err := NewBuilder(BackendEdge).MasterSeed(seedA).Build()
		if err != nil {
			t.Fatal(err)
		}
		cfgA2, err := NewBuilder(BackendEdge).MasterSeed(seedA).Build()
		if err != nil {
			t.Fatal(err)
		}
		if string(cfgA.ConfigHash()) != string(cfgA2.ConfigHash()) {
			t.Fatal("identical configs hashed differently")
		}
		if seedA != seedB {
			cfgB, err := NewBuilder(BackendEdge).MasterSeed(seedB).Build()
			if err != nil {
				t.Fatal(err)
			}
			if string(cfgA.ConfigHash()) == string(cfgB.ConfigHash()) {
				t.Fatal("different seeds produced identical hashes")
			}
		}
	})
}
