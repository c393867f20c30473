package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davetashner/priceowl/internal/listing"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))
}

// ---- Load ----

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadParsesAllFields(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
threshold: 0.8
format: json
sources: [shop-a, shop-b]
stop_words: [promo]
known_brands: [acme]
price_band_percent: 15
price_ceiling: 50000
require_cross_source: true
semantic:
  enabled: false
  model: claude-haiku-4-5
  batch_size: 10
  concurrency: 2
  max_merge_passes: 5
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Threshold)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"shop-a", "shop-b"}, cfg.Sources)
	assert.Equal(t, []string{"promo"}, cfg.StopWords)
	assert.Equal(t, 15.0, cfg.PriceBandPercent)
	require.NotNil(t, cfg.RequireCrossSource)
	assert.True(t, *cfg.RequireCrossSource)
	require.NotNil(t, cfg.Semantic)
	require.NotNil(t, cfg.Semantic.Enabled)
	assert.False(t, *cfg.Semantic.Enabled)
	assert.Equal(t, "claude-haiku-4-5", cfg.Semantic.Model)
	assert.Equal(t, 10, cfg.Semantic.BatchSize)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "threshold: [what")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	enabled := false
	cfg := &Config{
		Threshold: 0.9,
		Format:    "markdown",
		Semantic:  &SemanticConfig{Enabled: &enabled},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))
	assert.Contains(t, buf.String(), "threshold: 0.9")
	assert.Contains(t, buf.String(), "enabled: false")
}

// ---- Validate ----

func TestValidateAcceptsZeroConfig(t *testing.T) {
	assert.NoError(t, Validate(&Config{}))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	err := Validate(&Config{
		Threshold:        1.5,
		Format:           "xml",
		PriceBandPercent: 200,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threshold")
	assert.Contains(t, err.Error(), "format")
	assert.Contains(t, err.Error(), "price_band_percent")
}

func TestValidateSemanticBounds(t *testing.T) {
	err := Validate(&Config{Semantic: &SemanticConfig{BatchSize: -1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "semantic.batch_size")
}

// ---- Merge ----

func TestMergeCLIWins(t *testing.T) {
	fileCfg := &Config{Threshold: 0.9, Sources: []string{"shop-z"}}
	cli := listing.CompareConfig{Threshold: 0.8, Sources: []string{"shop-a"}}

	got := Merge(fileCfg, cli)
	assert.Equal(t, 0.8, got.Threshold)
	assert.Equal(t, []string{"shop-a"}, got.Sources)
}

func TestMergeFileFillsUnsetCLIFields(t *testing.T) {
	fileCfg := &Config{
		Threshold:   0.9,
		KnownBrands: []string{"acme"},
		Semantic:    &SemanticConfig{Model: "claude-haiku-4-5", BatchSize: 10},
	}

	got := Merge(fileCfg, listing.CompareConfig{Semantic: listing.SemanticConfig{Enabled: true}})
	assert.Equal(t, 0.9, got.Threshold)
	assert.Equal(t, []string{"acme"}, got.KnownBrands)
	assert.Equal(t, "claude-haiku-4-5", got.Semantic.Model)
	assert.Equal(t, 10, got.Semantic.BatchSize)
}

func TestMergeAppliesDefaults(t *testing.T) {
	got := Merge(&Config{}, listing.CompareConfig{Semantic: listing.SemanticConfig{Enabled: true}})

	defaults := listing.DefaultCompareConfig()
	assert.Equal(t, listing.DefaultThreshold, got.Threshold)
	assert.Equal(t, defaults.PriceBandPercent, got.PriceBandPercent)
	assert.Equal(t, defaults.PriceCeiling, got.PriceCeiling)
	assert.Equal(t, defaults.Semantic.BatchSize, got.Semantic.BatchSize)
	assert.Equal(t, defaults.Semantic.Concurrency, got.Semantic.Concurrency)
}

func TestMergeFileCanDisableSemantic(t *testing.T) {
	enabled := false
	fileCfg := &Config{Semantic: &SemanticConfig{Enabled: &enabled}}

	got := Merge(fileCfg, listing.CompareConfig{Semantic: listing.SemanticConfig{Enabled: true}})
	assert.False(t, got.Semantic.Enabled)
}

func TestMergeCLINoSemanticWinsOverFile(t *testing.T) {
	enabled := true
	fileCfg := &Config{Semantic: &SemanticConfig{Enabled: &enabled}}

	got := Merge(fileCfg, listing.CompareConfig{Semantic: listing.SemanticConfig{Enabled: false}})
	assert.False(t, got.Semantic.Enabled)
}

func TestMergeRequireCrossSource(t *testing.T) {
	yes := true
	got := Merge(&Config{RequireCrossSource: &yes}, listing.CompareConfig{})
	assert.True(t, got.RequireCrossSource)
}
