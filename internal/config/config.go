// Package config handles .priceowl.yaml configuration files.
package config

// Config represents the contents of a .priceowl.yaml file.
type Config struct {
	Threshold          float64         `yaml:"threshold,omitempty"`
	Format             string          `yaml:"format,omitempty"`
	Sources            []string        `yaml:"sources,omitempty"`
	StopWords          []string        `yaml:"stop_words,omitempty"`
	KnownBrands        []string        `yaml:"known_brands,omitempty"`
	PriceBandPercent   float64         `yaml:"price_band_percent,omitempty"`
	PriceCeiling       float64         `yaml:"price_ceiling,omitempty"`
	RequireCrossSource *bool           `yaml:"require_cross_source,omitempty"`
	Semantic           *SemanticConfig `yaml:"semantic,omitempty"`
}

// SemanticConfig holds the language-model settings in the config file.
type SemanticConfig struct {
	Enabled        *bool  `yaml:"enabled,omitempty"`
	Model          string `yaml:"model,omitempty"`
	BatchSize      int    `yaml:"batch_size,omitempty"`
	Concurrency    int    `yaml:"concurrency,omitempty"`
	MaxMergePasses int    `yaml:"max_merge_passes,omitempty"`
}

// FileName is the expected config file name in the working directory.
const FileName = ".priceowl.yaml"
