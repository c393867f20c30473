package config

import "github.com/davetashner/priceowl/internal/listing"

// Merge combines file-based config with CLI-provided CompareConfig.
// CLI values take precedence; zero-value CLI fields fall through to file
// config, and anything still unset keeps the documented defaults.
func Merge(fileCfg *Config, cli listing.CompareConfig) listing.CompareConfig {
	result := cli

	// Threshold: CLI wins if non-zero.
	if result.Threshold == 0 && fileCfg.Threshold > 0 {
		result.Threshold = fileCfg.Threshold
	}
	if result.Threshold == 0 {
		result.Threshold = listing.DefaultThreshold
	}

	if len(result.Sources) == 0 && len(fileCfg.Sources) > 0 {
		result.Sources = fileCfg.Sources
	}
	if len(result.StopWords) == 0 && len(fileCfg.StopWords) > 0 {
		result.StopWords = fileCfg.StopWords
	}
	if len(result.KnownBrands) == 0 && len(fileCfg.KnownBrands) > 0 {
		result.KnownBrands = fileCfg.KnownBrands
	}

	if result.PriceBandPercent == 0 {
		if fileCfg.PriceBandPercent > 0 {
			result.PriceBandPercent = fileCfg.PriceBandPercent
		} else {
			result.PriceBandPercent = listing.DefaultCompareConfig().PriceBandPercent
		}
	}
	if result.PriceCeiling == 0 {
		if fileCfg.PriceCeiling > 0 {
			result.PriceCeiling = fileCfg.PriceCeiling
		} else {
			result.PriceCeiling = listing.DefaultCompareConfig().PriceCeiling
		}
	}

	if !result.RequireCrossSource && fileCfg.RequireCrossSource != nil {
		result.RequireCrossSource = *fileCfg.RequireCrossSource
	}

	result.Semantic = mergeSemantic(fileCfg.Semantic, result.Semantic)
	return result
}

// mergeSemantic applies file-level semantic settings under the CLI's, then
// fills remaining zero values with defaults.
func mergeSemantic(file *SemanticConfig, cli listing.SemanticConfig) listing.SemanticConfig {
	defaults := listing.DefaultCompareConfig().Semantic
	result := cli

	if file != nil {
		// A CLI --no-semantic already set Enabled false; only the file's
		// explicit enabled: false can disable it otherwise.
		if result.Enabled && file.Enabled != nil {
			result.Enabled = *file.Enabled
		}
		if result.Model == "" && file.Model != "" {
			result.Model = file.Model
		}
		if result.BatchSize == 0 && file.BatchSize > 0 {
			result.BatchSize = file.BatchSize
		}
		if result.Concurrency == 0 && file.Concurrency > 0 {
			result.Concurrency = file.Concurrency
		}
		if result.MaxMergePasses == 0 && file.MaxMergePasses > 0 {
			result.MaxMergePasses = file.MaxMergePasses
		}
	}

	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.MaxMergePasses == 0 {
		result.MaxMergePasses = defaults.MaxMergePasses
	}
	return result
}
