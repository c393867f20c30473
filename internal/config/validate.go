package config

import (
	"fmt"
	"strings"

	"github.com/davetashner/priceowl/internal/output"
)

// Validate checks all fields in the config and returns all errors at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Threshold != 0 && (cfg.Threshold <= 0 || cfg.Threshold > 1) {
		errs = append(errs, fmt.Sprintf("threshold: must be in (0, 1], got %g", cfg.Threshold))
	}

	if cfg.Format != "" {
		if _, err := output.GetFormatter(cfg.Format); err != nil {
			errs = append(errs, fmt.Sprintf("format: %v", err))
		}
	}

	if cfg.PriceBandPercent < 0 || cfg.PriceBandPercent > 100 {
		errs = append(errs, fmt.Sprintf("price_band_percent: must be between 0 and 100, got %g", cfg.PriceBandPercent))
	}

	if cfg.PriceCeiling < 0 {
		errs = append(errs, fmt.Sprintf("price_ceiling: must be non-negative, got %g", cfg.PriceCeiling))
	}

	if s := cfg.Semantic; s != nil {
		if s.BatchSize < 0 {
			errs = append(errs, fmt.Sprintf("semantic.batch_size: must be non-negative, got %d", s.BatchSize))
		}
		if s.Concurrency < 0 {
			errs = append(errs, fmt.Sprintf("semantic.concurrency: must be non-negative, got %d", s.Concurrency))
		}
		if s.MaxMergePasses < 0 {
			errs = append(errs, fmt.Sprintf("semantic.max_merge_passes: must be non-negative, got %d", s.MaxMergePasses))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
