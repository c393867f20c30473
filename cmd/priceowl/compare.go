// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/davetashner/priceowl/internal/config"
	"github.com/davetashner/priceowl/internal/engine"
	"github.com/davetashner/priceowl/internal/listing"
	"github.com/davetashner/priceowl/internal/llm"
	"github.com/davetashner/priceowl/internal/output"
)

// Compare-specific flag values.
var (
	compareThreshold   float64
	compareSources     []string
	compareNoSemantic  bool
	compareModel       string
	compareBatchSize   int
	compareConcurrency int
	compareMergePasses int
	compareFormat      string
	compareOutput      string
	comparePriceBand   float64
	compareCrossOnly   bool
)

// compareCmd is the subcommand for comparing listings.
var compareCmd = &cobra.Command{
	Use:   "compare [listings.json]",
	Short: "Compare product listings and rank savings opportunities",
	Long: `Compare reads a JSON array of raw listings (as handed off by a scraper),
groups listings that describe the same product, and prints the groups ranked
by savings opportunity. Reads stdin when no file is given.

Semantic matching uses the Anthropic API and needs ANTHROPIC_API_KEY; without
a key the comparison runs with textual matching only.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().Float64VarP(&compareThreshold, "threshold", "t", 0, "similarity threshold for grouping (0.0-1.0, default 0.75)")
	compareCmd.Flags().StringSliceVarP(&compareSources, "sources", "s", nil, "restrict comparison to these source IDs (comma-separated)")
	compareCmd.Flags().BoolVar(&compareNoSemantic, "no-semantic", false, "disable language-model matching, use textual only")
	compareCmd.Flags().StringVar(&compareModel, "model", "", "override the language model used for semantic matching")
	compareCmd.Flags().IntVar(&compareBatchSize, "batch-size", 0, "listings per semantic grouping request (default 20)")
	compareCmd.Flags().IntVar(&compareConcurrency, "concurrency", 0, "max in-flight semantic requests (default 4)")
	compareCmd.Flags().IntVar(&compareMergePasses, "merge-passes", 0, "max merge passes over semantic batch groups (default 3)")
	compareCmd.Flags().StringVarP(&compareFormat, "format", "f", "", "output format (table, json, markdown; default table)")
	compareCmd.Flags().StringVarP(&compareOutput, "output", "o", "", "output file path (default: stdout)")
	compareCmd.Flags().Float64Var(&comparePriceBand, "price-band", 0, "price-proximity bonus band in percent (default 20)")
	compareCmd.Flags().BoolVar(&compareCrossOnly, "cross-source", false, "fail when fewer than two sources are present")
}

func runCompare(cmd *cobra.Command, args []string) error {
	if compareThreshold != 0 && (compareThreshold <= 0 || compareThreshold > 1) {
		return exitError(ExitInvalidArgs,
			"priceowl: --threshold must be between 0.0 and 1.0 (got %.2f)", compareThreshold)
	}

	fileCfg, err := config.Load(".")
	if err != nil {
		return exitError(ExitInvalidArgs, "priceowl: reading %s (%v)", config.FileName, err)
	}
	if err := config.Validate(fileCfg); err != nil {
		return exitError(ExitInvalidArgs, "priceowl: %v", err)
	}

	formatter, err := resolveFormatter(fileCfg)
	if err != nil {
		return exitError(ExitInvalidArgs, "priceowl: %v", err)
	}

	cfg := config.Merge(fileCfg, compareConfigFromFlags())

	raws, err := readListings(cmd.InOrStdin(), args)
	if err != nil {
		return exitError(ExitInvalidInput, "priceowl: %v", err)
	}

	result, err := engine.New(cfg, buildProvider(cfg)).Run(cmd.Context(), raws)
	if err != nil {
		if errors.Is(err, engine.ErrNoListings) || errors.Is(err, engine.ErrTooFewSources) {
			return exitError(ExitInvalidInput, "priceowl: %v", err)
		}
		return exitError(ExitFailure, "priceowl: comparison failed (%v)", err)
	}

	return writeResult(cmd, formatter, result)
}

// compareConfigFromFlags maps CLI flags onto a CompareConfig. Zero values
// mean "not set" and fall through to file config and defaults in Merge.
func compareConfigFromFlags() listing.CompareConfig {
	return listing.CompareConfig{
		Threshold:          compareThreshold,
		Sources:            compareSources,
		PriceBandPercent:   comparePriceBand,
		RequireCrossSource: compareCrossOnly,
		Semantic: listing.SemanticConfig{
			Enabled:        !compareNoSemantic,
			Model:          compareModel,
			BatchSize:      compareBatchSize,
			Concurrency:    compareConcurrency,
			MaxMergePasses: compareMergePasses,
		},
	}
}

// resolveFormatter picks the output format: flag wins, then config file,
// then the table default.
func resolveFormatter(fileCfg *config.Config) (output.Formatter, error) {
	name := compareFormat
	if name == "" {
		name = fileCfg.Format
	}
	if name == "" {
		name = "table"
	}
	return output.GetFormatter(name)
}

// readListings loads the raw listings from the given file argument, or from
// stdin when no argument (or "-") is given.
func readListings(stdin io.Reader, args []string) ([]listing.RawListing, error) {
	var data []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(args[0]) //nolint:gosec // user-provided path
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", args[0], err)
		}
	}

	var raws []listing.RawListing
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parsing listings: %w", err)
	}
	return raws, nil
}

// buildProvider configures the Anthropic provider when semantic matching is
// enabled. A missing API key downgrades the run to textual-only rather than
// failing it.
func buildProvider(cfg listing.CompareConfig) llm.Provider {
	if !cfg.Semantic.Enabled {
		return nil
	}
	provider, err := llm.NewAnthropicProvider(llm.WithModel(cfg.Semantic.Model))
	if err != nil {
		slog.Warn("semantic matching disabled", "error", err)
		return nil
	}
	return provider
}

// writeResult writes the formatted result to the configured destination.
func writeResult(cmd *cobra.Command, formatter output.Formatter, result *listing.CompareResult) error {
	w := cmd.OutOrStdout()
	if compareOutput != "" {
		f, err := os.Create(compareOutput) //nolint:gosec // user-provided path
		if err != nil {
			return exitError(ExitFailure, "priceowl: creating %s (%v)", compareOutput, err)
		}
		defer f.Close() //nolint:errcheck // best-effort close
		w = f
	}

	if err := formatter.Format(result, w); err != nil {
		return exitError(ExitFailure, "priceowl: writing output (%v)", err)
	}
	return nil
}

// exitCodeError carries a non-zero exit code through cobra's error handling.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string { return e.msg }

// ExitCode returns the exit code for this error.
func (e *exitCodeError) ExitCode() int { return e.code }

// exitError creates an exitCodeError.
func exitError(code int, format string, args ...any) *exitCodeError {
	return &exitCodeError{code: code, msg: fmt.Sprintf(format, args...)}
}
