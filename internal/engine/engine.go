// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

// Package engine orchestrates one comparison run: source filtering,
// normalization, similarity scoring with fallback, clustering, and
// aggregation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/davetashner/priceowl/internal/aggregate"
	"github.com/davetashner/priceowl/internal/cluster"
	"github.com/davetashner/priceowl/internal/listing"
	"github.com/davetashner/priceowl/internal/llm"
	"github.com/davetashner/priceowl/internal/normalize"
)

var (
	// ErrNoListings is returned when no listings remain after source
	// filtering. There is nothing to compute.
	ErrNoListings = errors.New("no listings to compare")

	// ErrTooFewSources is returned when cross-source comparison was
	// requested but fewer than two distinct sources remain.
	ErrTooFewSources = errors.New("fewer than two sources to compare")
)

// Engine runs comparisons. It is safe for concurrent use: each Run builds
// its own normalizer, coordinator, and scorer, and shares no mutable state.
type Engine struct {
	cfg      listing.CompareConfig
	provider llm.Provider
}

// New builds an Engine. A nil provider disables the semantic strategy; the
// engine then runs textual-only.
func New(cfg listing.CompareConfig, provider llm.Provider) *Engine {
	return &Engine{cfg: cfg, provider: provider}
}

// Run compares raw listings and returns ranked product groups. The result
// is all-or-nothing: a cancelled context returns the context's error, never
// a partial result. Invalid input (nothing to compare) is the only other
// error; collaborator failures degrade to textual scoring and are reported
// through the result's metadata instead.
func (e *Engine) Run(ctx context.Context, raws []listing.RawListing) (*listing.CompareResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	raws = filterSources(raws, e.cfg.Sources)
	if len(raws) == 0 {
		return nil, ErrNoListings
	}
	if e.cfg.RequireCrossSource {
		if n := countSources(raws); n < 2 {
			return nil, fmt.Errorf("%w: got %d", ErrTooFewSources, n)
		}
	}

	slog.Debug("starting comparison run", "run_id", runID, "listings", len(raws))

	normalized, err := normalize.New(e.cfg).All(ctx, raws)
	if err != nil {
		return nil, err
	}
	normalized = normalize.Dedupe(normalized)

	scorer, method, fallback, err := NewCoordinator(e.provider, e.cfg).Scorer(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups := cluster.Cluster(normalized, scorer, e.cfg.Threshold)
	ranked := aggregate.All(groups)

	result := &listing.CompareResult{
		RunID:            runID,
		Groups:           ranked,
		TotalListings:    len(normalized),
		GroupCount:       len(ranked),
		Method:           method,
		FallbackOccurred: fallback,
		Summary:          aggregate.Summary(ranked),
		Duration:         time.Since(start),
	}

	slog.Info("comparison run finished",
		"run_id", runID,
		"listings", result.TotalListings,
		"groups", result.GroupCount,
		"method", result.Method,
		"fallback", result.FallbackOccurred,
		"duration", result.Duration)

	return result, nil
}

// filterSources drops listings outside the allowed source set. An empty set
// allows everything.
func filterSources(raws []listing.RawListing, sources []string) []listing.RawListing {
	if len(sources) == 0 {
		return raws
	}
	allowed := make(map[string]bool, len(sources))
	for _, s := range sources {
		allowed[s] = true
	}

	var out []listing.RawListing
	for _, r := range raws {
		if allowed[r.SourceID] {
			out = append(out, r)
		}
	}
	return out
}

// countSources returns the number of distinct source IDs.
func countSources(raws []listing.RawListing) int {
	seen := make(map[string]bool, len(raws))
	for _, r := range raws {
		seen[r.SourceID] = true
	}
	return len(seen)
}
