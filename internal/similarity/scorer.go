// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

// Package similarity scores pairs of normalized listings. Two strategies
// implement the same interface: a deterministic textual strategy that is
// always available, and a semantic strategy that delegates grouping to a
// language-model collaborator.
package similarity

import "github.com/davetashner/priceowl/internal/listing"

// Scorer estimates how likely two listings are the same product.
type Scorer interface {
	// Score returns a pairwise similarity. Both Score and Confidence are
	// in [0,1].
	Score(a, b listing.NormalizedListing) listing.SimilarityScore

	// Method identifies the strategy.
	Method() listing.Method
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
