// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package similarity

import (
	"fmt"
	"strings"

	"github.com/davetashner/priceowl/internal/listing"
)

// Score component weights. They sum to 1.0 so a perfect name overlap with
// both bonuses lands exactly at the top of the scale and no single bonus is
// swallowed by clamping.
const (
	// overlapWeight scales the token-overlap ratio.
	overlapWeight = 0.75

	// brandBonus is added when both listings carry the same non-empty brand.
	brandBonus = 0.15

	// priceBonus is added when both prices fall within the configured band.
	priceBonus = 0.10
)

// Textual is the deterministic similarity strategy. It combines token-set
// overlap of the canonical names with a brand-match bonus and a
// price-proximity bonus. Score(a,b) == Score(b,a) always holds.
type Textual struct {
	bandPercent float64
}

// NewTextual builds the textual strategy from the comparison config.
func NewTextual(cfg listing.CompareConfig) *Textual {
	band := cfg.PriceBandPercent
	if band <= 0 {
		band = listing.DefaultCompareConfig().PriceBandPercent
	}
	return &Textual{bandPercent: band}
}

// Method implements Scorer.
func (t *Textual) Method() listing.Method { return listing.MethodTextual }

// Score implements Scorer. Confidence is 1.0 for an exact canonical-name and
// brand match, otherwise the name-overlap ratio.
func (t *Textual) Score(a, b listing.NormalizedListing) listing.SimilarityScore {
	overlap := nameOverlap(a.CanonicalName, b.CanonicalName)

	score := overlap * overlapWeight
	var notes []string
	notes = append(notes, fmt.Sprintf("token overlap %.2f", overlap))

	if a.Brand != "" && a.Brand == b.Brand {
		score += brandBonus
		notes = append(notes, "brand match")
	}
	if t.withinPriceBand(a.Price, b.Price) {
		score += priceBonus
		notes = append(notes, "prices within band")
	}

	confidence := overlap
	if a.CanonicalName != "" && a.CanonicalName == b.CanonicalName && a.Brand == b.Brand {
		confidence = 1.0
	}

	return listing.SimilarityScore{
		Score:      clamp01(score),
		Confidence: clamp01(confidence),
		Method:     listing.MethodTextual,
		Rationale:  strings.Join(notes, ", "),
	}
}

// withinPriceBand reports whether two prices are within bandPercent of the
// higher one. Unpriced listings never earn the bonus.
func (t *Textual) withinPriceBand(a, b *float64) bool {
	if a == nil || b == nil {
		return false
	}
	lo, hi := *a, *b
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi <= 0 {
		return false
	}
	return (hi-lo)/hi*100 <= t.bandPercent
}

// nameOverlap measures token-set overlap between two canonical names in
// [0,1]. A token also counts as matched when it appears inside the other
// name with the spaces removed, so that "airmax" and "air max" overlap.
// The measure is symmetric: matched tokens on both sides over total tokens.
func nameOverlap(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := toSet(tokensA)
	setB := toSet(tokensB)
	compactA := strings.ReplaceAll(a, " ", "")
	compactB := strings.ReplaceAll(b, " ", "")

	matched := 0
	for w := range setA {
		if setB[w] || strings.Contains(compactB, w) {
			matched++
		}
	}
	for w := range setB {
		if setA[w] || strings.Contains(compactA, w) {
			matched++
		}
	}

	return float64(matched) / float64(len(setA)+len(setB))
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
