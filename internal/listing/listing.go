// Package listing defines the core domain types for priceowl.
package listing

import "time"

// CurrencyUnknown is the currency recorded when no symbol or ISO code could
// be recognized in a raw price string.
const CurrencyUnknown = "UNKNOWN"

// RawListing is one scraped product exactly as reported by the extraction
// collaborator. It is never mutated by this engine.
type RawListing struct {
	SourceID string `json:"source_id"` // Originating site/URL identifier.
	RawName  string `json:"raw_name"`  // Product name as scraped.
	RawPrice string `json:"raw_price"` // Price text, possibly malformed.
	RawBrand string `json:"raw_brand,omitempty"`
	RawURL   string `json:"raw_url,omitempty"`
}

// NormalizedListing is the canonical, comparison-ready form of a RawListing.
// It is produced once by the normalizer and passed by value thereafter.
type NormalizedListing struct {
	SourceID      string `json:"source_id"`
	CanonicalName string `json:"canonical_name"`

	// Brand is the best-effort extracted brand token, empty when unknown.
	// A missing brand never blocks matching.
	Brand string `json:"brand,omitempty"`

	// Price is the parsed price in the listing's currency unit. A nil Price
	// means the raw text could not be parsed under any supported convention;
	// it is distinct from a parsed value of 0, which never occurs because
	// plausible prices are strictly positive.
	Price *float64 `json:"price"`

	// Currency is an ISO code ("EUR", "USD", "GBP") or CurrencyUnknown.
	Currency string `json:"currency"`

	// Original is the raw listing this was derived from, kept for reporting.
	Original RawListing `json:"original"`
}

// Method identifies which similarity strategy produced a score or a group.
type Method string

const (
	// MethodTextual marks results from the deterministic token-overlap strategy.
	MethodTextual Method = "textual"

	// MethodSemantic marks results from the language-model strategy.
	MethodSemantic Method = "semantic"

	// MethodMixed marks a run where a mid-run fallback left some pairs scored
	// semantically and the rest textually.
	MethodMixed Method = "mixed"
)

// SimilarityScore is the ephemeral pairwise result between two normalized
// listings. It is consumed immediately by the clustering engine and never
// persisted.
type SimilarityScore struct {
	// Score estimates, in [0,1], that the two listings are the same product.
	Score float64

	// Confidence is how certain the strategy is about Score, in [0,1].
	// The textual strategy reports 1.0 for an exact name+brand match.
	Confidence float64

	// Method is the strategy that produced this score.
	Method Method

	// Rationale is a short human-readable explanation of the score.
	Rationale string
}

// PairDiff is the price difference between two members of a group.
type PairDiff struct {
	SourceA  string  `json:"source_a"`
	SourceB  string  `json:"source_b"`
	PriceA   float64 `json:"price_a"`
	PriceB   float64 `json:"price_b"`
	Absolute float64 `json:"absolute"`
	Percent  float64 `json:"percent"`
}

// PriceStats summarizes prices within a product group. Only members with a
// non-nil price contribute; PricedCount records how many did.
type PriceStats struct {
	Min         float64    `json:"min"`
	Max         float64    `json:"max"`
	Average     float64    `json:"average"`
	Variance    float64    `json:"variance"`
	PricedCount int        `json:"priced_count"`
	PairDiffs   []PairDiff `json:"pair_diffs,omitempty"`
}

// Savings is the price spread within a group. A nil *Savings on a group means
// savings are unavailable (fewer than two priced members), which is distinct
// from a zero spread.
type Savings struct {
	Absolute float64 `json:"absolute"`
	Percent  float64 `json:"percent"` // (max-min)/max, 0 when max is 0.
}

// ProductGroup is a cluster of listings believed to represent the same
// underlying product. It is immutable once the aggregator finalizes it.
type ProductGroup struct {
	// ID is a stable identifier by discovery order ("group-0", "group-1", ...).
	ID string `json:"id"`

	// Members holds the listings in the order they joined during clustering.
	Members []NormalizedListing `json:"members"`

	// RepresentativeName is the canonical name of the member with the highest
	// total pairwise similarity to the rest of the group.
	RepresentativeName string `json:"representative_name"`

	// Stats is filled by the aggregator; nil until then.
	Stats *PriceStats `json:"stats,omitempty"`

	// Savings is nil when unavailable (see Savings).
	Savings *Savings `json:"savings,omitempty"`

	// Method is the strategy whose scores formed this group.
	Method Method `json:"method"`

	// Confidence is the mean of the pairwise confidences that triggered joins.
	// Singleton groups carry 1.0.
	Confidence float64 `json:"confidence"`
}

// RunSummary aggregates run-wide price figures across all groups,
// recovered for dashboard-style reporting.
type RunSummary struct {
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	AvgPrice     float64 `json:"avg_price"`
	TotalSavings float64 `json:"total_savings"`

	// BestDealGroup is the ID of the group with the largest savings percent,
	// empty when no group has savings.
	BestDealGroup string `json:"best_deal_group,omitempty"`
}

// CompareResult is the complete output of one comparison run.
type CompareResult struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`

	// Groups is the ranked list of product groups (best savings first).
	Groups []ProductGroup `json:"groups"`

	// TotalListings is the number of listings considered after source
	// filtering and deduplication.
	TotalListings int `json:"total_listings"`

	// GroupCount is len(Groups).
	GroupCount int `json:"group_count"`

	// Method is the strategy that actually scored the run: semantic, textual,
	// or mixed when a mid-run fallback occurred.
	Method Method `json:"method"`

	// FallbackOccurred reports whether the semantic collaborator failed at
	// any point during this run.
	FallbackOccurred bool `json:"fallback_occurred"`

	// Summary holds run-wide price figures; nil when no listing had a price.
	Summary *RunSummary `json:"summary,omitempty"`

	// Duration is the total run time.
	Duration time.Duration `json:"duration"`
}

// SemanticConfig controls the language-model strategy.
type SemanticConfig struct {
	// Enabled turns the semantic path on. It additionally requires a
	// configured provider; without one the engine starts textual-only.
	Enabled bool

	// Model overrides the provider's default model.
	Model string

	// BatchSize is the largest listing set sent in a single grouping request.
	// Larger sets are partitioned. Default 20.
	BatchSize int

	// Concurrency caps in-flight grouping requests for one run. Default 4.
	Concurrency int

	// MaxMergePasses bounds the iterative merge pass over batch groups.
	// Default 3.
	MaxMergePasses int
}

// CompareConfig carries the knobs for one comparison run.
type CompareConfig struct {
	// Threshold is the minimum similarity score for joining a group.
	// Default 0.75.
	Threshold float64

	// StopWords are removed during name normalization, in addition to the
	// built-in list.
	StopWords []string

	// KnownBrands augments the built-in brand list for brand extraction.
	KnownBrands []string

	// PriceBandPercent is the relative price window, in percent, inside
	// which the textual strategy grants its price-proximity bonus. Default 20.
	PriceBandPercent float64

	// PriceCeiling is the plausibility ceiling for parsed prices. Default 1e6.
	PriceCeiling float64

	// Sources restricts the comparison to the given source IDs. Empty means
	// all sources.
	Sources []string

	// RequireCrossSource makes the run fail fast when fewer than two distinct
	// sources remain after filtering.
	RequireCrossSource bool

	// Semantic configures the language-model strategy.
	Semantic SemanticConfig
}

// DefaultThreshold is the default clustering join threshold.
const DefaultThreshold = 0.75

// DefaultCompareConfig returns a CompareConfig with the documented defaults.
func DefaultCompareConfig() CompareConfig {
	return CompareConfig{
		Threshold:        DefaultThreshold,
		PriceBandPercent: 20,
		PriceCeiling:     1_000_000,
		Semantic: SemanticConfig{
			Enabled:        true,
			BatchSize:      20,
			Concurrency:    4,
			MaxMergePasses: 3,
		},
	}
}
