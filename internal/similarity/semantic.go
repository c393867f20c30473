// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package similarity

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/davetashner/priceowl/internal/listing"
	"github.com/davetashner/priceowl/internal/llm"
)

const (
	// defaultConfidence is used when the model reports no per-group certainty.
	defaultConfidence = 0.8

	groupingSystemPrompt = "You are a product matching assistant that decides " +
		"whether shopping listings from different sites refer to the same product. " +
		"Always respond with valid JSON only."
)

// Semantic is the language-model similarity strategy. Prepare must be called
// once per run before Score: it asks the collaborator to group the listings
// and converts the reported groups into pairwise scores (same group scores
// 1.0, different groups 0.0). Clustering stays owned by this engine; the
// model's groups are only a score source.
//
// Prepare is not safe for concurrent use; Score is read-only afterwards.
type Semantic struct {
	provider       llm.Provider
	model          string
	batchSize      int
	concurrency    int
	maxMergePasses int

	index     map[string]int
	groupOf   []int
	groupConf map[int]float64
	batchOf   []int
	batches   int
	covered   []bool
	degraded  bool
}

// NewSemantic builds the semantic strategy around an injected provider.
func NewSemantic(provider llm.Provider, cfg listing.SemanticConfig) *Semantic {
	defaults := listing.DefaultCompareConfig().Semantic
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.MaxMergePasses <= 0 {
		cfg.MaxMergePasses = defaults.MaxMergePasses
	}

	return &Semantic{
		provider:       provider,
		model:          cfg.Model,
		batchSize:      cfg.BatchSize,
		concurrency:    cfg.Concurrency,
		maxMergePasses: cfg.MaxMergePasses,
	}
}

// Method implements Scorer.
func (s *Semantic) Method() listing.Method { return listing.MethodSemantic }

// Prepare runs the grouping calls for a listing set. Sets of at most one
// batch go to the collaborator in a single request; larger sets are split
// into fixed-size batches issued concurrently, followed by an iterative
// merge pass over the batch groups.
//
// An error is returned only when no batch succeeded, leaving nothing to
// score semantically. A partial failure (some batches or the merge pass
// failed) keeps the successful results, marks the strategy degraded, and
// returns nil; uncovered listings are reported through Covers.
func (s *Semantic) Prepare(ctx context.Context, listings []listing.NormalizedListing) error {
	s.index = make(map[string]int, len(listings))
	s.groupOf = make([]int, len(listings))
	s.groupConf = make(map[int]float64)
	s.batchOf = make([]int, len(listings))
	s.batches = 0
	s.covered = make([]bool, len(listings))
	s.degraded = false

	for i, l := range listings {
		s.index[listingKey(l)] = i
		s.groupOf[i] = -1
		s.batchOf[i] = -1
	}
	if len(listings) == 0 {
		return nil
	}

	if len(listings) <= s.batchSize {
		groups, err := s.groupBatch(ctx, listings)
		if err != nil {
			return err
		}
		s.record(groups, identityOffsets(len(listings)), 0)
		return nil
	}

	nextGroup, ok := s.prepareBatches(ctx, listings)
	if !ok {
		return fmt.Errorf("all %d grouping batches failed", (len(listings)+s.batchSize-1)/s.batchSize)
	}

	s.mergeGroups(ctx, listings, nextGroup)
	return nil
}

// prepareBatches issues one grouping request per fixed-size batch, up to the
// concurrency cap. It returns the next free group ID and whether at least one
// batch succeeded.
func (s *Semantic) prepareBatches(ctx context.Context, listings []listing.NormalizedListing) (int, bool) {
	type batch struct {
		offsets []int
		groups  []groupResponseItem
		err     error
	}

	var batches []*batch
	for start := 0; start < len(listings); start += s.batchSize {
		end := min(start+s.batchSize, len(listings))
		offsets := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			offsets = append(offsets, i)
		}
		batches = append(batches, &batch{offsets: offsets})
	}

	// Batch failures are collected, not propagated: a failed batch falls
	// back to textual scoring for its listings while the rest keep their
	// semantic results.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, b := range batches {
		b := b
		g.Go(func() error {
			items := make([]listing.NormalizedListing, len(b.offsets))
			for i, off := range b.offsets {
				items[i] = listings[off]
			}
			b.groups, b.err = s.groupBatch(gctx, items)
			return nil
		})
	}
	_ = g.Wait()

	nextGroup := 0
	succeeded := false
	for _, b := range batches {
		if b.err != nil {
			slog.Warn("grouping batch failed, listings fall back to textual",
				"listings", len(b.offsets), "error", b.err)
			s.degraded = true
			continue
		}
		nextGroup = s.record(b.groups, b.offsets, nextGroup)
		succeeded = true
	}
	return nextGroup, succeeded
}

// mergeGroups re-clusters batch groups against each other by sending one
// representative listing per group back through the same grouping prompt,
// until a pass produces no merges or the pass limit is reached. A failed
// merge pass keeps the groups formed so far.
func (s *Semantic) mergeGroups(ctx context.Context, listings []listing.NormalizedListing, groupCount int) {
	for pass := 0; pass < s.maxMergePasses; pass++ {
		reps, groupIDs := s.representatives(listings)
		if len(reps) < 2 {
			return
		}

		groups, err := s.groupBatch(ctx, reps)
		if err != nil {
			slog.Warn("merge pass failed, keeping batch-level groups",
				"pass", pass, "error", err)
			s.degraded = true
			return
		}

		if !s.applyMerges(groups, groupIDs) {
			return
		}
	}
}

// representatives returns the first member of each current group, plus the
// parallel slice of group IDs, ordered by group ID.
func (s *Semantic) representatives(listings []listing.NormalizedListing) ([]listing.NormalizedListing, []int) {
	firstMember := make(map[int]int)
	var order []int
	for i, g := range s.groupOf {
		if g < 0 {
			continue
		}
		if _, seen := firstMember[g]; !seen {
			firstMember[g] = i
			order = append(order, g)
		}
	}

	reps := make([]listing.NormalizedListing, 0, len(order))
	for _, g := range order {
		reps = append(reps, listings[firstMember[g]])
	}
	return reps, order
}

// applyMerges relabels groups whose representatives were grouped together.
// Returns true if any merge happened.
func (s *Semantic) applyMerges(groups []groupResponseItem, groupIDs []int) bool {
	merged := false
	for _, g := range groups {
		var members []int
		for _, id := range g.ListingIDs {
			idx := parseItemID(id, len(groupIDs))
			if idx < 0 {
				slog.Debug("ignoring unknown listing ID from LLM", "id", id)
				continue
			}
			members = append(members, groupIDs[idx])
		}
		if len(members) < 2 {
			continue
		}

		target := members[0]
		conf := clamp01(g.Confidence)
		if conf == 0 {
			conf = defaultConfidence
		}
		for _, from := range members[1:] {
			for i, cur := range s.groupOf {
				if cur == from {
					s.groupOf[i] = target
				}
			}
			delete(s.groupConf, from)
			merged = true
		}
		s.groupConf[target] = conf
	}
	return merged
}

// record stores one batch's group assignments. offsets maps batch-local item
// indices to listing indices; nextGroup is the first unused group ID. Returns
// the next free group ID. Listings the model did not assign become singleton
// groups so they still cluster by their own scores.
func (s *Semantic) record(groups []groupResponseItem, offsets []int, nextGroup int) int {
	for _, off := range offsets {
		s.covered[off] = true
		s.batchOf[off] = s.batches
	}
	s.batches++

	for _, g := range groups {
		conf := clamp01(g.Confidence)
		if conf == 0 {
			conf = defaultConfidence
		}

		assigned := false
		for _, id := range g.ListingIDs {
			idx := parseItemID(id, len(offsets))
			if idx < 0 {
				slog.Debug("ignoring unknown listing ID from LLM", "id", id)
				continue
			}
			off := offsets[idx]
			if s.groupOf[off] >= 0 {
				continue
			}
			s.groupOf[off] = nextGroup
			assigned = true
		}
		if assigned {
			s.groupConf[nextGroup] = conf
			nextGroup++
		}
	}

	// Unassigned listings become singletons.
	for _, off := range offsets {
		if s.groupOf[off] < 0 {
			s.groupOf[off] = nextGroup
			s.groupConf[nextGroup] = defaultConfidence
			nextGroup++
		}
	}
	return nextGroup
}

// groupBatch sends one grouping request and parses the response.
func (s *Semantic) groupBatch(ctx context.Context, items []listing.NormalizedListing) ([]groupResponseItem, error) {
	resp, err := s.provider.Complete(ctx, llm.Request{
		System:    groupingSystemPrompt,
		Prompt:    buildGroupingPrompt(items),
		Model:     s.model,
		MaxTokens: 4096,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM completion failed: %w", err)
	}

	groups, err := parseGroupingResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse grouping response: %w", err)
	}
	return groups, nil
}

// Covers reports whether the model actually judged this pair: both listings
// were grouped in the same request, or a merge pass placed them in the same
// group. A pair from two different batches that was never merged carries no
// semantic verdict, so scoring it 0.0 would wrongly keep same-product
// listings apart; such pairs fall through to the textual strategy.
func (s *Semantic) Covers(a, b listing.NormalizedListing) bool {
	ia, ok := s.lookup(a)
	if !ok || !s.covered[ia] {
		return false
	}
	ib, ok := s.lookup(b)
	if !ok || !s.covered[ib] {
		return false
	}
	return s.batchOf[ia] == s.batchOf[ib] || s.groupOf[ia] == s.groupOf[ib]
}

// Degraded reports whether any batch or merge pass failed during Prepare.
func (s *Semantic) Degraded() bool { return s.degraded }

// Score implements Scorer. Listings the model placed in the same group score
// 1.0 with the group's confidence; all other pairs score 0.0.
func (s *Semantic) Score(a, b listing.NormalizedListing) listing.SimilarityScore {
	ia, okA := s.lookup(a)
	ib, okB := s.lookup(b)

	if okA && okB && s.groupOf[ia] >= 0 && s.groupOf[ia] == s.groupOf[ib] {
		return listing.SimilarityScore{
			Score:      1.0,
			Confidence: s.groupConf[s.groupOf[ia]],
			Method:     listing.MethodSemantic,
			Rationale:  "same semantic group",
		}
	}

	return listing.SimilarityScore{
		Score:      0.0,
		Confidence: defaultConfidence,
		Method:     listing.MethodSemantic,
		Rationale:  "different semantic groups",
	}
}

func (s *Semantic) lookup(l listing.NormalizedListing) (int, bool) {
	i, ok := s.index[listingKey(l)]
	return i, ok
}

// listingKey identifies a listing within one run.
func listingKey(l listing.NormalizedListing) string {
	return l.SourceID + "\x00" + l.Original.RawName + "\x00" + l.Original.RawURL
}

// identityOffsets returns [0, 1, ..., n-1].
func identityOffsets(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
