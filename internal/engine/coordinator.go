// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"log/slog"

	"github.com/davetashner/priceowl/internal/listing"
	"github.com/davetashner/priceowl/internal/llm"
	"github.com/davetashner/priceowl/internal/similarity"
)

// State is the fallback coordinator's mode.
type State string

const (
	// StateSemanticActive means the language-model strategy is in use.
	StateSemanticActive State = "semantic-active"

	// StateTextualOnly means only the textual strategy is in use, either
	// because no collaborator is configured or after a fallback.
	StateTextualOnly State = "textual-only"
)

// Coordinator selects the similarity strategy for one comparison run and
// downgrades to the textual strategy when the language-model collaborator
// fails. Its state is scoped to a single run; every run starts fresh, so a
// fallback never carries over to the next request.
type Coordinator struct {
	provider llm.Provider
	cfg      listing.CompareConfig
	state    State
}

// NewCoordinator builds a per-run coordinator. It starts semantic-active
// only when a provider is configured and the semantic strategy is enabled.
func NewCoordinator(provider llm.Provider, cfg listing.CompareConfig) *Coordinator {
	state := StateTextualOnly
	if provider != nil && cfg.Semantic.Enabled {
		state = StateSemanticActive
	}
	return &Coordinator{
		provider: provider,
		cfg:      cfg,
		state:    state,
	}
}

// State returns the coordinator's current mode.
func (c *Coordinator) State() State { return c.state }

// Scorer prepares and returns the similarity strategy for a run, the method
// label the run should report, and whether a fallback occurred. Collaborator
// failures are absorbed here; the only error returned is the caller's
// context being cancelled, which aborts the run entirely.
func (c *Coordinator) Scorer(ctx context.Context, listings []listing.NormalizedListing) (similarity.Scorer, listing.Method, bool, error) {
	textual := similarity.NewTextual(c.cfg)
	if c.state == StateTextualOnly {
		return textual, listing.MethodTextual, false, nil
	}

	sem := similarity.NewSemantic(c.provider, c.cfg.Semantic)
	err := sem.Prepare(ctx, listings)
	if ctx.Err() != nil {
		return nil, "", false, ctx.Err()
	}
	if err != nil {
		// Nothing was scored semantically; the whole run goes textual.
		slog.Warn("semantic strategy unavailable, falling back to textual", "error", err)
		c.state = StateTextualOnly
		return textual, listing.MethodTextual, true, nil
	}

	if sem.Degraded() {
		// Completed batches keep their semantic scores; pairs the model
		// never covered are scored textually.
		slog.Warn("semantic strategy degraded mid-run, remaining pairs scored textually")
		return &mixedScorer{semantic: sem, textual: textual}, listing.MethodMixed, true, nil
	}

	return sem, listing.MethodSemantic, false, nil
}

// mixedScorer serves semantic scores for covered pairs and textual scores
// for the rest. Both strategies emit the same SimilarityScore shape, so
// downstream clustering never special-cases the method.
type mixedScorer struct {
	semantic *similarity.Semantic
	textual  *similarity.Textual
}

func (m *mixedScorer) Method() listing.Method { return listing.MethodMixed }

func (m *mixedScorer) Score(a, b listing.NormalizedListing) listing.SimilarityScore {
	if m.semantic.Covers(a, b) {
		return m.semantic.Score(a, b)
	}
	return m.textual.Score(a, b)
}
