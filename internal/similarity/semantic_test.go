// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package similarity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davetashner/priceowl/internal/listing"
	"github.com/davetashner/priceowl/internal/llm"
)

func semanticListing(source, name string) listing.NormalizedListing {
	return listing.NormalizedListing{
		SourceID:      source,
		CanonicalName: name,
		Original:      listing.RawListing{SourceID: source, RawName: name},
	}
}

func semanticConfig() listing.SemanticConfig {
	return listing.DefaultCompareConfig().Semantic
}

// ---- Direct grouping (small sets) ----

func TestSemanticDirectGrouping(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: `{"groups": [
			{"group_id": "g1", "confidence": 0.9, "listing_ids": ["item-0", "item-1"]},
			{"group_id": "g2", "confidence": 0.95, "listing_ids": ["item-2"]}
		]}`,
	})
	s := NewSemantic(mock, semanticConfig())

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90 black"),
		semanticListing("shop-a", "bosch serie 6"),
	}

	require.NoError(t, s.Prepare(context.Background(), listings))
	require.Len(t, mock.Calls(), 1)

	same := s.Score(listings[0], listings[1])
	assert.Equal(t, 1.0, same.Score)
	assert.Equal(t, 0.9, same.Confidence)
	assert.Equal(t, listing.MethodSemantic, same.Method)

	different := s.Score(listings[0], listings[2])
	assert.Equal(t, 0.0, different.Score)
}

func TestSemanticStripsMarkdownFences(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: "```json\n{\"groups\": [{\"group_id\": \"g1\", \"listing_ids\": [\"item-0\", \"item-1\"]}]}\n```",
	})
	s := NewSemantic(mock, semanticConfig())

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90"),
	}

	require.NoError(t, s.Prepare(context.Background(), listings))
	assert.Equal(t, 1.0, s.Score(listings[0], listings[1]).Score)
}

func TestSemanticDefaultConfidence(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: `{"groups": [{"group_id": "g1", "listing_ids": ["item-0", "item-1"]}]}`,
	})
	s := NewSemantic(mock, semanticConfig())

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90"),
	}

	require.NoError(t, s.Prepare(context.Background(), listings))
	assert.Equal(t, defaultConfidence, s.Score(listings[0], listings[1]).Confidence)
}

func TestSemanticUnassignedListingBecomesSingleton(t *testing.T) {
	// The model omits item-1; it must still be covered, in its own group.
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: `{"groups": [{"group_id": "g1", "confidence": 0.9, "listing_ids": ["item-0"]}]}`,
	})
	s := NewSemantic(mock, semanticConfig())

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "bosch serie 6"),
	}

	require.NoError(t, s.Prepare(context.Background(), listings))
	assert.True(t, s.Covers(listings[0], listings[1]))
	assert.Equal(t, 0.0, s.Score(listings[0], listings[1]).Score)
}

func TestSemanticIgnoresUnknownListingIDs(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{
		Content: `{"groups": [{"group_id": "g1", "confidence": 0.9, "listing_ids": ["item-0", "item-99", "bogus"]}]}`,
	})
	s := NewSemantic(mock, semanticConfig())

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
	}

	assert.NoError(t, s.Prepare(context.Background(), listings))
}

func TestSemanticPrepareFailsOnProviderError(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: errors.New("unavailable")})
	s := NewSemantic(mock, semanticConfig())

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90"),
	}

	err := s.Prepare(context.Background(), listings)
	assert.Error(t, err)
	assert.False(t, s.Covers(listings[0], listings[1]))
}

func TestSemanticPrepareFailsOnMalformedResponse(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: "sorry, I cannot help with that"})
	s := NewSemantic(mock, semanticConfig())

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90"),
	}

	assert.Error(t, s.Prepare(context.Background(), listings))
}

// ---- Batched grouping and merge pass ----

func batchedConfig(batchSize int) listing.SemanticConfig {
	cfg := semanticConfig()
	cfg.BatchSize = batchSize
	// Sequential batches keep the mock's canned responses aligned.
	cfg.Concurrency = 1
	return cfg
}

func TestSemanticBatchedGroupingWithMerge(t *testing.T) {
	singletons := func(n int) string {
		out := `{"groups": [`
		for i := 0; i < n; i++ {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf(`{"group_id": "g%d", "listing_ids": ["item-%d"]}`, i, i)
		}
		return out + `]}`
	}

	mock := llm.NewMockProvider(
		// Batch 1: two singleton groups.
		llm.MockResponse{Content: singletons(2)},
		// Batch 2: two singleton groups.
		llm.MockResponse{Content: singletons(2)},
		// Merge pass 1: first representatives of batch 1 and 2 are the same
		// product.
		llm.MockResponse{Content: `{"groups": [
			{"group_id": "m1", "confidence": 0.85, "listing_ids": ["item-0", "item-2"]},
			{"group_id": "m2", "listing_ids": ["item-1"]},
			{"group_id": "m3", "listing_ids": ["item-3"]}
		]}`},
		// Merge pass 2: no further merges.
		llm.MockResponse{Content: singletons(3)},
	)
	s := NewSemantic(mock, batchedConfig(2))

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-a", "bosch serie 6"),
		semanticListing("shop-b", "nike airmax 90 black"),
		semanticListing("shop-b", "dyson v15"),
	}

	require.NoError(t, s.Prepare(context.Background(), listings))
	require.Len(t, mock.Calls(), 4)
	assert.False(t, s.Degraded())

	crossBatch := s.Score(listings[0], listings[2])
	assert.Equal(t, 1.0, crossBatch.Score)
	assert.Equal(t, 0.85, crossBatch.Confidence)

	assert.Equal(t, 0.0, s.Score(listings[0], listings[1]).Score)
	assert.Equal(t, 0.0, s.Score(listings[1], listings[3]).Score)
}

func TestSemanticPartialBatchFailure(t *testing.T) {
	// A single surviving group skips the merge pass, so only two calls happen.
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: `{"groups": [{"group_id": "g1", "confidence": 0.9, "listing_ids": ["item-0", "item-1"]}]}`},
		llm.MockResponse{Err: errors.New("timeout")},
	)
	s := NewSemantic(mock, batchedConfig(2))

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90"),
		semanticListing("shop-a", "bosch serie 6"),
		semanticListing("shop-b", "bosch serie 6 lavatrice"),
	}

	require.NoError(t, s.Prepare(context.Background(), listings))
	assert.True(t, s.Degraded())

	// The successful batch keeps its semantic scores.
	assert.True(t, s.Covers(listings[0], listings[1]))
	assert.Equal(t, 1.0, s.Score(listings[0], listings[1]).Score)

	// Pairs touching the failed batch are not covered.
	assert.False(t, s.Covers(listings[0], listings[2]))
	assert.False(t, s.Covers(listings[2], listings[3]))
}

func TestSemanticAllBatchesFailing(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: errors.New("unavailable")})
	s := NewSemantic(mock, batchedConfig(2))

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90"),
		semanticListing("shop-a", "bosch serie 6"),
		semanticListing("shop-b", "dyson v15"),
	}

	assert.Error(t, s.Prepare(context.Background(), listings))
}

func TestSemanticMergePassFailureKeepsBatchGroups(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: `{"groups": [{"group_id": "g1", "confidence": 0.9, "listing_ids": ["item-0", "item-1"]}]}`},
		llm.MockResponse{Content: `{"groups": [{"group_id": "g1", "confidence": 0.9, "listing_ids": ["item-0", "item-1"]}]}`},
		llm.MockResponse{Err: errors.New("timeout")},
	)
	s := NewSemantic(mock, batchedConfig(2))

	listings := []listing.NormalizedListing{
		semanticListing("shop-a", "nike air max 90"),
		semanticListing("shop-b", "nike airmax 90"),
		semanticListing("shop-a", "bosch serie 6"),
		semanticListing("shop-b", "bosch serie 6 lavatrice"),
	}

	require.NoError(t, s.Prepare(context.Background(), listings))
	assert.True(t, s.Degraded())

	// Batch-level groups survive the failed merge pass.
	assert.Equal(t, 1.0, s.Score(listings[0], listings[1]).Score)
	assert.Equal(t, 1.0, s.Score(listings[2], listings[3]).Score)

	// Same-batch pairs carry a semantic verdict; cross-batch pairs were
	// never compared once the merge failed, so they are not covered and
	// must be scored by another strategy.
	assert.True(t, s.Covers(listings[0], listings[1]))
	assert.True(t, s.Covers(listings[2], listings[3]))
	assert.False(t, s.Covers(listings[0], listings[2]))
	assert.False(t, s.Covers(listings[1], listings[3]))
}

// ---- Response parsing ----

func TestParseGroupingResponseBareArray(t *testing.T) {
	items, err := parseGroupingResponse(`[{"group_id": "g1", "listing_ids": ["item-0"]}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "g1", items[0].GroupID)
}

func TestParseGroupingResponseRejectsGarbage(t *testing.T) {
	_, err := parseGroupingResponse("not json at all")
	assert.Error(t, err)
}

func TestParseItemID(t *testing.T) {
	assert.Equal(t, 3, parseItemID("item-3", 5))
	assert.Equal(t, -1, parseItemID("item-9", 5))
	assert.Equal(t, -1, parseItemID("sig-1", 5))
	assert.Equal(t, -1, parseItemID("item-x", 5))
}
