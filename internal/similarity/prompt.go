// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package similarity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/davetashner/priceowl/internal/listing"
)

// groupResponseItem represents a single product group in the LLM's JSON
// response.
type groupResponseItem struct {
	GroupID    string   `json:"group_id"`
	Confidence float64  `json:"confidence"`
	ListingIDs []string `json:"listing_ids"`
}

// groupResponseWrapper is the top-level JSON structure expected from the LLM.
type groupResponseWrapper struct {
	Groups []groupResponseItem `json:"groups"`
}

// buildGroupingPrompt constructs the prompt sent to the LLM for semantic
// product grouping. Listings are identified as "item-N" where N is their
// index in the items slice; the caller maps those IDs back afterwards.
func buildGroupingPrompt(items []listing.NormalizedListing) string {
	var b strings.Builder

	b.WriteString("You are comparing product listings scraped from different shopping sites. ")
	b.WriteString("Listings that describe the same underlying product must be grouped together, ")
	b.WriteString("even when names differ in wording, language, or abbreviations.\n\n")
	b.WriteString("LISTINGS:\n")
	b.WriteString("---------\n")

	for i, item := range items {
		fmt.Fprintf(&b, "ID: item-%d\n", i)
		fmt.Fprintf(&b, "  Name: %s\n", item.CanonicalName)
		if item.Brand != "" {
			fmt.Fprintf(&b, "  Brand: %s\n", item.Brand)
		}
		if item.Price != nil {
			fmt.Fprintf(&b, "  Price: %.2f %s\n", *item.Price, item.Currency)
		}
		fmt.Fprintf(&b, "  Source: %s\n", item.SourceID)
		b.WriteString("\n")
	}

	b.WriteString("---------\n\n")
	b.WriteString("Respond with ONLY a JSON object in the following format (no markdown, no explanation):\n")
	b.WriteString(`{"groups": [{"group_id": "g1", "confidence": 0.9, "listing_ids": ["item-0", "item-1"]}]}`)
	b.WriteString("\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Every listing ID must appear in exactly one group\n")
	b.WriteString("- Group only listings that are the same product (same model, size may differ in color naming)\n")
	b.WriteString("- confidence is your certainty in [0,1] that the group's listings are the same product\n")
	b.WriteString("- A listing that matches nothing goes in its own single-listing group\n")

	return b.String()
}

// parseGroupingResponse parses the LLM's JSON response into group items.
// It handles responses wrapped in markdown code fences, and accepts either
// the wrapper object or a bare array of groups.
func parseGroupingResponse(content string) ([]groupResponseItem, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present.
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		var jsonLines []string
		inBlock := false
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "```") {
				inBlock = !inBlock
				continue
			}
			if inBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		content = strings.Join(jsonLines, "\n")
	}

	content = strings.TrimSpace(content)

	// Try parsing as the wrapper format first.
	var wrapper groupResponseWrapper
	if err := json.Unmarshal([]byte(content), &wrapper); err == nil && len(wrapper.Groups) > 0 {
		return wrapper.Groups, nil
	}

	// Try parsing as a raw array of group items.
	var items []groupResponseItem
	if err := json.Unmarshal([]byte(content), &items); err == nil && len(items) > 0 {
		return items, nil
	}

	return nil, fmt.Errorf("failed to parse LLM response as grouping JSON: %.200s", content)
}

// parseItemID converts an "item-N" ID string into its index. Returns -1 for
// malformed or out-of-range IDs.
func parseItemID(id string, n int) int {
	if !strings.HasPrefix(id, "item-") {
		return -1
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(id, "item-"))
	if err != nil || idx < 0 || idx >= n {
		return -1
	}
	return idx
}
