// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davetashner/priceowl/internal/listing"
)

func price(v float64) *float64 { return &v }

func sampleResult() *listing.CompareResult {
	return &listing.CompareResult{
		RunID: "run-1",
		Groups: []listing.ProductGroup{
			{
				ID: "group-0",
				Members: []listing.NormalizedListing{
					{
						SourceID:      "shop-a",
						CanonicalName: "nike air max 90 nero",
						Brand:         "nike",
						Price:         price(120),
						Currency:      "EUR",
						Original:      listing.RawListing{RawName: "Nike Air Max 90 - Nero"},
					},
					{
						SourceID:      "shop-b",
						CanonicalName: "nike airmax 90 black",
						Brand:         "nike",
						Price:         price(99.99),
						Currency:      "EUR",
						Original:      listing.RawListing{RawName: "NIKE AIRMAX 90 BLACK"},
					},
				},
				RepresentativeName: "nike air max 90 nero",
				Stats: &listing.PriceStats{
					Min: 99.99, Max: 120, Average: 109.995, PricedCount: 2,
				},
				Savings:    &listing.Savings{Absolute: 20.01, Percent: 0.16675},
				Method:     listing.MethodTextual,
				Confidence: 0.9,
			},
		},
		TotalListings: 2,
		GroupCount:    1,
		Method:        listing.MethodTextual,
		Summary: &listing.RunSummary{
			MinPrice: 99.99, MaxPrice: 120, AvgPrice: 109.995,
			TotalSavings: 20.01, BestDealGroup: "group-0",
		},
		Duration: 42 * time.Millisecond,
	}
}

// ---- Registry ----

func TestGetFormatterKnownFormats(t *testing.T) {
	for _, name := range []string{"json", "markdown", "table"} {
		f, err := GetFormatter(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, f.Name())
	}
}

func TestGetFormatterUnknown(t *testing.T) {
	_, err := GetFormatter("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
	assert.Contains(t, err.Error(), "json")
}

// ---- JSON ----

func TestJSONFormatterEnvelope(t *testing.T) {
	f := NewJSONFormatter()
	f.nowFunc = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	var buf bytes.Buffer
	require.NoError(t, f.Format(sampleResult(), &buf))

	var envelope JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &envelope))

	assert.Equal(t, "run-1", envelope.Metadata.RunID)
	assert.Equal(t, 2, envelope.Metadata.TotalListings)
	assert.Equal(t, listing.MethodTextual, envelope.Metadata.Method)
	assert.Equal(t, "2026-03-01T12:00:00Z", envelope.Metadata.GeneratedAt)
	assert.Equal(t, int64(42), envelope.Metadata.DurationMS)

	require.Len(t, envelope.Groups, 1)
	assert.Equal(t, "group-0", envelope.Groups[0].ID)
	require.NotNil(t, envelope.Metadata.Summary)
	assert.Equal(t, "group-0", envelope.Metadata.Summary.BestDealGroup)
}

func TestJSONFormatterEmptyGroups(t *testing.T) {
	result := &listing.CompareResult{RunID: "run-2", Method: listing.MethodTextual}

	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Format(result, &buf))
	assert.Contains(t, buf.String(), `"groups": []`)
}

func TestJSONFormatterCompact(t *testing.T) {
	f := NewJSONFormatter()
	f.Compact = true

	var buf bytes.Buffer
	require.NoError(t, f.Format(sampleResult(), &buf))
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

// ---- Markdown ----

func TestMarkdownFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter().Format(sampleResult(), &buf))

	out := buf.String()
	assert.Contains(t, out, "# Priceowl Comparison Results")
	assert.Contains(t, out, "2 listings in 1 groups")
	assert.Contains(t, out, "## 1. nike air max 90 nero")
	assert.Contains(t, out, "**shop-a**: Nike Air Max 90 - Nero (120.00 EUR)")
	assert.Contains(t, out, "Savings: 20.01 (16.7%)")
}

func TestMarkdownFormatterFallbackNote(t *testing.T) {
	result := sampleResult()
	result.FallbackOccurred = true

	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter().Format(result, &buf))
	assert.Contains(t, buf.String(), "fallback occurred")
}

func TestMarkdownFormatterUnpricedMember(t *testing.T) {
	result := sampleResult()
	result.Groups[0].Members[1].Price = nil
	result.Groups[0].Savings = nil

	var buf bytes.Buffer
	require.NoError(t, NewMarkdownFormatter().Format(result, &buf))

	out := buf.String()
	assert.Contains(t, out, "(n/a)")
	assert.Contains(t, out, "Savings unavailable")
}

// ---- Table ----

func TestTableFormatter(t *testing.T) {
	restore := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = restore }()

	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter().Format(sampleResult(), &buf))

	out := buf.String()
	assert.Contains(t, out, "PRODUCT")
	assert.Contains(t, out, "nike air max 90 nero")
	assert.Contains(t, out, "16.7%")
	assert.Contains(t, out, "99.99")
	assert.Contains(t, out, "total savings opportunity 20.01")
}

func TestTableRenderAlignment(t *testing.T) {
	restore := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = restore }()

	table := NewTable(
		Column{Header: "NAME"},
		Column{Header: "N", Align: AlignRight},
	)
	table.AddRow("a", "1")
	table.AddRow("longer", "22")

	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf))

	out := buf.String()
	assert.Contains(t, out, "a        1")
	assert.Contains(t, out, "longer  22")
}

// ---- Cell colors ----

func TestColorSavingsThresholds(t *testing.T) {
	restore := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = restore }()

	// With color disabled the value passes through unchanged.
	assert.Equal(t, "16.7%", ColorSavings("16.7%"))
	assert.Equal(t, "n/a", ColorSavings("n/a"))
	assert.Equal(t, "2.0%", ColorSavings("2.0%"))
}
