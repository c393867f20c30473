// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package normalize

import (
	"fmt"

	"github.com/davetashner/priceowl/internal/listing"
)

// Dedupe collapses duplicate listings within each source. Two listings are
// duplicates when they come from the same source and share the same canonical
// name and brand. The survivor is the one with the lower price; a priced
// listing always survives over an unpriced one. First-occurrence order is
// preserved.
func Dedupe(listings []listing.NormalizedListing) []listing.NormalizedListing {
	if len(listings) == 0 {
		return listings
	}

	index := make(map[string]int, len(listings))
	out := make([]listing.NormalizedListing, 0, len(listings))

	for _, l := range listings {
		key := fmt.Sprintf("%s\x00%s\x00%s", l.SourceID, l.CanonicalName, l.Brand)

		at, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, l)
			continue
		}

		if cheaper(l, out[at]) {
			out[at] = l
		}
	}

	return out
}

// cheaper reports whether candidate should replace current as the surviving
// duplicate.
func cheaper(candidate, current listing.NormalizedListing) bool {
	if candidate.Price == nil {
		return false
	}
	if current.Price == nil {
		return true
	}
	return *candidate.Price < *current.Price
}
