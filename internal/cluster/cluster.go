// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

// Package cluster groups normalized listings into product groups using
// incremental single-linkage clustering. The algorithm is O(n*g), comparing
// each listing only against group representatives rather than all pairs.
package cluster

import (
	"fmt"

	"github.com/davetashner/priceowl/internal/listing"
	"github.com/davetashner/priceowl/internal/similarity"
)

// group is the mutable clustering state behind one ProductGroup.
type group struct {
	members   []listing.NormalizedListing
	repIdx    int
	joinConfs []float64
	methods   map[listing.Method]bool
}

// confidence is the mean of the pairwise confidences that triggered joins.
// Singleton groups carry 1.0.
func (g *group) confidence() float64 {
	if len(g.joinConfs) == 0 {
		return 1.0
	}
	var sum float64
	for _, c := range g.joinConfs {
		sum += c
	}
	return sum / float64(len(g.joinConfs))
}

// Cluster assigns listings to product groups in input order. Each listing is
// scored against the representative of every existing group; it joins the
// highest-scoring group at or above threshold, or starts a new one. Ties are
// broken toward the larger group, then the higher group confidence.
func Cluster(listings []listing.NormalizedListing, scorer similarity.Scorer, threshold float64) []listing.ProductGroup {
	if threshold <= 0 {
		threshold = listing.DefaultThreshold
	}

	var groups []*group
	for _, l := range listings {
		best := -1
		var bestScore listing.SimilarityScore

		for gi, g := range groups {
			s := scorer.Score(l, g.members[g.repIdx])
			if s.Score < threshold {
				continue
			}
			if best < 0 || better(s, groups[best], bestScore, g) {
				best = gi
				bestScore = s
			}
		}

		if best < 0 {
			groups = append(groups, &group{
				members: []listing.NormalizedListing{l},
				methods: map[listing.Method]bool{},
			})
			continue
		}

		g := groups[best]
		g.members = append(g.members, l)
		g.joinConfs = append(g.joinConfs, bestScore.Confidence)
		g.methods[bestScore.Method] = true
		g.repIdx = recomputeRepresentative(g.members, scorer)
	}

	out := make([]listing.ProductGroup, len(groups))
	for i, g := range groups {
		out[i] = listing.ProductGroup{
			ID:                 fmt.Sprintf("group-%d", i),
			Members:            g.members,
			RepresentativeName: g.members[g.repIdx].CanonicalName,
			Method:             groupMethod(g.methods, scorer.Method()),
			Confidence:         g.confidence(),
		}
	}
	return out
}

// better reports whether candidate score s for group g beats the current
// best. Higher score wins; on an exact tie, the larger group, then the
// higher group confidence. A remaining tie keeps the earlier group.
func better(s listing.SimilarityScore, bestGroup *group, bestScore listing.SimilarityScore, g *group) bool {
	if s.Score != bestScore.Score {
		return s.Score > bestScore.Score
	}
	if len(g.members) != len(bestGroup.members) {
		return len(g.members) > len(bestGroup.members)
	}
	return g.confidence() > bestGroup.confidence()
}

// recomputeRepresentative returns the index of the member with the highest
// total pairwise similarity to the rest of the group. The earliest member
// wins ties, so singleton and two-member groups keep their first member.
func recomputeRepresentative(members []listing.NormalizedListing, scorer similarity.Scorer) int {
	if len(members) < 3 {
		return 0
	}

	best := 0
	var bestTotal float64
	for i := range members {
		var total float64
		for j := range members {
			if i == j {
				continue
			}
			total += scorer.Score(members[i], members[j]).Score
		}
		if total > bestTotal {
			best = i
			bestTotal = total
		}
	}
	return best
}

// groupMethod reduces the set of methods that formed a group to a single
// label. Singleton groups take the run's active method.
func groupMethod(methods map[listing.Method]bool, active listing.Method) listing.Method {
	switch len(methods) {
	case 0:
		return active
	case 1:
		for m := range methods {
			return m
		}
	}
	return listing.MethodMixed
}
