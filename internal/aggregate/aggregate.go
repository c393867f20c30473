// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

// Package aggregate computes price statistics and savings for product groups
// and ranks them for output.
package aggregate

import (
	"sort"

	"github.com/davetashner/priceowl/internal/listing"
)

// Aggregate fills a group's price statistics and savings. Only members with
// a parsed price contribute; a group with fewer than two priced members gets
// nil Savings, since zero savings would falsely imply no price difference.
func Aggregate(group listing.ProductGroup) listing.ProductGroup {
	priced := pricedMembers(group.Members)
	if len(priced) == 0 {
		return group
	}

	stats := &listing.PriceStats{
		Min:         priced[0].price,
		Max:         priced[0].price,
		PricedCount: len(priced),
	}

	var sum float64
	for _, p := range priced {
		if p.price < stats.Min {
			stats.Min = p.price
		}
		if p.price > stats.Max {
			stats.Max = p.price
		}
		sum += p.price
	}
	stats.Average = sum / float64(len(priced))

	var sq float64
	for _, p := range priced {
		d := p.price - stats.Average
		sq += d * d
	}
	stats.Variance = sq / float64(len(priced))
	stats.PairDiffs = pairDiffs(priced)

	group.Stats = stats
	if len(priced) >= 2 && stats.Max > 0 {
		group.Savings = &listing.Savings{
			Absolute: stats.Max - stats.Min,
			Percent:  (stats.Max - stats.Min) / stats.Max,
		}
	}
	return group
}

// All aggregates every group and returns them ranked: descending savings
// percent, then descending member count, then group ID. Groups without
// savings rank below any group that has them.
func All(groups []listing.ProductGroup) []listing.ProductGroup {
	out := make([]listing.ProductGroup, len(groups))
	for i, g := range groups {
		out[i] = Aggregate(g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := savingsPercent(out[i]), savingsPercent(out[j])
		if si != sj {
			return si > sj
		}
		if len(out[i].Members) != len(out[j].Members) {
			return len(out[i].Members) > len(out[j].Members)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Summary computes run-wide price figures across all groups. Returns nil
// when no member anywhere has a price.
func Summary(groups []listing.ProductGroup) *listing.RunSummary {
	var (
		count   int
		sum     float64
		bestPct = -1.0
		s       listing.RunSummary
	)

	for _, g := range groups {
		for _, m := range g.Members {
			if m.Price == nil {
				continue
			}
			p := *m.Price
			if count == 0 || p < s.MinPrice {
				s.MinPrice = p
			}
			if count == 0 || p > s.MaxPrice {
				s.MaxPrice = p
			}
			sum += p
			count++
		}
		if g.Savings != nil {
			s.TotalSavings += g.Savings.Absolute
			if g.Savings.Percent > bestPct {
				bestPct = g.Savings.Percent
				s.BestDealGroup = g.ID
			}
		}
	}

	if count == 0 {
		return nil
	}
	s.AvgPrice = sum / float64(count)
	return &s
}

type pricedMember struct {
	source string
	price  float64
}

func pricedMembers(members []listing.NormalizedListing) []pricedMember {
	var out []pricedMember
	for _, m := range members {
		if m.Price != nil {
			out = append(out, pricedMember{source: m.SourceID, price: *m.Price})
		}
	}
	return out
}

// pairDiffs lists the absolute and percent price difference for every pair
// of priced members, relative to the higher price.
func pairDiffs(priced []pricedMember) []listing.PairDiff {
	var out []listing.PairDiff
	for i := 0; i < len(priced); i++ {
		for j := i + 1; j < len(priced); j++ {
			hi := priced[i].price
			if priced[j].price > hi {
				hi = priced[j].price
			}
			d := listing.PairDiff{
				SourceA:  priced[i].source,
				SourceB:  priced[j].source,
				PriceA:   priced[i].price,
				PriceB:   priced[j].price,
				Absolute: abs(priced[i].price - priced[j].price),
			}
			if hi > 0 {
				d.Percent = d.Absolute / hi
			}
			out = append(out, d)
		}
	}
	return out
}

func savingsPercent(g listing.ProductGroup) float64 {
	if g.Savings == nil {
		return -1
	}
	return g.Savings.Percent
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
