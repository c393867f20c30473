// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

// Package normalize turns raw scraped listings into their canonical,
// comparison-ready form. Normalization never fails: fields that cannot be
// parsed degrade to empty or nil values so that downstream matching can still
// work with partial information.
package normalize

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/davetashner/priceowl/internal/listing"
)

// builtinStopWords are marketing terms and unit qualifiers stripped from
// product names before comparison. Callers extend this list via config.
var builtinStopWords = map[string]bool{
	"new": true, "nuovo": true, "original": true, "originale": true,
	"offer": true, "offerta": true, "sale": true, "sconto": true,
	"promo": true, "outlet": true, "best": true, "top": true,
	"free": true, "shipping": true, "spedizione": true, "gratis": true,
	"pack": true, "pezzi": true, "conf": true, "confezione": true,
}

// builtinBrands is the default known-brand list used for brand extraction.
var builtinBrands = map[string]bool{
	"nike": true, "adidas": true, "puma": true, "reebok": true,
	"apple": true, "samsung": true, "sony": true, "lg": true,
	"xiaomi": true, "huawei": true, "lenovo": true, "asus": true,
	"dell": true, "hp": true, "bosch": true, "philips": true,
	"dyson": true, "delonghi": true, "lavazza": true, "barilla": true,
}

// Normalizer converts RawListings into NormalizedListings. It is safe for
// concurrent use; all state is set at construction and read-only afterwards.
type Normalizer struct {
	stopWords    map[string]bool
	knownBrands  map[string]bool
	priceCeiling float64
}

// New builds a Normalizer from the comparison config. Config stop words and
// brands extend the built-in lists rather than replacing them.
func New(cfg listing.CompareConfig) *Normalizer {
	stop := make(map[string]bool, len(builtinStopWords)+len(cfg.StopWords))
	for w := range builtinStopWords {
		stop[w] = true
	}
	for _, w := range cfg.StopWords {
		stop[strings.ToLower(w)] = true
	}

	brands := make(map[string]bool, len(builtinBrands)+len(cfg.KnownBrands))
	for b := range builtinBrands {
		brands[b] = true
	}
	for _, b := range cfg.KnownBrands {
		brands[strings.ToLower(b)] = true
	}

	ceiling := cfg.PriceCeiling
	if ceiling <= 0 {
		ceiling = listing.DefaultCompareConfig().PriceCeiling
	}

	return &Normalizer{
		stopWords:    stop,
		knownBrands:  brands,
		priceCeiling: ceiling,
	}
}

// Normalize converts one raw listing into canonical form. It is a pure
// function of its input and never fails.
func (n *Normalizer) Normalize(raw listing.RawListing) listing.NormalizedListing {
	tokens := n.tokenize(raw.RawName)
	canonical := strings.Join(tokens, " ")

	price, currency := n.parsePrice(raw.RawPrice)

	return listing.NormalizedListing{
		SourceID:      raw.SourceID,
		CanonicalName: canonical,
		Brand:         n.extractBrand(raw.RawBrand, tokens),
		Price:         price,
		Currency:      currency,
		Original:      raw,
	}
}

// All normalizes a slice of raw listings concurrently. Output order matches
// input order. The only error it can return is ctx's, since Normalize itself
// never fails.
func (n *Normalizer) All(ctx context.Context, raws []listing.RawListing) ([]listing.NormalizedListing, error) {
	out := make([]listing.NormalizedListing, len(raws))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = n.Normalize(raw)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// tokenize lowercases a name, splits on non-letter/digit runes, and drops
// stop words and single-character tokens.
func (n *Normalizer) tokenize(name string) []string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var out []string
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if n.stopWords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// extractBrand picks the brand for a listing. A supplied raw brand takes
// precedence; otherwise the first canonical-name token that appears in the
// known-brand list is used. Returns "" when no brand can be determined.
func (n *Normalizer) extractBrand(rawBrand string, tokens []string) string {
	if b := strings.ToLower(strings.TrimSpace(rawBrand)); b != "" {
		return b
	}
	for _, t := range tokens {
		if n.knownBrands[t] {
			return t
		}
	}
	return ""
}

// currencyMarkers maps price-string markers to ISO currency codes, checked in
// order. Both symbols and ISO codes are recognized, leading or trailing.
var currencyMarkers = []struct {
	marker string
	iso    string
}{
	{"€", "EUR"}, {"eur", "EUR"},
	{"$", "USD"}, {"usd", "USD"},
	{"£", "GBP"}, {"gbp", "GBP"},
}

// parsePrice parses a raw price string under the supported decimal
// conventions, in fixed priority order. Returns (nil, "UNKNOWN") when no
// convention yields a plausible value.
func (n *Normalizer) parsePrice(raw string) (*float64, string) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, listing.CurrencyUnknown
	}

	currency := listing.CurrencyUnknown
	for _, m := range currencyMarkers {
		if strings.Contains(s, m.marker) {
			currency = m.iso
			s = strings.ReplaceAll(s, m.marker, "")
			break
		}
	}

	// Keep digits, separators, and any minus sign. A negative value must
	// survive to ParseFloat so the positivity check below rejects it;
	// stripping the sign would silently flip it.
	s = strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return nil, listing.CurrencyUnknown
	}

	for _, candidate := range separatorCandidates(s, currency) {
		v, err := strconv.ParseFloat(candidate, 64)
		if err != nil {
			continue
		}
		if v > 0 && v < n.priceCeiling {
			return &v, currency
		}
	}

	return nil, listing.CurrencyUnknown
}

// separatorCandidates rewrites a digits-and-separators string into candidate
// ParseFloat inputs, ordered by convention priority. When both separators are
// present, the one appearing last is the decimal separator. With a comma
// alone, the recognized currency decides the order: dollar and pound prices
// read the comma as a thousands grouping first, everything else as a decimal
// comma first. A lone dot is tried as a decimal point before a thousands
// separator.
func separatorCandidates(s, currency string) []string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			// European convention: dot thousands, comma decimal.
			return []string{strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")}
		}
		// Anglophone convention: comma thousands, dot decimal.
		return []string{strings.ReplaceAll(s, ",", "")}

	case lastComma >= 0:
		decimal := strings.ReplaceAll(s, ",", ".")
		thousands := strings.ReplaceAll(s, ",", "")
		if currency == "USD" || currency == "GBP" {
			return []string{thousands, decimal}
		}
		return []string{decimal, thousands}

	case lastDot >= 0:
		return []string{
			s,
			strings.ReplaceAll(s, ".", ""),
		}

	default:
		return []string{s}
	}
}
