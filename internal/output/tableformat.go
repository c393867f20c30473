// Copyright 2026 The Priceowl Authors
// SPDX-License-Identifier: MIT

package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/davetashner/priceowl/internal/listing"
)

func init() {
	RegisterFormatter(NewTableFormatter())
}

// Shared color printers for table cells.
var (
	colorRed    = color.New(color.FgRed)
	colorYellow = color.New(color.FgYellow)
	colorGreen  = color.New(color.FgGreen)
	colorBold   = color.New(color.Bold)
)

// TableFormatter writes the ranked groups as an aligned, colored text table,
// followed by a short run summary.
type TableFormatter struct{}

// Compile-time interface check.
var _ Formatter = (*TableFormatter)(nil)

// NewTableFormatter returns a new TableFormatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the format name.
func (t *TableFormatter) Name() string {
	return "table"
}

// Format writes the comparison result as a table to w.
func (t *TableFormatter) Format(result *listing.CompareResult, w io.Writer) error {
	title := fmt.Sprintf("%d listings in %d groups (method: %s)",
		result.TotalListings, result.GroupCount, result.Method)
	if result.FallbackOccurred {
		title += ", fallback occurred"
	}
	if _, err := fmt.Fprintf(w, "%s\n\n", colorBold.Sprint(title)); err != nil {
		return fmt.Errorf("write table title: %w", err)
	}

	table := NewTable(
		Column{Header: "#", Align: AlignRight},
		Column{Header: "PRODUCT"},
		Column{Header: "MEMBERS", Align: AlignRight},
		Column{Header: "MIN", Align: AlignRight},
		Column{Header: "MAX", Align: AlignRight},
		Column{Header: "AVG", Align: AlignRight},
		Column{Header: "SAVINGS", Align: AlignRight, Color: ColorSavings},
		Column{Header: "METHOD", Color: ColorMethod},
	)

	for rank, g := range result.Groups {
		min, max, avg := "-", "-", "-"
		if g.Stats != nil {
			min = formatPrice(g.Stats.Min)
			max = formatPrice(g.Stats.Max)
			avg = formatPrice(g.Stats.Average)
		}
		savings := "n/a"
		if g.Savings != nil {
			savings = fmt.Sprintf("%.1f%%", g.Savings.Percent*100)
		}

		table.AddRow(
			strconv.Itoa(rank+1),
			g.RepresentativeName,
			strconv.Itoa(len(g.Members)),
			min, max, avg,
			savings,
			string(g.Method),
		)
	}

	if err := table.Render(w); err != nil {
		return err
	}

	return writeRunSummary(w, result.Summary)
}

// writeRunSummary prints the run-wide figures below the table.
func writeRunSummary(w io.Writer, s *listing.RunSummary) error {
	if s == nil {
		return nil
	}
	_, err := fmt.Fprintf(w, "\n  Prices %s to %s (avg %s), total savings opportunity %s\n",
		formatPrice(s.MinPrice), formatPrice(s.MaxPrice),
		formatPrice(s.AvgPrice), formatPrice(s.TotalSavings))
	if err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}

// ColorSavings colors a savings-percent cell: green above 15%, yellow above
// 5%, default below, red for "n/a".
func ColorSavings(val string) string {
	if val == "n/a" {
		return colorRed.Sprint(val)
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(val, "%"), 64)
	if err != nil {
		return val
	}
	switch {
	case pct >= 15:
		return colorGreen.Sprint(val)
	case pct >= 5:
		return colorYellow.Sprint(val)
	default:
		return val
	}
}

// ColorMethod colors the matching-method cell.
func ColorMethod(val string) string {
	switch listing.Method(val) {
	case listing.MethodSemantic:
		return colorGreen.Sprint(val)
	case listing.MethodMixed:
		return colorYellow.Sprint(val)
	default:
		return val
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
