package output

import (
	"fmt"
	"io"

	"github.com/davetashner/priceowl/internal/listing"
)

func init() {
	RegisterFormatter(NewMarkdownFormatter())
}

// MarkdownFormatter writes the comparison result as a human-readable
// Markdown summary.
type MarkdownFormatter struct{}

// Compile-time interface check.
var _ Formatter = (*MarkdownFormatter)(nil)

// NewMarkdownFormatter returns a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Name returns the format name.
func (m *MarkdownFormatter) Name() string {
	return "markdown"
}

// Format writes the ranked groups as a Markdown document to w.
//
// The output includes:
//   - A title heading
//   - A summary line with listing/group counts and the matching method
//   - Run-wide price figures when available
//   - One section per group, ranked best savings first
func (m *MarkdownFormatter) Format(result *listing.CompareResult, w io.Writer) error {
	if err := writeHeader(w, result); err != nil {
		return err
	}

	for rank, g := range result.Groups {
		if err := writeGroupSection(w, rank+1, g); err != nil {
			return err
		}
	}

	return nil
}

// writeHeader writes the Markdown title, summary line, and run-wide figures.
func writeHeader(w io.Writer, result *listing.CompareResult) error {
	if _, err := fmt.Fprintf(w, "# Priceowl Comparison Results\n\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	method := string(result.Method)
	if result.FallbackOccurred {
		method += " (fallback occurred)"
	}
	if _, err := fmt.Fprintf(w, "%d listings in %d groups. Matching method: %s.\n\n",
		result.TotalListings, result.GroupCount, method); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if s := result.Summary; s != nil {
		if _, err := fmt.Fprintf(w, "Prices range %.2f to %.2f (average %.2f). Total savings opportunity: %.2f.\n\n",
			s.MinPrice, s.MaxPrice, s.AvgPrice, s.TotalSavings); err != nil {
			return fmt.Errorf("write summary figures: %w", err)
		}
	}

	return nil
}

// writeGroupSection writes one ranked group with its members and savings.
func writeGroupSection(w io.Writer, rank int, g listing.ProductGroup) error {
	if _, err := fmt.Fprintf(w, "## %d. %s\n\n", rank, g.RepresentativeName); err != nil {
		return fmt.Errorf("write group heading: %w", err)
	}

	for _, m := range g.Members {
		price := "n/a"
		if m.Price != nil {
			price = fmt.Sprintf("%.2f %s", *m.Price, m.Currency)
		}
		if _, err := fmt.Fprintf(w, "- **%s**: %s (%s)\n", m.SourceID, m.Original.RawName, price); err != nil {
			return fmt.Errorf("write member: %w", err)
		}
	}

	if err := writeGroupFooter(w, g); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "\n"); err != nil {
		return fmt.Errorf("write group trailer: %w", err)
	}
	return nil
}

func writeGroupFooter(w io.Writer, g listing.ProductGroup) error {
	if g.Savings != nil {
		if _, err := fmt.Fprintf(w, "\nSavings: %.2f (%.1f%%), matched %s, confidence %.2f\n",
			g.Savings.Absolute, g.Savings.Percent*100, g.Method, g.Confidence); err != nil {
			return fmt.Errorf("write savings: %w", err)
		}
		return nil
	}

	if _, err := fmt.Fprintf(w, "\nSavings unavailable, matched %s, confidence %.2f\n",
		g.Method, g.Confidence); err != nil {
		return fmt.Errorf("write savings: %w", err)
	}
	return nil
}
