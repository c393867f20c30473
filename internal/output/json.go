package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/davetashner/priceowl/internal/listing"
)

func init() {
	RegisterFormatter(NewJSONFormatter())
}

// JSONEnvelope wraps the ranked groups with run metadata for the JSON output
// format.
type JSONEnvelope struct {
	Groups   []listing.ProductGroup `json:"groups"`
	Metadata JSONMetadata           `json:"metadata"`
}

// JSONMetadata contains information about the run that produced the groups.
type JSONMetadata struct {
	RunID            string              `json:"run_id"`
	TotalListings    int                 `json:"total_listings"`
	GroupCount       int                 `json:"group_count"`
	Method           listing.Method      `json:"method"`
	FallbackOccurred bool                `json:"fallback_occurred"`
	Summary          *listing.RunSummary `json:"summary,omitempty"`
	DurationMS       int64               `json:"duration_ms"`
	GeneratedAt      string              `json:"generated_at"`
}

// JSONFormatter writes the comparison result as a JSON object with a
// metadata envelope.
type JSONFormatter struct {
	// Compact controls whether output is compact (single line) or
	// pretty-printed. When false (default), output auto-detects: pretty for
	// TTYs, compact for pipes.
	Compact bool

	// nowFunc is used for testing to override the current time.
	nowFunc func() time.Time
}

// Compile-time interface check.
var _ Formatter = (*JSONFormatter)(nil)

// NewJSONFormatter returns a new JSONFormatter with default settings.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format writes the result as a JSON document with a metadata envelope to w.
func (f *JSONFormatter) Format(result *listing.CompareResult, w io.Writer) error {
	groups := result.Groups
	if groups == nil {
		groups = []listing.ProductGroup{}
	}

	now := time.Now()
	if f.nowFunc != nil {
		now = f.nowFunc()
	}

	envelope := JSONEnvelope{
		Groups: groups,
		Metadata: JSONMetadata{
			RunID:            result.RunID,
			TotalListings:    result.TotalListings,
			GroupCount:       result.GroupCount,
			Method:           result.Method,
			FallbackOccurred: result.FallbackOccurred,
			Summary:          result.Summary,
			DurationMS:       result.Duration.Milliseconds(),
			GeneratedAt:      now.UTC().Format("2006-01-02T15:04:05Z"),
		},
	}

	var data []byte
	var err error
	if f.shouldCompact(w) {
		data, err = json.Marshal(envelope)
	} else {
		data, err = json.MarshalIndent(envelope, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write json trailing newline: %w", err)
	}

	return nil
}

// shouldCompact determines whether to use compact mode. If Compact is
// explicitly set, use that value. Otherwise auto-detect: pretty-print for
// TTYs, compact for pipes.
func (f *JSONFormatter) shouldCompact(w io.Writer) bool {
	if f.Compact {
		return true
	}

	if file, ok := w.(*os.File); ok {
		fi, err := file.Stat()
		if err != nil {
			return false // default to pretty on error
		}
		if fi.Mode()&os.ModeCharDevice != 0 {
			return false // TTY -> pretty
		}
		return true // pipe/file -> compact
	}

	// For non-file writers (e.g., bytes.Buffer in tests), default to pretty.
	return false
}
