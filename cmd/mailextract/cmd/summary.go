package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/wesm/mailextract/internal/extract"
)

// summaryFields is the JSON form of sum. The date range is left out when no
// element was dated.
func summaryFields(sum *extract.Summary) map[string]any {
	out := map[string]any{
		"folders":           sum.Folders,
		"elements":          sum.Elements,
		"messages":          sum.Messages,
		"contacts":          sum.Contacts,
		"appointments":      sum.Appointments,
		"attached_messages": sum.AttachedMessages,
		"raw_bytes":         sum.RawBytes,
		"duration_ms":       sum.Duration.Milliseconds(),
	}
	if !sum.Begin.IsZero() {
		out["begin"] = sum.Begin.UTC().Format(time.RFC3339)
		out["end"] = sum.End.UTC().Format(time.RFC3339)
	}
	return out
}

func printSummary(w io.Writer, sum *extract.Summary, asJSON bool) error {
	if asJSON {
		out := summaryFields(sum)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "  Folders:          %d\n", sum.Folders)
	fmt.Fprintf(w, "  Elements:         %d\n", sum.Elements)
	fmt.Fprintf(w, "  Messages:         %d\n", sum.Messages)
	fmt.Fprintf(w, "  Contacts:         %d\n", sum.Contacts)
	fmt.Fprintf(w, "  Appointments:     %d\n", sum.Appointments)
	fmt.Fprintf(w, "  Attached msgs:    %d\n", sum.AttachedMessages)
	fmt.Fprintf(w, "  Size:             %.2f MB\n", float64(sum.RawBytes)/(1024*1024))
	if !sum.Begin.IsZero() {
		fmt.Fprintf(w, "  Dates:            %s to %s\n", sum.Begin.Format("2006-01-02"), sum.End.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "  Time:             %s\n", sum.Duration.Round(time.Millisecond))
	return nil
}
