package review

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/zombor/invoice-review/internal/extraction"
)

// Status is the badge shown next to a field
func Status(f extraction.Field) string {
	if f.Found {
		return "Found"
	}
	return "Missing"
}

// WriteReport prints the extracted fields as an aligned table followed by the raw CSV
func WriteReport(w io.Writer, fields []extraction.Field, rawCSV string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE\tSTATUS\tHINT")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Label, f.Value, Status(f), HintFor(f.Label))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing fields: %w", err)
	}
	if len(fields) == 0 {
		fmt.Fprintln(w, "(no fields extracted)")
	}

	if _, err := fmt.Fprintf(w, "\nRaw CSV:\n%s\n", rawCSV); err != nil {
		return fmt.Errorf("writing raw CSV: %w", err)
	}
	return nil
}
