package extraction

import "strings"

// NotFound is the value reported for a header with no matching data cell.
// The OCR service also emits it literally for fields it could not extract.
const NotFound = "Not found"

// Field is one labeled value extracted from an invoice
type Field struct {
	Label string `json:"field"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Normalize turns the service's two-row CSV into an ordered list of fields.
// Cells are split on raw commas (quoted commas are not special) and every
// double quote is removed. Output order follows the header row. Input with
// fewer than two non-empty lines yields an empty list.
func Normalize(csvText string) []Field {
	lines := strings.Split(strings.TrimSpace(csvText), "\n")
	if countNonEmpty(lines) < 2 {
		return []Field{}
	}

	headers := strings.Split(strings.TrimSuffix(lines[0], "\r"), ",")
	values := strings.Split(strings.TrimSuffix(lines[1], "\r"), ",")

	fields := make([]Field, 0, len(headers))
	for i, header := range headers {
		value := NotFound
		if i < len(values) && values[i] != "" {
			value = stripQuotes(values[i])
		}
		fields = append(fields, Field{
			Label: stripQuotes(header),
			Value: value,
			Found: value != NotFound,
		})
	}
	return fields
}

func stripQuotes(cell string) string {
	return strings.ReplaceAll(cell, `"`, "")
}

func countNonEmpty(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
