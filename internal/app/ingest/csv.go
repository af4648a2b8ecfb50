package ingest

import (
	"fmt"
	"strings"

	"github.com/secboard/api/pkg/domain/shared"
)

// Tokenize splits raw CSV text into logical records. The dialect accepted
// here deviates from RFC 4180 in one way, preserved for compatibility with
// existing exports: embedded quotes inside quoted fields are escaped with a
// backslash, not doubled.
//
// Quoted fields may contain commas and newlines. Outside quotes, commas
// inside bracket or brace nesting (JSON-like fragments some vendors embed
// unquoted) do not split fields.
//
// The file must contain a header record plus at least one data record.
func Tokenize(text string) ([][]string, error) {
	lines := splitRecords(text)

	records := make([][]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, splitFields(line))
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%w: file needs a header row and at least one data row, got %d record(s)", shared.ErrMalformedInput, len(records))
	}
	if len(records) > MaxRowsPerFile+1 {
		return nil, fmt.Errorf("%w: file exceeds %d rows", shared.ErrMalformedInput, MaxRowsPerFile)
	}
	return records, nil
}

// splitRecords breaks text into logical records, keeping quoted newlines
// inside a single record. A quote toggles state only when the preceding
// character is not a backslash.
func splitRecords(text string) []string {
	var records []string
	var cur strings.Builder
	inQuotes := false
	prev := byte(0)

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch ch {
		case '"':
			if prev != '\\' {
				inQuotes = !inQuotes
			}
			cur.WriteByte(ch)
		case '\n':
			if inQuotes {
				cur.WriteByte(ch)
			} else {
				records = append(records, cur.String())
				cur.Reset()
			}
		case '\r':
			if inQuotes {
				cur.WriteByte(ch)
			} else if i+1 < len(text) && text[i+1] == '\n' {
				// CRLF handled by the LF branch
			} else {
				records = append(records, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(ch)
		}
		prev = ch
	}
	if cur.Len() > 0 {
		records = append(records, cur.String())
	}
	return records
}

// splitFields breaks one logical record into cleaned field values.
func splitFields(record string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	depth := 0
	prev := byte(0)

	for i := 0; i < len(record); i++ {
		ch := record[i]
		switch ch {
		case '"':
			if prev != '\\' {
				inQuotes = !inQuotes
			}
			cur.WriteByte(ch)
		case '[', '{':
			if !inQuotes {
				depth++
			}
			cur.WriteByte(ch)
		case ']', '}':
			if !inQuotes && depth > 0 {
				depth--
			}
			cur.WriteByte(ch)
		case ',':
			if inQuotes || depth > 0 {
				cur.WriteByte(ch)
			} else {
				fields = append(fields, cleanField(cur.String()))
				cur.Reset()
			}
		default:
			cur.WriteByte(ch)
		}
		prev = ch
	}
	fields = append(fields, cleanField(cur.String()))
	return fields
}

// cleanField trims a raw field, strips one layer of surrounding double
// quotes and unescapes backslash-escaped quotes.
func cleanField(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, `\"`, `"`)
	return strings.TrimSpace(s)
}

// padRow right-pads a short row with empty strings up to the header width.
// Some exporters truncate trailing empty fields; those rows are tolerated,
// not rejected.
func padRow(fields []string, width int) []string {
	for len(fields) < width {
		fields = append(fields, "")
	}
	return fields
}
