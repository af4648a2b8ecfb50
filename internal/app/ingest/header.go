package ingest

import (
	"strings"
)

// FieldSpec declares how one canonical field is located in a header row.
// Synonyms are tried in priority order; when none match, Fallback gives the
// column index for legacy exports with stable but undocumented ordering.
// A Fallback of -1 means the field is simply absent when unnamed.
type FieldSpec struct {
	Name     string
	Synonyms []string
	Fallback int
}

// HeaderIndex maps canonical field names to resolved column indices.
// An index of -1 marks a field that could not be located.
type HeaderIndex map[string]int

// ResolveHeader builds the canonical-field to column-index lookup from a
// parsed header row. Built once per file, reused for every row.
func ResolveHeader(header []string, specs []FieldSpec) HeaderIndex {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		norm := normalizeHeaderName(h)
		if norm == "" {
			continue
		}
		// First occurrence wins when a header repeats a name.
		if _, exists := byName[norm]; !exists {
			byName[norm] = i
		}
	}

	idx := make(HeaderIndex, len(specs))
	for _, spec := range specs {
		idx[spec.Name] = resolveField(byName, spec, len(header))
	}
	return idx
}

func resolveField(byName map[string]int, spec FieldSpec, width int) int {
	for _, syn := range spec.Synonyms {
		if col, ok := byName[normalizeHeaderName(syn)]; ok {
			return col
		}
	}
	if spec.Fallback >= 0 && spec.Fallback < width {
		return spec.Fallback
	}
	return -1
}

// normalizeHeaderName lowercases and collapses every run of non-alphanumeric
// characters to a single space, so "IP Addresses", "ip-addresses" and
// "IP_Addresses" compare equal.
func normalizeHeaderName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if alnum {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Row pairs one tokenized record with its resolved header lookup.
type Row struct {
	fields []string
	header []string
	idx    HeaderIndex
}

// NewRow builds a row accessor. Short rows must be padded by the caller
// before construction.
func NewRow(fields, header []string, idx HeaderIndex) Row {
	return Row{fields: fields, header: header, idx: idx}
}

// Get returns the trimmed value of a canonical field, or "" when the field
// is unresolved or out of range.
func (r Row) Get(name string) string {
	col, ok := r.idx[name]
	if !ok || col < 0 || col >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[col])
}

// Raw returns the original field values keyed by their header names, for
// formats that preserve unmapped vendor columns.
func (r Row) Raw() map[string]string {
	raw := make(map[string]string, len(r.header))
	for i, h := range r.header {
		name := strings.TrimSpace(h)
		if name == "" || i >= len(r.fields) {
			continue
		}
		raw[name] = r.fields[i]
	}
	return raw
}
