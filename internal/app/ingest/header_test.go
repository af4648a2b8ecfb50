package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeaderName(t *testing.T) {
	cases := map[string]string{
		"IP Addresses":   "ip addresses",
		"ip-addresses":   "ip addresses",
		"IP_Addresses":   "ip addresses",
		"  Severity  ":   "severity",
		"MITRE ATT&CK":   "mitre att ck",
		"Won't Fix":      "won t fix",
		"":               "",
		"---":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeHeaderName(in), "input %q", in)
	}
}

func TestResolveHeader(t *testing.T) {
	specs := []FieldSpec{
		{Name: "title", Synonyms: []string{"Alert Title", "Title"}, Fallback: 0},
		{Name: "severity", Synonyms: []string{"Severity", "Priority"}, Fallback: 1},
		{Name: "host", Synonyms: []string{"Hostname"}, Fallback: -1},
	}

	t.Run("matches synonyms in priority order", func(t *testing.T) {
		idx := ResolveHeader([]string{"Title", "Alert Title", "Priority"}, specs)
		// "Alert Title" outranks "Title" even though "Title" comes first
		// in the header row.
		assert.Equal(t, 1, idx["title"])
		assert.Equal(t, 2, idx["severity"])
	})

	t.Run("matches case and punctuation variants", func(t *testing.T) {
		idx := ResolveHeader([]string{"alert_title", "SEVERITY"}, specs)
		assert.Equal(t, 0, idx["title"])
		assert.Equal(t, 1, idx["severity"])
	})

	t.Run("falls back to fixed column when unnamed", func(t *testing.T) {
		idx := ResolveHeader([]string{"colA", "colB"}, specs)
		assert.Equal(t, 0, idx["title"])
		assert.Equal(t, 1, idx["severity"])
	})

	t.Run("fallback outside header width resolves to absent", func(t *testing.T) {
		wide := []FieldSpec{{Name: "x", Synonyms: []string{"X"}, Fallback: 9}}
		idx := ResolveHeader([]string{"a", "b"}, wide)
		assert.Equal(t, -1, idx["x"])
	})

	t.Run("negative fallback means absent", func(t *testing.T) {
		idx := ResolveHeader([]string{"colA", "colB"}, specs)
		assert.Equal(t, -1, idx["host"])
	})

	t.Run("first occurrence wins on repeated names", func(t *testing.T) {
		idx := ResolveHeader([]string{"Severity", "Severity"}, specs)
		assert.Equal(t, 0, idx["severity"])
	})
}

func TestRowGet(t *testing.T) {
	specs := []FieldSpec{
		{Name: "title", Synonyms: []string{"Title"}, Fallback: -1},
		{Name: "host", Synonyms: []string{"Hostname"}, Fallback: -1},
	}
	header := []string{"Title", "Severity"}
	idx := ResolveHeader(header, specs)
	row := NewRow([]string{"  Suspicious Login  ", "high"}, header, idx)

	assert.Equal(t, "Suspicious Login", row.Get("title"))
	assert.Equal(t, "", row.Get("host"), "unresolved field")
	assert.Equal(t, "", row.Get("nonexistent"))
}

func TestRowRaw(t *testing.T) {
	header := []string{"Title", "", "Extra"}
	row := NewRow([]string{"a", "b", "c"}, header, HeaderIndex{})

	raw := row.Raw()
	assert.Equal(t, map[string]string{"Title": "a", "Extra": "c"}, raw)
}
