package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secboard/api/pkg/domain/shared"
)

func TestTokenize(t *testing.T) {
	t.Run("splits simple records", func(t *testing.T) {
		records, err := Tokenize("a,b,c\n1,2,3\n4,5,6")
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"a", "b", "c"}, records[0])
		assert.Equal(t, []string{"4", "5", "6"}, records[2])
	})

	t.Run("keeps quoted commas in one field", func(t *testing.T) {
		records, err := Tokenize("name,desc\nalert,\"one, two, three\"")
		require.NoError(t, err)
		assert.Equal(t, []string{"alert", "one, two, three"}, records[1])
	})

	t.Run("unescapes backslash escaped quotes", func(t *testing.T) {
		records, err := Tokenize("a,b\n" + `"said \"hi\"",x`)
		require.NoError(t, err)
		assert.Equal(t, `said "hi"`, records[1][0])
	})

	t.Run("keeps quoted newlines in one record", func(t *testing.T) {
		records, err := Tokenize("a,b\n\"line one\nline two\",x")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "line one\nline two", records[1][0])
	})

	t.Run("does not split inside unquoted brackets", func(t *testing.T) {
		records, err := Tokenize("a,b,c\nx,[1,2,3],y")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "[1,2,3]", "y"}, records[1])
	})

	t.Run("does not split inside unquoted braces", func(t *testing.T) {
		records, err := Tokenize("a,b\n{\"k\": 1, \"v\": 2},x")
		require.NoError(t, err)
		require.Len(t, records[1], 2)
		assert.Equal(t, "x", records[1][1])
	})

	t.Run("handles CRLF line endings", func(t *testing.T) {
		records, err := Tokenize("a,b\r\n1,2\r\n")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"1", "2"}, records[1])
	})

	t.Run("skips blank lines", func(t *testing.T) {
		records, err := Tokenize("a,b\n\n1,2\n   \n")
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("trims whitespace around fields", func(t *testing.T) {
		records, err := Tokenize("a,b\n  x  ,  y  ")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, records[1])
	})

	t.Run("rejects header-only files", func(t *testing.T) {
		_, err := Tokenize("a,b,c\n")
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrMalformedInput)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		_, err := Tokenize("")
		assert.ErrorIs(t, err, shared.ErrMalformedInput)
	})
}

func TestPadRow(t *testing.T) {
	padded := padRow([]string{"a"}, 3)
	assert.Equal(t, []string{"a", "", ""}, padded)

	same := padRow([]string{"a", "b", "c"}, 3)
	assert.Equal(t, []string{"a", "b", "c"}, same)
}

func TestCleanField(t *testing.T) {
	assert.Equal(t, "x", cleanField(`  "x"  `))
	assert.Equal(t, `a "b" c`, cleanField(`"a \"b\" c"`))
	assert.Equal(t, "", cleanField("   "))
	// A lone quote is not a quoted field.
	assert.Equal(t, `"x`, cleanField(`"x`))
}

func TestDecodeText(t *testing.T) {
	t.Run("plain UTF-8 passes through", func(t *testing.T) {
		s, err := DecodeText([]byte("a,b\n1,2"))
		require.NoError(t, err)
		assert.Equal(t, "a,b\n1,2", s)
	})

	t.Run("strips UTF-8 BOM", func(t *testing.T) {
		s, err := DecodeText(append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b")...))
		require.NoError(t, err)
		assert.Equal(t, "a,b", s)
	})

	t.Run("decodes UTF-16LE with BOM", func(t *testing.T) {
		var buf []byte
		buf = append(buf, 0xFF, 0xFE)
		for _, r := range "a,b" {
			buf = append(buf, byte(r), 0x00)
		}
		s, err := DecodeText(buf)
		require.NoError(t, err)
		assert.Equal(t, "a,b", s)
	})
}

func TestTokenizeLargeQuotedField(t *testing.T) {
	desc := strings.Repeat("long text, with commas, ", 100)
	records, err := Tokenize("a,b\n\"" + desc + "\",x")
	require.NoError(t, err)
	require.Len(t, records[1], 2)
	assert.Equal(t, "x", records[1][1])
}
