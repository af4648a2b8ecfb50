package ingest

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/secboard/api/pkg/domain/shared"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts raw upload bytes to a UTF-8 string. Some vendor
// consoles export UTF-16 with a BOM; everything else is treated as UTF-8
// with an optional BOM stripped.
func DecodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
		decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			return "", fmt.Errorf("%w: UTF-16 decode failed: %v", shared.ErrMalformedInput, err)
		}
		return string(decoded), nil
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), nil
	default:
		return string(data), nil
	}
}
