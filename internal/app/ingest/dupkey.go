package ingest

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// DeriveKey produces the duplicate key for a record from its identity
// fields. Fields are case-folded and trimmed, joined with a fixed separator
// and hashed with 64-bit FNV-1a; the base-36 digest is suffixed with the day
// bucket of the relevant timestamp to keep keys legible and to reduce
// accidental cross-day collisions.
//
// Identity field sets are deliberately narrow per format so that drift in a
// non-identity field (a reworded description, say) does not spawn a second
// record for the same underlying event.
func DeriveKey(day time.Time, identity ...string) string {
	h := fnv.New64a()
	for i, field := range identity {
		if i > 0 {
			h.Write([]byte("|"))
		}
		h.Write([]byte(strings.ToLower(strings.TrimSpace(field))))
	}
	return strconv.FormatUint(h.Sum64(), 36) + "-" + day.UTC().Format("20060102")
}
