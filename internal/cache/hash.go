package cache

import (
	"encoding/hex"
	"hash/fnv"
)

// ContentHash fingerprints original text for cache addressing. FNV-64a is
// not collision-proof; a collision costs a wrong cache hit, not data loss.
// The hex form is stable across process restarts and safe as a DB key.
func ContentHash(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
