package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// HashAttributes computes the content hash of a resolved attribute map.
// Keys are visited in sorted order so the hash is independent of map
// iteration; an unchanged desired state always hashes to the same value.
func HashAttributes(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(attrs[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
