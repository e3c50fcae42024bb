package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// normalizeText collapses runs of whitespace to single spaces and
// trims the ends, so texts that differ only in formatting share one
// cache entry. Case is preserved: "Go" and "go" embed differently.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// cacheKey derives the cache key for one text under one model. Keys
// are model-qualified so switching models never serves stale vectors.
func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(normalizeText(text)))
	return hex.EncodeToString(h.Sum(nil))
}
