// Package cache stores LLM summary responses so re-running detection on
// unchanged inputs does not repeat API calls.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-value store with per-entry TTL.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// SummaryKey derives a cache key from the summarizer provider/model and a
// fingerprint of the report content being summarized.
func SummaryKey(provider, model string, fingerprint []byte) string {
	hash := sha256.New()
	hash.Write([]byte(provider))
	hash.Write([]byte{0})
	hash.Write([]byte(model))
	hash.Write([]byte{0})
	hash.Write(fingerprint)
	return "quotedetect:v1:" + hex.EncodeToString(hash.Sum(nil))
}
