package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/ragmesh/provider"
)

// Key is the semantic identity of a routing request: the declared capability,
// the optional explicit provider hint, the prompt text and the full parameter
// set. Two requests with the same Key are interchangeable and may share a
// cached response.
type Key struct {
	Capability string
	Provider   string // explicit provider hint, empty when unset
	Prompt     string
	Params     provider.Params
}

// Fingerprint computes the deterministic cache key for a Key. The prompt is
// whitespace-normalized first, so requests differing only in non-semantic
// whitespace fingerprint identically; every other field participates in the
// digest, so distinct parameter sets never collide (sha256 makes accidental
// collisions cryptographically negligible). Pure function: identical input
// always yields an identical fingerprint.
func Fingerprint(k Key) string {
	h := sha256.New()
	io.WriteString(h, k.Capability)
	h.Write([]byte{0})
	io.WriteString(h, k.Provider)
	h.Write([]byte{0})
	io.WriteString(h, NormalizePrompt(k.Prompt))
	h.Write([]byte{0})
	fmt.Fprintf(h, "temperature=%g|max_tokens=%d|top_p=%g",
		k.Params.Temperature, k.Params.MaxTokens, k.Params.TopP)
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizePrompt collapses every run of whitespace to a single space and
// trims leading/trailing whitespace.
func NormalizePrompt(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
