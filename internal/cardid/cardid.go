// Package cardid derives stable, content-based identifiers for flashcards.
//
// Identifiers are a deterministic function of the card's question and answer
// text, so progress attached to a card survives re-imports of the same study
// set under a different file name. Older deployments generated random tokens
// instead; those are detectable (but not reversible) and callers are expected
// to discard progress keyed by them.
package cardid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Prefix marks identifiers produced by the current content-derived scheme.
// Detection of current-scheme ids is done by tag, not by pattern sniffing.
const Prefix = "v2:"

// legacyMinLength is the minimum length of an id from the old random-token
// scheme. Shorter strings are too ambiguous to classify as legacy.
const legacyMinLength = 16

// Derive returns the content-derived identifier for a card. Identical
// question/answer content always yields the identical identifier.
func Derive(front, back string) string {
	sum := sha256.Sum256([]byte(normalize(front) + "\x00" + normalize(back)))
	return Prefix + hex.EncodeToString(sum[:8])
}

// IsLegacy reports whether id appears to come from the old random-token
// identifier scheme. Ids carrying the current-scheme prefix are never
// legacy. Anything else is classified by shape: a long run of lowercase
// letters and digits containing at least one of each.
//
// The shape heuristic exists only for data persisted before the prefix was
// introduced; it can in principle misfire on an arbitrary external id, which
// is why new ids are tagged instead.
func IsLegacy(id string) bool {
	if strings.HasPrefix(id, Prefix) {
		return false
	}
	if len(id) < legacyMinLength {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

// normalize trims, lowercases, and collapses internal whitespace so that
// cosmetic editing of a CSV does not change a card's identity.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
