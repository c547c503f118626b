package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/brightpath/assistant/core/intent"
)

const keyDelimiter = "|"

// anonOwner stands in for the user id when the caller is not signed in.
const anonOwner = "anon"

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// fillerWords are dropped during normalization so trivially rephrased
// questions map to the same key.
var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"to": true, "of": true, "in": true, "on": true, "for": true,
	"please": true, "me": true, "can": true, "you": true, "i": true,
}

// normalizeMessage lowercases, strips punctuation, collapses whitespace,
// and removes filler words.
func normalizeMessage(message string) string {
	s := strings.ToLower(strings.TrimSpace(message))
	s = nonAlphanumeric.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if !fillerWords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// GenerateKey derives a deterministic cache key from the normalized
// message, the full user id, and optionally the classified intent.
// Hashing the complete user id keeps keys from colliding across users
// who share an id prefix.
func GenerateKey(message, userID string, in intent.Intent) string {
	owner := userID
	if owner == "" {
		owner = anonOwner
	}

	msgHash := sha256.Sum256([]byte(normalizeMessage(message)))
	ownerHash := sha256.Sum256([]byte(owner))

	parts := []string{
		hex.EncodeToString(msgHash[:]),
		hex.EncodeToString(ownerHash[:]),
	}
	if in != "" {
		parts = append(parts, string(in))
	}
	return strings.Join(parts, keyDelimiter)
}
