package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// summaryStopWords are excluded when picking topic tokens for a summary.
var summaryStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "and": true,
	"or": true, "it": true, "its": true, "my": true, "your": true, "with": true,
	"me": true, "can": true, "you": true, "i": true, "do": true, "how": true,
	"what": true, "about": true, "please": true, "want": true, "help": true,
	"this": true, "that": true, "have": true, "get": true, "show": true,
	"question": true, "questions": true, "tell": true, "explain": true,
}

// compressTurns collapses everything except the most recent turns into a
// single summary turn. The keep count is 70% of the threshold, so the
// session has headroom before compressing again.
func compressTurns(turns []Turn, threshold int) []Turn {
	keep := threshold * 7 / 10
	if len(turns) <= keep {
		return turns
	}

	dropped := turns[:len(turns)-keep]
	recent := turns[len(turns)-keep:]

	summary := Compress(dropped)

	out := make([]Turn, 0, keep+1)
	out = append(out, summary)
	out = append(out, recent...)
	return out
}

// Compress reduces a slice of turns to one system summary turn naming
// the main topics discussed. It is pure: the same input always yields
// the same summary, id included.
func Compress(old []Turn) Turn {
	topics := topTopics(old, 3)

	var content string
	switch len(topics) {
	case 0:
		content = fmt.Sprintf("Earlier in this conversation, %d messages were exchanged.", len(old))
	case 1:
		content = fmt.Sprintf("Earlier in this conversation, the user asked about %s.", topics[0])
	default:
		content = fmt.Sprintf("Earlier in this conversation, the user asked about %s and %s.",
			strings.Join(topics[:len(topics)-1], ", "), topics[len(topics)-1])
	}

	ts := old[len(old)-1].Timestamp

	h := sha256.New()
	for _, t := range old {
		h.Write([]byte(t.ID))
		h.Write([]byte{0})
	}
	id := "summary-" + hex.EncodeToString(h.Sum(nil))[:16]

	return Turn{
		ID:        id,
		Role:      RoleSystem,
		Content:   content,
		Timestamp: ts,
		Summary:   true,
	}
}

// topTopics returns the n most frequent non-stopword tokens from user
// turns, ties broken alphabetically so the result is deterministic.
func topTopics(turns []Turn, n int) []string {
	counts := make(map[string]int)
	for _, t := range turns {
		if t.Role != RoleUser {
			continue
		}
		for _, tok := range tokenPattern.FindAllString(strings.ToLower(t.Content), -1) {
			if len(tok) < 3 || summaryStopWords[tok] {
				continue
			}
			counts[tok]++
		}
	}

	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})

	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return tokens
}
