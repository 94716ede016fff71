package models

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	// MaxTokensPerEntry bounds the number of tokens kept from one submission.
	MaxTokensPerEntry = 10
	// minTokenDigits avoids picking up short numeric noise as tokens.
	minTokenDigits = 5
)

var (
	tokenRx        = regexp.MustCompile(`\d{5,}`)
	nameFromLinkRx = regexp.MustCompile(`(?i)/people/([^/]+)/|[?&]user=([^&/#]+)`)
)

// ParseTokens extracts up to MaxTokensPerEntry unique numeric tokens from
// free-form text, preserving first-seen order. Tokens shorter than five
// digits are ignored.
func ParseTokens(raw string) []string {
	matches := tokenRx.FindAllString(raw, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, MaxTokensPerEntry)
	for _, token := range matches {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
		if len(out) >= MaxTokensPerEntry {
			break
		}
	}
	return out
}

// NormalizeDisplayName turns either a bare name or a profile URL into a bare
// name. Unrecognized URLs yield an empty string.
func NormalizeDisplayName(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "http") {
		return s
	}
	m := nameFromLinkRx.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	name := m[1]
	if name == "" {
		name = m[2]
	}
	if decoded, err := url.QueryUnescape(name); err == nil {
		return decoded
	}
	return name
}
