package models

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTokens(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "comma separated",
			raw:  "12345, 67890",
			want: []string{"12345", "67890"},
		},
		{
			name: "embedded in prose",
			raw:  "hi! my picks are 55555 and 66666, thanks",
			want: []string{"55555", "66666"},
		},
		{
			name: "short numbers ignored",
			raw:  "1234 12345",
			want: []string{"12345"},
		},
		{
			name: "duplicates collapse keeping first-seen order",
			raw:  "22222 11111 22222 11111",
			want: []string{"22222", "11111"},
		},
		{
			name: "no tokens",
			raw:  "just words",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTokens(tt.raw))
		})
	}
}

func TestParseTokensCapsAtLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MaxTokensPerEntry+5; i++ {
		fmt.Fprintf(&sb, " %06d", 100000+i)
	}

	got := ParseTokens(sb.String())
	assert.Len(t, got, MaxTokensPerEntry)
	// The first tokens in submission order survive the cap.
	assert.Equal(t, "100000", got[0])
}

func TestNormalizeDisplayName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare name", "  SomeUser ", "SomeUser"},
		{"people url", "https://example.com/people/SomeUser/", "SomeUser"},
		{"query url", "https://example.com/page?user=SomeUser&x=1", "SomeUser"},
		{"encoded name", "https://example.com/people/Some%20User/", "Some User"},
		{"unrecognized url", "https://example.com/about", ""},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDisplayName(tt.raw))
		})
	}
}
