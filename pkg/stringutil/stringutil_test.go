package stringutil

import (
	"testing"
)

func TestMiddleEllipsis(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{
			name:      "No truncation needed",
			input:     "hello",
			maxLength: 10,
			expected:  "hello",
		},
		{
			name:      "String exactly maxLength",
			input:     "/srv/site",
			maxLength: 9,
			expected:  "/srv/site",
		},
		{
			name:      "Keeps both ends of a path",
			input:     "/home/user/projects/demo/public",
			maxLength: 28,
			expected:  "/home/user/pr.../demo/public",
		},
		{
			name:      "Leaf survives a deep path",
			input:     "/home/user/projects/very/deep/tree/site",
			maxLength: 20,
			expected:  "/home/use...ree/site",
		},
		{
			name:      "maxLength less than or equal to 3",
			input:     "abcdefg",
			maxLength: 3,
			expected:  "abc",
		},
		{
			name:      "maxLength zero",
			input:     "something",
			maxLength: 0,
			expected:  "",
		},
		{
			name:      "maxLength negative",
			input:     "something",
			maxLength: -1,
			expected:  "",
		},
		{
			name:      "Empty string",
			input:     "",
			maxLength: 5,
			expected:  "",
		},
		{
			name:      "Multibyte runes cut on rune boundaries",
			input:     "ünïcödé-päth-ünïcödé",
			maxLength: 10,
			expected:  "ünïc...ödé",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MiddleEllipsis(tt.input, tt.maxLength)
			if result != tt.expected {
				t.Errorf("MiddleEllipsis(%q, %d) = %q; want %q",
					tt.input, tt.maxLength, result, tt.expected)
			}
		})
	}
}
