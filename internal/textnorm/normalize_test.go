package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "joins lines with a space",
			input:    "Flood warning\nissued for\nPunakha",
			expected: "Flood warning issued for Punakha",
		},
		{
			name:     "tabs and carriage returns separate words",
			input:    "a\tb\r\nc",
			expected: "a b c",
		},
		{
			name:     "text nodes joined by the selector",
			input:    "Kuensel\nThe National Assembly\nendorsed the\nbudget",
			expected: "Kuensel The National Assembly endorsed the budget",
		},
		{
			name:     "decodes entities",
			input:    "Hotel &amp; resort opens in Thimphu",
			expected: "Hotel & resort opens in Thimphu",
		},
		{
			name:     "strips header chrome and interaction bar",
			input:    "Kuensel · 4h · Shared with Public Green hotels certified today. Like Comment Share",
			expected: "Green hotels certified today.",
		},
		{
			name:     "strips relative time and verified marker",
			input:    "Verified account 2 hours ago · Road works begin on Monday",
			expected: "Road works begin on Monday",
		},
		{
			name:     "strips trailing reactions block",
			input:    "Archery finals held at Changlimithang All reactions: 199 38 6",
			expected: "Archery finals held at Changlimithang",
		},
		{
			name:     "strips comment prompt",
			input:    "Budget passed by the assembly View more comments Pema: great",
			expected: "Budget passed by the assembly",
		},
		{
			name:     "keeps words that only contain like or share",
			input:    "Rain is likely and farmers shared their harvest",
			expected: "Rain is likely and farmers shared their harvest",
		},
		{
			name:     "collapses whitespace",
			input:    "Line one\n\n  line   two\t",
			expected: "Line one line two",
		},
		{
			name:     "removes control characters",
			input:    "abc\x00def",
			expected: "abcdef",
		},
		{
			name:     "drops characters outside the basic plane",
			input:    "Hello 😀 world",
			expected: "Hello world",
		},
		{
			name:     "keeps non latin script",
			input:    "འབྲུག་ news",
			expected: "འབྲུག་ news",
		},
		{
			name:     "collapses repeated punctuation",
			input:    "Wow!!!!! Really?!?",
			expected: "Wow!!! Really???",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestCleanIsDeterministic(t *testing.T) {
	input := "Kuensel · 3h · Farmers market reopens!!!! Like Comment"
	assert.Equal(t, Clean(input), Clean(input))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "tourism minister opens new hotel", Fold("Tourism  Minister opens, new hotel!"))
	assert.Equal(t, "cafe", Fold("Café"))
	assert.Equal(t, Fold("Hello world."), Fold("hello   WORLD"))
	// Tibetan vowel signs and subjoined letters are combining marks
	assert.Equal(t, "འབྲུག news", Fold("འབྲུག་ News"))
	assert.NotEqual(t, Fold("འབྲུག"), Fold("འབག"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "ab", Truncate("ab", 3))
	assert.Equal(t, "", Truncate("ab", 0))
	assert.Equal(t, "འབ", Truncate("འབྲུག", 2))
}

func TestHasAlnum(t *testing.T) {
	assert.True(t, HasAlnum("...a"))
	assert.True(t, HasAlnum("42"))
	assert.False(t, HasAlnum("?!. ..."))
}
