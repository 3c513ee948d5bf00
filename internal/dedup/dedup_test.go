package dedup

import (
	"math/rand"
	"strings"
	"testing"

	"go-kuensel-scraper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hotelsText  = "The Tourism Council of Bhutan certified twelve green hotels across the country this week after a year long assessment of energy use, waste handling and local sourcing by independent auditors."
	archeryText = "Archery team from Paro wins the gold medal at the regional tournament held in Kathmandu over the weekend with record scores in both the individual and team events."
)

func newPost(id, title, content string) models.Post {
	return models.Post{ID: id, Title: title, Content: content, Attachment: models.NewAttachment()}
}

func TestSimilar(t *testing.T) {
	opts := DefaultOptions()

	a := "Tourism minister opens new hotel in Thimphu today"
	b := "Tourism minister opens new hotel in Thimphu today."
	c := "Archery team wins gold at regional tournament"

	assert.True(t, Similar(a, b, opts))
	assert.False(t, Similar(a, c, opts))

	// a feed preview cut short before "See more" was expanded
	preview := hotelsText[:120] + "… See more"
	assert.True(t, Similar(preview, hotelsText, opts))
	assert.True(t, Similar(strings.ToUpper(hotelsText), hotelsText, opts))

	assert.False(t, Similar(hotelsText, archeryText, opts))
	assert.False(t, Similar("", hotelsText, opts))
}

func TestSimilar_ShortTextInsideLongUnrelatedText(t *testing.T) {
	short := "Road to Gasa reopens after landslide clearance work ends"
	long := strings.Repeat(archeryText+" ", 6)
	assert.False(t, Similar(short, long, DefaultOptions()))
}

// Similarity is word order sensitive: the same words in another order are a
// different post, even though every character of one appears in the other.
func TestSimilar_ReorderedWordsAreDifferent(t *testing.T) {
	opts := DefaultOptions()
	words := strings.Fields(hotelsText)

	swapped := strings.Join(append(append([]string{}, words[14:]...), words[:14]...), " ")
	assert.False(t, Similar(swapped, hotelsText, opts))

	reversed := make([]string, len(words))
	for i, w := range words {
		reversed[len(words)-1-i] = w
	}
	assert.False(t, Similar(strings.Join(reversed, " "), hotelsText, opts))

	// dropping a few words keeps the order and stays similar
	trimmed := strings.Join(append(append([]string{}, words[:10]...), words[13:]...), " ")
	assert.True(t, Similar(trimmed, hotelsText, opts))
}

func TestLCSLength(t *testing.T) {
	assert.Equal(t, 2, lcsLength([]rune("ab"), []rune("ab")))
	assert.Equal(t, 1, lcsLength([]rune("ab"), []rune("ba")))
	assert.Equal(t, 4, lcsLength([]rune("ABCBDAB"), []rune("BDCABA")))
	assert.Equal(t, 0, lcsLength([]rune(""), []rune("abc")))
	assert.Equal(t, 0, lcsLength([]rune("abc"), []rune("xyz")))
}

func naiveLCS(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func TestLCSLength_MatchesDynamicProgramming(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abcd")
	randomText := func(n int) []rune {
		out := make([]rune, n)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return out
	}

	for _, n := range []int{1, 5, 63, 64, 65, 130, 200} {
		a := randomText(n)
		b := randomText(rng.Intn(250) + 1)
		require.Equal(t, naiveLCS(a, b), lcsLength(a, b), "len(a)=%d len(b)=%d", len(a), len(b))
	}
}

func TestFilterBatch(t *testing.T) {
	s := NewSession(nil, DefaultOptions())
	prefix := strings.Repeat("x", 200)

	posts := []models.Post{
		newPost("1", "A", prefix+" first ending"),
		newPost("2", "B", prefix+" second ending"),
		newPost("3", "C", "Completely different content about the budget"),
		newPost("4", "D", "  COMPLETELY different   content about the budget"),
	}

	unique := s.FilterBatch(posts)
	require.Len(t, unique, 2)
	assert.Equal(t, "1", unique[0].ID)
	assert.Equal(t, "3", unique[1].ID)
}

func TestSessionCheck(t *testing.T) {
	s := NewSession(map[string]bool{"archived": true}, DefaultOptions())

	assert.Equal(t, StatusKnown, s.Check(newPost("archived", "Old", "Old archived content that is long enough")))

	hotels := newPost("h1", "Green hotels certified", hotelsText)
	require.Equal(t, StatusNew, s.Check(hotels))
	s.Accept(hotels)

	// same content prefix under a new id
	assert.Equal(t, StatusSeen, s.Check(newPost("h2", "Other title", hotelsText)))
	// same title, different body
	assert.Equal(t, StatusSeen, s.Check(newPost("h3", "Green hotels certified", archeryText)))
	// near-identical after "See more" expansion
	expanded := hotelsText + " The council plans a second round next spring."
	assert.Equal(t, StatusSimilar, s.Check(newPost("h4", "Expanded", "  "+expanded)))

	assert.Equal(t, StatusNew, s.Check(newPost("a1", "Archery gold", archeryText)))
	assert.Equal(t, 1, s.Len())
}

func TestSessionCompact(t *testing.T) {
	s := NewSession(nil, DefaultOptions())
	s.Accept(newPost("1", "Budget", "The budget was passed"))
	s.Accept(newPost("2", "BUDGET", "The  budget was PASSED"))
	s.Accept(newPost("3", "Archery", archeryText))

	assert.Equal(t, 2, s.Compact())
	ids := []string{}
	for _, p := range s.Accepted() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"1", "3"}, ids)
}

func TestSessionsDoNotShareState(t *testing.T) {
	first := NewSession(nil, DefaultOptions())
	first.Accept(newPost("1", "Budget", hotelsText))

	second := NewSession(nil, DefaultOptions())
	assert.Equal(t, StatusNew, second.Check(newPost("1", "Budget", hotelsText)))
}
