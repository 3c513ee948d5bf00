package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCommentLine(t *testing.T) {
	comments := []string{
		"Pema Wangmo commented: congratulations",
		"12 likes",
		"Reply",
		"Karma replied: thank you",
		"3 days ago",
		"Most relevant",
		"View 4 replies",
		"Write a comment...",
		"Sonam and 5 others like this",
		"How about the farmers?",
		"Why?",
	}
	for _, line := range comments {
		assert.True(t, IsCommentLine(line), line)
	}

	body := []string{
		"The National Assembly passed the budget on Friday.",
		"Thimphu Thromde announced new parking rules.",
		"Likes and dislikes aside, the plan moves forward.",
	}
	for _, line := range body {
		assert.False(t, IsCommentLine(line), line)
	}
}

func TestFilterCommentLines(t *testing.T) {
	input := "Farmers in Punakha harvested early this year.\n\n  Rice prices are expected to fall.  \nLike\nPema commented: good news\n5 mins ago"
	expected := "Farmers in Punakha harvested early this year.\nRice prices are expected to fall."

	assert.Equal(t, expected, FilterCommentLines(input))
	assert.Equal(t, "", FilterCommentLines(""))
	assert.Equal(t, "", FilterCommentLines("Reply\nShare"))
}
