package source

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldSelectors_FirstMatchWins(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<div class="card">
			<h3 class="new-title">New Layout Title</h3>
			<span class="old-title">Old Layout Title</span>
		</div>`))
	require.NoError(t, err)
	card := doc.Find(".card")

	fs := FieldSelectors{".missing", ".new-title", ".old-title"}
	assert.Equal(t, "New Layout Title", fs.Text(card))

	fs = FieldSelectors{".old-title", ".new-title"}
	assert.Equal(t, "Old Layout Title", fs.Text(card))

	fs = FieldSelectors{".missing", ".also-missing"}
	assert.Equal(t, "", fs.Text(card))
}

func TestFieldSelectors_Attr(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<div class="card">
			<a class="detail" href="/internship/detail/123">View</a>
		</div>`))
	require.NoError(t, err)
	card := doc.Find(".card")

	fs := FieldSelectors{".missing", ".detail"}
	assert.Equal(t, "/internship/detail/123", fs.Attr(card, "href"))
	assert.Equal(t, "", fs.Attr(card, "data-href"))
}

func TestLooksBlocked(t *testing.T) {
	assert.True(t, LooksBlocked("Just a moment..."))
	assert.True(t, LooksBlocked("Attention Required! | Cloudflare"))
	assert.False(t, LooksBlocked("Python Internships in India"))
}

func TestCleanKeyword(t *testing.T) {
	assert.Equal(t, "web development", CleanKeyword("Web Development Internship"))
	assert.Equal(t, "python", CleanKeyword("python intern job"))
	assert.Equal(t, "internship", CleanKeyword("Internship"))
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://internshala.com/internship/detail/123",
		AbsoluteURL("https://internshala.com", "/internship/detail/123"))
	assert.Equal(t, "https://elsewhere.com/x",
		AbsoluteURL("https://internshala.com", "https://elsewhere.com/x"))
	assert.Equal(t, "", AbsoluteURL("https://internshala.com", "  "))
}
