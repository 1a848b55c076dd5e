package browser

import (
	"testing"

	"github.com/chromedp/cdproto/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownToHTML(t *testing.T) {
	md := "# Answers\n\n| Q | A |\n|---|---|\n| 1 | yes |\n\n~~draft~~\n"
	doc, err := MarkdownToHTML("Unit <1>", md)
	require.NoError(t, err)

	assert.Contains(t, doc, "<title>Unit &lt;1&gt;</title>")
	assert.Contains(t, doc, "<h1>Answers</h1>")
	assert.Contains(t, doc, "<table>")
	assert.Contains(t, doc, "<td>yes</td>")
	assert.Contains(t, doc, "<del>draft</del>")
}

func TestQuadClip(t *testing.T) {
	clip, err := quadClip(dom.Quad{10.2, 20, 110.2, 20, 110.2, 70.6, 10.2, 70.6})
	require.NoError(t, err)
	assert.Equal(t, 10.0, clip.X)
	assert.Equal(t, 20.0, clip.Y)
	assert.Equal(t, 100.0, clip.Width)
	assert.Equal(t, 51.0, clip.Height)
	assert.Equal(t, 1.0, clip.Scale)

	_, err = quadClip(dom.Quad{1, 1, 1, 1, 1, 1, 1, 1})
	assert.ErrorIs(t, err, errEmptyBox)
	_, err = quadClip(nil)
	assert.ErrorIs(t, err, errEmptyBox)
}
