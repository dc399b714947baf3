package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seen-labs/seen/pkg/types"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head><title>Migrating Databases Safely</title></head>
<body>
<nav><a href="/">home</a><a href="/about">about</a></nav>
<article>
<h1>Migrating Databases Safely</h1>
<p>Schema migrations are risky because they change shared state while the
application is still serving traffic. The safest migrations are additive:
new columns with defaults, new tables, new indexes built concurrently.</p>
<p>Destructive changes need a two-phase deploy. First stop reading the old
column, then drop it in a later release once no running code references it.</p>
</article>
<footer>copyright</footer>
</body>
</html>`

func TestExtract_HTML(t *testing.T) {
	got, err := Extract([]byte(sampleHTML), "text/html", "https://example.com/post")
	require.NoError(t, err)

	assert.Equal(t, "Migrating Databases Safely", got.Title)
	assert.Contains(t, got.Text, "Schema migrations are risky")
	assert.Contains(t, got.Text, "two-phase deploy")
	assert.NotContains(t, got.Text, "<p>")
}

func TestExtract_Deterministic(t *testing.T) {
	a, err := Extract([]byte(sampleHTML), "text/html", "https://example.com/post")
	require.NoError(t, err)
	b, err := Extract([]byte(sampleHTML), "text/html", "https://example.com/post")
	require.NoError(t, err)

	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Title, b.Title)
}

func TestExtract_PlainText(t *testing.T) {
	got, err := Extract([]byte("line one\r\n\r\n\r\nline two  \n"), "text/plain", "")
	require.NoError(t, err)

	assert.Equal(t, "line one\n\nline two", got.Text)
	assert.Empty(t, got.Title)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract([]byte("binary"), "application/octet-stream", "")
	assert.ErrorIs(t, err, types.ErrUnsupportedContentType)

	_, err = Extract([]byte("%!"), "application/zip", "")
	assert.ErrorIs(t, err, types.ErrUnsupportedContentType)
}

func TestExtract_ImageHasTitleNoText(t *testing.T) {
	got, err := Extract([]byte{0xFF, 0xD8}, "image/jpeg", "https://example.com/photos/sunset.jpg")
	require.NoError(t, err)

	assert.Empty(t, got.Text)
	assert.Equal(t, "sunset.jpg", got.Title)
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"text/html":                "html",
		"application/pdf":          "pdf",
		"image/jpeg":               "jpg",
		"text/plain":               "txt",
		"application/octet-stream": "bin",
		"application/wasm":         "bin",
	}
	for ct, want := range tests {
		assert.Equal(t, want, ExtensionFor(ct), ct)
	}
}

func TestTypeLabel(t *testing.T) {
	assert.Equal(t, "🌐", TypeLabel("text/html"))
	assert.Equal(t, "🖼️", TypeLabel("image/png"))
	assert.Equal(t, "📁", TypeLabel("application/zip"))
}
