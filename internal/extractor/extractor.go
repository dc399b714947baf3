// Package extractor normalizes fetched bytes into plain text plus a title.
// HTML goes through readability-style main-content extraction; plain text
// passes through; everything else is rejected before any oracle call is
// made. Extraction is deterministic for identical input bytes.
package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/seen-labs/seen/pkg/types"
)

// Extracted is normalized document text. Title may be empty for content
// types that carry none; Text may be empty for an empty page, which is not
// an error — the pipeline still records such a document.
type Extracted struct {
	Text  string
	Title string
}

// Extract maps a content type to its extraction strategy.
func Extract(body []byte, contentType, pageURL string) (*Extracted, error) {
	switch contentType {
	case "text/html", "application/xhtml+xml":
		return extractHTML(body, pageURL)
	case "text/plain", "text/markdown", "application/json":
		return &Extracted{Text: normalizeWhitespace(string(body))}, nil
	case "image/jpeg", "image/png", "image/gif", "application/pdf":
		// No text to index. The document is still archived with a title and
		// zero chunks.
		return &Extracted{Title: titleFromURL(pageURL)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedContentType, contentType)
	}
}

// titleFromURL falls back to the last path segment for content with no
// embedded title.
func titleFromURL(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return pageURL
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	return segments[len(segments)-1]
}

// extractHTML runs readability main-content extraction. Pages readability
// cannot parse at all fail; pages with no extractable body yield empty text
// with whatever title the document declares.
func extractHTML(body []byte, pageURL string) (*Extracted, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	return &Extracted{
		Text:  normalizeWhitespace(article.TextContent),
		Title: strings.TrimSpace(article.Title),
	}, nil
}

// normalizeWhitespace collapses runs of blank lines and trims trailing
// space so chunk offsets are stable across extractions.
func normalizeWhitespace(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			line = ""
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// extensions maps media types to blob key extensions. Unknown types store
// as .bin. This mirrors the layout existing archives already use.
var extensions = map[string]string{
	"text/html":              "html",
	"application/xhtml+xml":  "html",
	"application/pdf":        "pdf",
	"image/jpeg":             "jpg",
	"image/png":              "png",
	"image/gif":              "gif",
	"application/json":       "json",
	"text/plain":             "txt",
	"text/markdown":          "md",
	"text/css":               "css",
	"text/javascript":        "js",
	"application/javascript": "js",
	"application/xml":        "xml",
	"text/xml":               "xml",
}

// ExtensionFor returns the blob key extension for a media type.
func ExtensionFor(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	return "bin"
}

// TypeLabel returns a small display glyph for a media type, used when
// rendering saved-link and result cards.
func TypeLabel(contentType string) string {
	switch {
	case contentType == "text/html", contentType == "application/xhtml+xml":
		return "🌐"
	case contentType == "application/pdf":
		return "📄"
	case strings.HasPrefix(contentType, "image/"):
		return "🖼️"
	case contentType == "text/plain", contentType == "text/markdown":
		return "📝"
	default:
		return "📁"
	}
}
