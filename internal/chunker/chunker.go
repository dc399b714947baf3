// Package chunker splits normalized document text into bounded-size
// segments for embedding.
//
// Splitting is paragraph-first: blank-line boundaries are the preferred
// break points, then sentence boundaries within oversized paragraphs, and
// only a sentence that alone exceeds the cap is hard-cut. Original order is
// always preserved and offsets index into the normalized text, so a chunk
// can be located in the source document later.
package chunker

import (
	"strings"
	"unicode"

	"github.com/seen-labs/seen/pkg/types"
)

// DefaultMaxChars is the chunk size cap used when none is configured.
// Sized for embedding models that degrade past ~512 tokens.
const DefaultMaxChars = 1200

// Split divides text into chunks of at most maxChars characters each.
// Empty or whitespace-only text yields no chunks; the document is still
// ingestable (a title-only record, e.g. an image page).
func Split(text string, maxChars int) []types.Chunk {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []types.Chunk
	var buf strings.Builder
	bufStart, bufEnd := 0, 0

	flush := func() {
		content := strings.TrimSpace(buf.String())
		if content != "" {
			chunks = append(chunks, types.Chunk{
				Index:   len(chunks),
				Content: content,
				Start:   bufStart,
				End:     bufEnd,
			})
		}
		buf.Reset()
	}

	for _, p := range paragraphs(text) {
		if buf.Len() > 0 && buf.Len()+len(p.text)+2 > maxChars {
			flush()
		}
		if buf.Len() == 0 {
			bufStart = p.start
		}

		if len(p.text) <= maxChars {
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(p.text)
			bufEnd = p.end
			continue
		}

		// Paragraph alone exceeds the cap: emit what we have, then pack
		// its sentences.
		flush()
		for _, s := range packSentences(p.text, maxChars) {
			chunks = append(chunks, types.Chunk{
				Index:   len(chunks),
				Content: s.text,
				Start:   p.start + s.start,
				End:     p.start + s.end,
			})
		}
	}
	flush()

	return chunks
}

// span is a byte range of text within its parent string.
type span struct {
	text  string
	start int
	end   int
}

// paragraphs splits text at blank-line boundaries, keeping offsets.
func paragraphs(text string) []span {
	var out []span
	start := 0
	for start < len(text) {
		end := strings.Index(text[start:], "\n\n")
		var raw string
		var rawEnd int
		if end < 0 {
			raw, rawEnd = text[start:], len(text)
		} else {
			raw, rawEnd = text[start:start+end], start+end
		}
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			lead := strings.Index(raw, trimmed[:1])
			out = append(out, span{text: trimmed, start: start + lead, end: start + lead + len(trimmed)})
		}
		if end < 0 {
			break
		}
		start = rawEnd + 2
	}
	return out
}

// packSentences greedily packs sentences into spans of at most maxChars,
// hard-cutting only sentences that individually exceed the cap.
func packSentences(text string, maxChars int) []span {
	var out []span
	var cur span
	for _, s := range sentences(text) {
		if len(s.text) > maxChars {
			if cur.text != "" {
				out = append(out, cur)
				cur = span{}
			}
			out = append(out, hardCut(s, maxChars)...)
			continue
		}
		if cur.text != "" && len(cur.text)+len(s.text)+1 > maxChars {
			out = append(out, cur)
			cur = span{}
		}
		if cur.text == "" {
			cur = s
		} else {
			cur.text = text[cur.start:s.end]
			cur.end = s.end
		}
	}
	if cur.text != "" {
		out = append(out, cur)
	}
	return out
}

// sentences splits a paragraph at terminal punctuation followed by space.
// Good enough for break preference; exactness is not required because the
// cap is enforced regardless.
func sentences(text string) []span {
	var out []span
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && !unicode.IsSpace(rune(text[i+1])) {
			continue
		}
		s := strings.TrimSpace(text[start : i+1])
		if s != "" {
			lead := strings.Index(text[start:i+1], s[:1])
			out = append(out, span{text: s, start: start + lead, end: start + lead + len(s)})
		}
		start = i + 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		lead := strings.Index(text[start:], s[:1])
		out = append(out, span{text: s, start: start + lead, end: start + lead + len(s)})
	}
	return out
}

// hardCut slices an oversized sentence at the cap, breaking at the last
// space before it when one exists.
func hardCut(s span, maxChars int) []span {
	var out []span
	text, off := s.text, s.start
	for len(text) > maxChars {
		cut := maxChars
		if i := strings.LastIndexByte(text[:maxChars], ' '); i > 0 {
			cut = i
		}
		piece := strings.TrimSpace(text[:cut])
		if piece != "" {
			out = append(out, span{text: piece, start: off, end: off + len(piece)})
		}
		text = strings.TrimLeft(text[cut:], " ")
		off = s.start + len(s.text) - len(text)
	}
	if piece := strings.TrimSpace(text); piece != "" {
		out = append(out, span{text: piece, start: off, end: off + len(piece)})
	}
	return out
}
