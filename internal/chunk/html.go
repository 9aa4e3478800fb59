package chunk

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// headingSelector matches HTML section boundaries.
const headingSelector = "h1, h2, h3, h4, h5, h6"

// contentTags are the sibling elements collected under a heading.
var contentTags = map[string]bool{
	"p": true, "div": true, "pre": true, "code": true,
	"ul": true, "ol": true, "table": true, "blockquote": true,
}

// block is a unit of section content. Code blocks are atomic: they are
// never split across chunks.
type block struct {
	text string
	code bool
}

// FromHTML chunks an HTML page. Sections are cut at heading boundaries;
// sections above TargetChunkSize are further split on paragraph
// boundaries at sentence ends. Code blocks stay whole. Pages without
// headings become fixed-size windows over the page text with no overlap.
func FromHTML(html, source, title string) ([]Chunk, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	// Boilerplate usually comes pre-stripped by the loader; removing
	// again is harmless for already-clean fragments.
	doc.Find("script, style, nav, footer, header").Remove()

	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	ids := newCounter()

	headings := doc.Find(headingSelector)
	if headings.Length() == 0 {
		return windowChunks(doc.Text(), source, title, ids), nil
	}

	var chunks []Chunk
	headings.Each(func(i int, h *goquery.Selection) {
		label := strings.TrimSpace(h.Text())
		if label == "" {
			label = SectionMain
		}

		blocks := sectionBlocks(h)
		for _, content := range packBlocks(label, blocks) {
			if len(content) < MinContentLen {
				continue
			}
			chunks = append(chunks, Chunk{
				Content: content,
				Source:  source,
				Title:   title,
				Section: label,
				ID:      NewID(source, label, ids.next(label)),
				Metadata: map[string]string{
					"doc_kind":      "html",
					"section_index": fmt.Sprintf("%d", i),
				},
			})
		}
	})

	return chunks, nil
}

// headingLevel returns 1-6 for h1-h6 and 0 for anything else.
func headingLevel(s *goquery.Selection) int {
	tag := goquery.NodeName(s)
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// sectionBlocks collects the content following a heading up to the next
// heading of the same or higher level.
func sectionBlocks(h *goquery.Selection) []block {
	level := headingLevel(h)
	var blocks []block

	for sib := h.Next(); sib.Length() > 0; sib = sib.Next() {
		if l := headingLevel(sib); l > 0 && l <= level {
			break
		}
		tag := goquery.NodeName(sib)
		if !contentTags[tag] {
			continue
		}
		text := strings.TrimSpace(sib.Text())
		if text == "" {
			continue
		}
		blocks = append(blocks, block{
			text: text,
			code: tag == "pre" || tag == "code",
		})
	}

	return blocks
}

// packBlocks assembles a heading and its blocks into chunk contents of
// at most TargetChunkSize characters. Code blocks are kept whole even
// when oversized; long text blocks are split at sentence boundaries.
func packBlocks(heading string, blocks []block) []string {
	var contents []string
	var b strings.Builder
	b.WriteString(heading)

	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" && s != heading {
			contents = append(contents, s)
		}
		b.Reset()
		b.WriteString(heading)
	}

	appendPiece := func(piece string) {
		if b.Len() > len(heading) && b.Len()+len(piece) > TargetChunkSize {
			flush()
		}
		b.WriteString("\n\n")
		b.WriteString(piece)
	}

	for _, blk := range blocks {
		if blk.code || len(blk.text) <= TargetChunkSize {
			appendPiece(blk.text)
			continue
		}
		for _, piece := range splitSentences(blk.text, TargetChunkSize) {
			appendPiece(piece)
		}
	}
	flush()

	if len(contents) == 0 {
		// Heading with no collected content still gets indexed when the
		// heading itself carries enough text.
		if len(heading) >= MinContentLen {
			contents = append(contents, heading)
		}
	}

	return contents
}

// sentenceEnders terminate a sentence when followed by whitespace.
const sentenceEnders = ".!?"

// splitSentences splits text into pieces of at most limit characters,
// cutting only at sentence boundaries where one exists. A single
// sentence longer than the limit is emitted whole rather than split
// mid-sentence.
func splitSentences(text string, limit int) []string {
	sentences := scanSentences(text)

	var pieces []string
	var b strings.Builder
	for _, sentence := range sentences {
		if b.Len() > 0 && b.Len()+len(sentence)+1 > limit {
			pieces = append(pieces, strings.TrimSpace(b.String()))
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sentence)
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		pieces = append(pieces, s)
	}
	return pieces
}

// scanSentences splits text at sentence-ending punctuation followed by
// whitespace, and at blank lines.
func scanSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		atEnd := strings.ContainsRune(sentenceEnders, r) &&
			(i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t')
		if atEnd || (r == '\n' && i+1 < len(runes) && runes[i+1] == '\n') {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// windowChunks handles pages without any detectable headings: the page
// text is cut into fixed-size windows with no overlap, preferring
// sentence boundaries.
func windowChunks(text, source, title string, ids *counter) []Chunk {
	text = collapseWhitespace(text)
	if len(text) < MinContentLen {
		return nil
	}

	var chunks []Chunk
	for _, piece := range splitSentences(text, TargetChunkSize) {
		if len(piece) < MinContentLen {
			continue
		}
		chunks = append(chunks, Chunk{
			Content: piece,
			Source:  source,
			Title:   title,
			Section: SectionMain,
			ID:      NewID(source, SectionMain, ids.next(SectionMain)),
			Metadata: map[string]string{
				"doc_kind": "html",
			},
		})
	}
	return chunks
}

// collapseWhitespace normalizes runs of whitespace in extracted page
// text to single spaces, keeping paragraph breaks.
func collapseWhitespace(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n':
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
