package ingest

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// countTokens measures text with the cl100k_base encoding. If the
// encoding cannot be loaded the chars/4 estimate is close enough for
// chunk accounting.
func countTokens(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("tiktoken encoding unavailable, using character estimate", "error", err)
			return
		}
		encoding = enc
	})
	if encoding == nil {
		return (len(text) + 3) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}

// Chunker splits document text into overlapping windows. Breaks prefer a
// paragraph or sentence boundary in the back half of the window so chunks
// do not cut mid-sentence when the text allows it.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1500
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}
	return &Chunker{size: size, overlap: overlap}
}

func (c *Chunker) Split(docID, text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if len(text) <= c.size {
		return []Chunk{{
			DocumentID: docID,
			Index:      0,
			Content:    text,
			TokenCount: countTokens(text),
		}}
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			end = len(text)
		} else {
			end = c.findBreak(text, start, end)
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, Chunk{
				DocumentID: docID,
				Index:      len(chunks),
				Content:    content,
				TokenCount: countTokens(content),
			})
		}

		if end >= len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// findBreak searches backward from end for the best split point, but
// never rewinds past the midpoint of the window.
func (c *Chunker) findBreak(text string, start, end int) int {
	floor := start + c.size/2
	window := text[floor:end]

	for _, sep := range []string{"\n\n", ". ", "! ", "? ", "\n", " "} {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return floor + idx + len(sep)
		}
	}
	return end
}
