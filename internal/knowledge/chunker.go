package knowledge

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into rune windows of at most Size runes. Consecutive
// windows share exactly Overlap runes, so dropping the first Overlap runes of
// every chunk after the first and concatenating restores the input.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return Chunker{Size: size, Overlap: overlap}
}

// Split returns the ordered windows of text. Blank text yields nothing and
// text no longer than Size yields itself.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	c = NewChunker(c.Size, c.Overlap)

	runes := []rune(text)
	if len(runes) <= c.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + c.Size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}

		// the next window starts at cut-Overlap, which must move forward
		minCut := start + c.Overlap + 1
		if half := start + c.Size/2; half > minCut {
			minCut = half
		}
		cut := boundary(runes, minCut, end)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - c.Overlap
	}
}

// ChunkDocument splits a document and carries its source metadata.
func (c Chunker) ChunkDocument(doc Document) []Chunk {
	parts := c.Split(doc.Text)
	chunks := make([]Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = Chunk{
			Text:     part,
			SourceID: doc.SourceID,
			Sequence: i,
			Category: doc.Category,
			Label:    doc.Label,
		}
	}
	return chunks
}

// boundary picks the cut position in [lo, hi]: after a paragraph break, a line
// break, a sentence end or a space, in that order, else hi.
func boundary(runes []rune, lo, hi int) int {
	if lo > hi {
		return hi
	}
	for cut := hi; cut >= lo; cut-- {
		if cut >= 2 && runes[cut-1] == '\n' && runes[cut-2] == '\n' {
			return cut
		}
	}
	for cut := hi; cut >= lo; cut-- {
		if runes[cut-1] == '\n' {
			return cut
		}
	}
	for cut := hi; cut >= lo; cut-- {
		if cut >= 2 && unicode.IsSpace(runes[cut-1]) && isSentenceEnd(runes[cut-2]) {
			return cut
		}
	}
	for cut := hi; cut >= lo; cut-- {
		if unicode.IsSpace(runes[cut-1]) {
			return cut
		}
	}
	return hi
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
