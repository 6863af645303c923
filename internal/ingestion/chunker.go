package ingestion

import (
	"strings"
)

// Chunker splits extracted text into overlapping pieces sized for embedding.
// Boundaries fall on sentence ends where possible; a sentence longer than
// Size is split hard.
type Chunker struct {
	Size    int // max chunk length in characters
	Overlap int // characters carried from a closed chunk into the next
}

// NewChunker applies the defaults for zero values.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 100
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// EstimateTokens approximates the token count of a chunk.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Split produces the chunk texts in order. Whitespace-only input yields no
// chunks. Every chunk after the first begins with the last Overlap
// characters of its predecessor; a closed chunk no longer than Overlap
// carries nothing forward.
func (c *Chunker) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	current := ""

	emit := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			chunks = append(chunks, s)
		}
	}

	for _, sentence := range sentences {
		if current != "" && len(current)+1+len(sentence) > c.Size {
			emit(current)
			if c.Overlap > 0 && len(current) > c.Overlap {
				current = current[len(current)-c.Overlap:]
			} else {
				current = ""
			}
		}
		if current != "" {
			current += " " + sentence
		} else {
			current = sentence
		}
		// A sentence longer than Size is cut hard; each cut advances by
		// Size-Overlap so the same character tail carries over.
		for len(current) > c.Size {
			emit(current[:c.Size])
			if c.Overlap > 0 {
				current = current[c.Size-c.Overlap:]
			} else {
				current = current[c.Size:]
			}
		}
	}
	emit(current)
	return chunks
}

// splitSentences breaks text on sentence terminators followed by whitespace
// and on blank lines. Terminators stay attached to their sentence.
func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder

	emit := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			sentences = append(sentences, s)
		}
		sb.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		// Blank line is a paragraph boundary.
		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			emit()
			for i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			continue
		}
		sb.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			emit()
			for i+1 < len(runes) && isSpace(runes[i+1]) {
				i++
			}
		}
	}
	emit()
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
