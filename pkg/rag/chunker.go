package rag

import (
	"strings"
	"unicode"
)

// Chunker splits raw document text into overlapping sentence windows suitable
// for embedding. Windows of Sentences sentences advance by Sentences-Overlap
// each step so adjacent chunks share context.
type Chunker struct {
	Sentences int
	Overlap   int
	MinLength int
}

func NewChunker(sentences, overlap, minLength int) *Chunker {
	if sentences <= 0 {
		sentences = 5
	}
	if overlap < 0 || overlap >= sentences {
		overlap = 1
	}
	if minLength <= 0 {
		minLength = 20
	}
	return &Chunker{Sentences: sentences, Overlap: overlap, MinLength: minLength}
}

// Chunk returns the chunk texts in document order. Fragments shorter than
// MinLength after trimming are dropped.
func (c *Chunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	step := c.Sentences - c.Overlap
	var chunks []string
	for start := 0; start < len(sentences); start += step {
		end := start + c.Sentences
		if end > len(sentences) {
			end = len(sentences)
		}

		chunk := strings.TrimSpace(strings.Join(sentences[start:end], " "))
		if len([]rune(chunk)) >= c.MinLength {
			chunks = append(chunks, chunk)
		}

		if end == len(sentences) {
			break
		}
	}
	return chunks
}

// splitSentences breaks text on terminal punctuation followed by whitespace.
// Blank lines also terminate a sentence so headings and list items become
// their own fragments.
func splitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			flush()
			continue
		}
		if r == '\n' {
			r = ' '
		}
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()

	return sentences
}
