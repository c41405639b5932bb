package chunking

import "strings"

type Splitter struct {
	MaxWords int
}

func NewSplitter(maxWords int) *Splitter {
	if maxWords <= 0 {
		maxWords = 800
	}
	return &Splitter{MaxWords: maxWords}
}

// Split breaks text into word-bounded passages. Words are whitespace-split
// and rejoined with single spaces, so the same input always yields the same
// chunk boundaries. Empty or whitespace-only input yields zero chunks.
func (s *Splitter) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	out := make([]string, 0, len(words)/s.MaxWords+1)
	for start := 0; start < len(words); start += s.MaxWords {
		end := start + s.MaxWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[start:end], " "))
	}
	return out
}
