package document

import (
	"regexp"
	"strings"
)

// Splitter interface defines methods for splitting text into segments.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

// DefaultMinSentenceLength filters out fragments like page headers and
// stray numbering. The threshold is heuristic and configurable.
const DefaultMinSentenceLength = 20

var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// SentenceSplitter splits free text into sentence-level segments using
// terminator punctuation, dropping segments shorter than MinLength bytes.
type SentenceSplitter struct {
	MinLength int
}

func NewSentenceSplitter(minLength int) *SentenceSplitter {
	if minLength < 0 {
		minLength = DefaultMinSentenceLength
	}
	return &SentenceSplitter{MinLength: minLength}
}

func (s *SentenceSplitter) SplitText(text string) ([]string, error) {
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		// No terminator at all: treat the whole input as one segment.
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			sentences = []string{trimmed}
		}
	}

	out := sentences[:0]
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < s.MinLength {
			continue
		}
		out = append(out, sentence)
	}
	return out, nil
}
