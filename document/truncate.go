package document

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenLimiter caps segment content at the embedding model's input limit by
// truncating at a token boundary. The tokenizer is an approximation of the
// model's own; the limit should leave headroom for role prefixes.
type TokenLimiter struct {
	MaxTokens int
	encoding  *tiktoken.Tiktoken
}

func NewTokenLimiter(maxTokens int) (*TokenLimiter, error) {
	if maxTokens <= 0 {
		return nil, &SplitterError{
			Op:      "new_token_limiter",
			Message: "maxTokens must be positive",
			Err:     fmt.Errorf("invalid maxTokens: %d", maxTokens),
		}
	}

	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, &SplitterError{
			Op:      "new_token_limiter",
			Message: "failed to get cl100k_base encoding",
			Err:     err,
		}
	}

	return &TokenLimiter{
		MaxTokens: maxTokens,
		encoding:  encoding,
	}, nil
}

// Truncate returns text cut to at most MaxTokens tokens. Text already
// within the limit is returned unchanged.
func (tl *TokenLimiter) Truncate(text string) string {
	if text == "" {
		return text
	}
	tokens := tl.encoding.Encode(text, nil, nil)
	if len(tokens) <= tl.MaxTokens {
		return text
	}
	return tl.encoding.Decode(tokens[:tl.MaxTokens])
}
