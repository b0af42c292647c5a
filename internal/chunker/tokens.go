package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter maps a single word to the number of model tokens it costs.
type TokenCounter func(word string) int

// WordCounter counts one token per word.
func WordCounter(string) int { return 1 }

// NewTiktokenCounter counts tokens with a BPE encoding such as cl100k_base.
func NewTiktokenCounter(encoding string) (TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return func(word string) int {
		return len(enc.Encode(word, nil, nil))
	}, nil
}

// CounterFor resolves a tokenizer name from configuration. "word" and "" map to
// WordCounter, anything else is treated as a tiktoken encoding name.
func CounterFor(tokenizer string) (TokenCounter, error) {
	switch tokenizer {
	case "", "word":
		return WordCounter, nil
	default:
		return NewTiktokenCounter(tokenizer)
	}
}
