package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is used when a snapshot ships no tokenizer.json.
const defaultEncoding = "cl100k_base"

// TikToken wraps the pkoukk/tiktoken-go library as the fallback tokenizer.
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewTikToken creates a tiktoken-backed tokenizer for an encoding name,
// e.g. "cl100k_base" or "p50k_base".
func NewTikToken(encodingName string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encodingName, err)
	}

	return &TikToken{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)
	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: token IDs fit in int32
	}
	return result, nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		intTokens[i] = int(tok)
	}
	return t.encoding.Decode(intTokens), nil
}

// VocabSize returns the vocabulary size of the wrapped encoding.
// tiktoken-go does not expose it directly, so the known sizes are used.
func (t *TikToken) VocabSize() int {
	switch t.name {
	case "cl100k_base":
		return 100256
	case "p50k_base", "r50k_base":
		return 50257
	default:
		return 100000
	}
}

// BosToken returns -1: tiktoken encodings have no BOS token.
func (t *TikToken) BosToken() int32 {
	return -1
}

// EosToken returns the <|endoftext|> token ID for the encoding.
func (t *TikToken) EosToken() int32 {
	switch t.name {
	case "cl100k_base":
		return 100257
	case "p50k_base", "r50k_base":
		return 50256
	default:
		return -1
	}
}
