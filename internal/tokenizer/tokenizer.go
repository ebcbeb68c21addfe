// Package tokenizer loads vocabulary assets for a model snapshot: a
// HuggingFace tokenizer.json when present, with a tiktoken encoding as the
// fallback for snapshots that ship none.
package tokenizer

// Tokenizer is the core interface for text tokenization.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int

	// BosToken returns the beginning-of-sequence token ID, or -1.
	BosToken() int32

	// EosToken returns the end-of-sequence token ID, or -1.
	EosToken() int32
}
