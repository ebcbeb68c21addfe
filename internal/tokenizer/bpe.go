package tokenizer

import (
	"strings"
)

// BPE implements Byte-Pair Encoding tokenization over a vocabulary and a
// ranked merge list, the model type shipped in HuggingFace tokenizer.json
// files.
type BPE struct {
	vocab        map[string]int32
	reverseVocab map[int32]string
	ranks        map[pair]int
	bosToken     int32
	eosToken     int32
	unkToken     int32
	special      map[int32]bool
}

type pair struct {
	first  string
	second string
}

// NewBPE creates a BPE tokenizer from a vocabulary and ordered merge rules.
func NewBPE(vocab map[string]int32, merges []pair) *BPE {
	reverseVocab := make(map[int32]string, len(vocab))
	for token, id := range vocab {
		reverseVocab[id] = token
	}
	ranks := make(map[pair]int, len(merges))
	for i, m := range merges {
		ranks[m] = i
	}

	return &BPE{
		vocab:        vocab,
		reverseVocab: reverseVocab,
		ranks:        ranks,
		bosToken:     -1,
		eosToken:     -1,
		unkToken:     -1,
		special:      make(map[int32]bool),
	}
}

// Encode converts text to token IDs using BPE merges.
func (b *BPE) Encode(text string) ([]int32, error) {
	if text == "" {
		return []int32{}, nil
	}

	var tokens []int32
	for _, word := range strings.Fields(text) {
		var parts []string
		for _, r := range word {
			parts = append(parts, string(r))
		}

		for len(parts) > 1 {
			bestIdx := -1
			bestRank := len(b.ranks)
			for i := 0; i < len(parts)-1; i++ {
				if rank, ok := b.ranks[pair{parts[i], parts[i+1]}]; ok && rank < bestRank {
					bestIdx = i
					bestRank = rank
				}
			}
			if bestIdx < 0 {
				break
			}
			merged := parts[bestIdx] + parts[bestIdx+1]
			parts = append(parts[:bestIdx], append([]string{merged}, parts[bestIdx+2:]...)...)
		}

		for _, part := range parts {
			if id, ok := b.vocab[part]; ok {
				tokens = append(tokens, id)
			} else if b.unkToken >= 0 {
				tokens = append(tokens, b.unkToken)
			}
		}
	}

	return tokens, nil
}

// Decode converts token IDs back to text.
func (b *BPE) Decode(tokens []int32) (string, error) {
	var sb strings.Builder
	for _, token := range tokens {
		if text, ok := b.reverseVocab[token]; ok {
			sb.WriteString(text)
		} else {
			sb.WriteString("�")
		}
	}
	return sb.String(), nil
}

// VocabSize returns the total vocabulary size.
func (b *BPE) VocabSize() int {
	return len(b.vocab)
}

// BosToken returns the beginning-of-sequence token ID, or -1.
func (b *BPE) BosToken() int32 {
	return b.bosToken
}

// EosToken returns the end-of-sequence token ID, or -1.
func (b *BPE) EosToken() int32 {
	return b.eosToken
}

// IsSpecialToken checks if a token ID is a special token.
func (b *BPE) IsSpecialToken(token int32) bool {
	return b.special[token]
}
