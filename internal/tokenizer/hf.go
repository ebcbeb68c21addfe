package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ember-ml/ember/internal/model"
)

// TokenizerFile is the conventional tokenizer asset name in a snapshot.
const TokenizerFile = "tokenizer.json"

// tokenizerJSON is the subset of tokenizer.json this loader reads.
type tokenizerJSON struct {
	Model struct {
		Type   string          `json:"type"`
		Vocab  map[string]int  `json:"vocab"`
		Merges json.RawMessage `json:"merges"`
	} `json:"model"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

// Load loads the tokenizer for a model snapshot directory. A tokenizer.json
// is preferred; snapshots without one fall back to the tiktoken encoding.
func Load(dir string) (Tokenizer, error) {
	path := filepath.Join(dir, TokenizerFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return NewTikToken(defaultEncoding)
		}
		return nil, fmt.Errorf("stat %s: %w", TokenizerFile, err)
	}
	return LoadFile(path)
}

// LoadFile parses one tokenizer.json into a Tokenizer.
func LoadFile(path string) (Tokenizer, error) {
	//nolint:gosec // G304: path comes from the snapshot directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", TokenizerFile, err)
	}

	var cfg tokenizerJSON
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &model.DecodingError{File: TokenizerFile, Message: err.Error()}
	}

	if cfg.Model.Type != "" && cfg.Model.Type != "BPE" {
		return nil, &model.DecodingError{
			File:    TokenizerFile,
			Message: fmt.Sprintf("unsupported tokenizer model type %q", cfg.Model.Type),
		}
	}
	if len(cfg.Model.Vocab) == 0 {
		return nil, &model.DecodingError{File: TokenizerFile, Message: "empty vocabulary"}
	}

	vocab := make(map[string]int32, len(cfg.Model.Vocab))
	for token, id := range cfg.Model.Vocab {
		vocab[token] = int32(id) //nolint:gosec // G115: vocab IDs fit in int32
	}

	merges, err := parseMerges(cfg.Model.Merges)
	if err != nil {
		return nil, &model.DecodingError{File: TokenizerFile, Message: err.Error()}
	}

	bpe := NewBPE(vocab, merges)
	for _, added := range cfg.AddedTokens {
		if !added.Special {
			continue
		}
		id := int32(added.ID) //nolint:gosec // G115: vocab IDs fit in int32
		bpe.special[id] = true
		content := strings.ToLower(added.Content)
		switch {
		case strings.Contains(content, "bos") || content == "<s>":
			bpe.bosToken = id
		case strings.Contains(content, "eos") || content == "</s>":
			bpe.eosToken = id
		case strings.Contains(content, "unk"):
			bpe.unkToken = id
		}
	}

	return bpe, nil
}

// parseMerges handles both merge encodings found in the wild: "a b" strings
// and ["a","b"] pairs.
func parseMerges(raw json.RawMessage) ([]pair, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var asStrings []string
	if err := json.Unmarshal(raw, &asStrings); err == nil {
		merges := make([]pair, 0, len(asStrings))
		for _, s := range asStrings {
			parts := strings.Fields(s)
			if len(parts) == 2 {
				merges = append(merges, pair{parts[0], parts[1]})
			}
		}
		return merges, nil
	}

	var asPairs [][]string
	if err := json.Unmarshal(raw, &asPairs); err != nil {
		return nil, fmt.Errorf("unrecognized merges encoding: %v", err)
	}
	merges := make([]pair, 0, len(asPairs))
	for _, p := range asPairs {
		if len(p) == 2 {
			merges = append(merges, pair{p[0], p[1]})
		}
	}
	return merges, nil
}
