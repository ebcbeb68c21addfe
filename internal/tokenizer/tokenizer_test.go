package tokenizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ember-ml/ember/internal/model"
)

// fixtureJSON builds a small BPE tokenizer.json with the merges encoded as
// "a b" strings.
const fixtureJSON = `{
	"model": {
		"type": "BPE",
		"vocab": {
			"<s>": 0,
			"</s>": 1,
			"<unk>": 2,
			"h": 3,
			"e": 4,
			"l": 5,
			"o": 6,
			"he": 7,
			"ll": 8,
			"hell": 9,
			"hello": 10
		},
		"merges": ["h e", "l l", "he ll", "hell o"]
	},
	"added_tokens": [
		{"id": 0, "content": "<s>", "special": true},
		{"id": 1, "content": "</s>", "special": true},
		{"id": 2, "content": "<unk>", "special": true}
	]
}`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, TokenizerFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_BPERoundTrip(t *testing.T) {
	tok, err := LoadFile(writeFixture(t, fixtureJSON))
	require.NoError(t, err)

	assert.Equal(t, 11, tok.VocabSize())
	assert.Equal(t, int32(0), tok.BosToken())
	assert.Equal(t, int32(1), tok.EosToken())

	ids, err := tok.Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, []int32{10}, ids)

	text, err := tok.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestLoadFile_PartialMergeFallsToPieces(t *testing.T) {
	tok, err := LoadFile(writeFixture(t, fixtureJSON))
	require.NoError(t, err)

	// "helo" merges to "he" but never reaches a full-word token; the
	// remaining runes resolve individually.
	ids, err := tok.Encode("helo")
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 5, 6}, ids)
}

func TestLoadFile_UnknownRuneUsesUnkToken(t *testing.T) {
	tok, err := LoadFile(writeFixture(t, fixtureJSON))
	require.NoError(t, err)

	ids, err := tok.Encode("hz")
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 2}, ids)
}

func TestLoadFile_EmptyInput(t *testing.T) {
	tok, err := LoadFile(writeFixture(t, fixtureJSON))
	require.NoError(t, err)

	ids, err := tok.Encode("")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadFile_PairEncodedMerges(t *testing.T) {
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(fixtureJSON), &cfg))
	cfg["model"].(map[string]any)["merges"] = [][]string{
		{"h", "e"}, {"l", "l"}, {"he", "ll"}, {"hell", "o"},
	}
	encoded, err := json.Marshal(cfg)
	require.NoError(t, err)

	tok, err := LoadFile(writeFixture(t, string(encoded)))
	require.NoError(t, err)

	ids, err := tok.Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, []int32{10}, ids)
}

func TestLoadFile_MalformedJSON(t *testing.T) {
	_, err := LoadFile(writeFixture(t, "{not json"))
	var derr *model.DecodingError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, TokenizerFile, derr.File)
}

func TestLoadFile_UnsupportedModelType(t *testing.T) {
	_, err := LoadFile(writeFixture(t, `{"model": {"type": "WordPiece", "vocab": {"a": 0}}}`))
	var derr *model.DecodingError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, "WordPiece")
}

func TestLoadFile_EmptyVocab(t *testing.T) {
	_, err := LoadFile(writeFixture(t, `{"model": {"type": "BPE", "vocab": {}}}`))
	var derr *model.DecodingError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Message, "vocabulary")
}

func TestParseMerges(t *testing.T) {
	fromStrings, err := parseMerges(json.RawMessage(`["a b", "c d"]`))
	require.NoError(t, err)
	fromPairs, err := parseMerges(json.RawMessage(`[["a","b"],["c","d"]]`))
	require.NoError(t, err)
	assert.Equal(t, fromStrings, fromPairs)
	assert.Equal(t, []pair{{"a", "b"}, {"c", "d"}}, fromStrings)

	empty, err := parseMerges(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = parseMerges(json.RawMessage(`42`))
	assert.Error(t, err)
}

func TestBPE_SpecialTokens(t *testing.T) {
	tok, err := LoadFile(writeFixture(t, fixtureJSON))
	require.NoError(t, err)

	bpe, ok := tok.(*BPE)
	require.True(t, ok)
	assert.True(t, bpe.IsSpecialToken(0))
	assert.True(t, bpe.IsSpecialToken(1))
	assert.False(t, bpe.IsSpecialToken(10))
}

func TestBPE_DecodeUnknownID(t *testing.T) {
	tok := NewBPE(map[string]int32{"a": 0}, nil)
	text, err := tok.Decode([]int32{0, 99})
	require.NoError(t, err)
	assert.Equal(t, "a�", text)
}
