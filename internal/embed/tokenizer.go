package embed

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Special vocabulary tokens for BERT-style models.
const (
	clsToken = "[CLS]"
	sepToken = "[SEP]"
	unkToken = "[UNK]"
	padToken = "[PAD]"
)

// maxSeqLen caps the token sequence per input, including [CLS]/[SEP].
const maxSeqLen = 256

// tokenizer is an uncased WordPiece tokenizer over a vocab.txt file (one
// token per line, line number = token ID).
type tokenizer struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
	pad   int64
}

// newTokenizer loads the vocabulary and resolves the special token IDs.
func newTokenizer(vocabPath string) (*tokenizer, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		vocab[strings.TrimRight(scanner.Text(), "\r\n")] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tokenizer: read vocab: %w", err)
	}

	t := &tokenizer{vocab: vocab}
	for _, spec := range []struct {
		name string
		dst  *int64
	}{
		{clsToken, &t.cls}, {sepToken, &t.sep}, {unkToken, &t.unk}, {padToken, &t.pad},
	} {
		tid, ok := vocab[spec.name]
		if !ok {
			return nil, fmt.Errorf("tokenizer: vocab missing %s", spec.name)
		}
		*spec.dst = tid
	}
	return t, nil
}

// encode converts text into padded token IDs and an attention mask of
// length maxSeqLen at most, wrapped in [CLS]/[SEP].
func (t *tokenizer) encode(text string) (inputIDs, attentionMask []int64) {
	ids := []int64{t.cls}
	for _, word := range basicTokenize(text) {
		ids = append(ids, t.wordpiece(word)...)
		if len(ids) >= maxSeqLen-1 {
			ids = ids[:maxSeqLen-1]
			break
		}
	}
	ids = append(ids, t.sep)

	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask
}

// wordpiece splits a single word by greedy longest-match against the
// vocabulary; continuation pieces carry the "##" prefix. Words with no
// decomposition become [UNK].
func (t *tokenizer) wordpiece(word string) []int64 {
	runes := []rune(word)
	var pieces []int64

	start := 0
	for start < len(runes) {
		end := len(runes)
		var match int64 = -1
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := t.vocab[sub]; ok {
				match = id
				break
			}
			end--
		}
		if match < 0 {
			return []int64{t.unk}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}

// basicTokenize lowercases, strips accents via NFD decomposition, and
// splits on whitespace and punctuation (punctuation runes become their own
// tokens, as uncased BERT tokenizers do).
func basicTokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from NFD decomposition — dropped
		case unicode.IsSpace(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
