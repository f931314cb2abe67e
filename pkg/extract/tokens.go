package extract

import (
	"context"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// Tokens extracts vocabulary without a model. Japanese lines go through
// kagome's morphological analyser and yield content words in dictionary form;
// other lines are split on letter boundaries. Each word is reported once with
// the first line it appears in.
type Tokens struct {
	t        *tokenizer.Tokenizer
	maxItems int
}

// NewTokens loads the IPA dictionary and returns a Tokens extractor.
func NewTokens(maxItems int) (*Tokens, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Tokens{t: t, maxItems: maxItems}, nil
}

// morpheme is a single analysed unit of Japanese text.
type morpheme struct {
	Surface  string
	BaseForm string
	POS      string // e.g. 名詞
	SubPOS   string // e.g. 非自立
}

// contentPOS lists the parts of speech worth learning.
var contentPOS = map[string]bool{
	"名詞":  true,
	"動詞":  true,
	"形容詞": true,
	"副詞":  true,
}

// skipSubPOS excludes pronouns, numbers and dependent forms.
var skipSubPOS = map[string]bool{
	"非自立": true,
	"数":   true,
	"代名詞": true,
	"接尾":  true,
}

var stopwords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "for": true, "that": true,
	"with": true, "are": true, "was": true, "but": true, "not": true, "all": true,
	"this": true, "its": true, "she": true, "her": true, "his": true, "him": true,
	"they": true, "them": true, "have": true, "has": true, "had": true, "were": true,
	"will": true, "from": true, "into": true, "what": true, "when": true, "who": true,
}

// Extract implements Extractor.
func (x *Tokens) Extract(ctx context.Context, lyrics string) ([]songvocab.VocabularyItem, error) {
	n := x.maxItems
	if n <= 0 {
		n = DefaultMaxItems
	}
	seen := make(map[string]bool)
	var items []songvocab.VocabularyItem

	for _, line := range splitLines(lyrics) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ctxLine := strings.TrimSpace(line)
		if ctxLine == "" {
			continue
		}
		var words []string
		if hasJapanese(ctxLine) {
			words = x.japaneseWords(ctxLine)
		} else {
			words = latinWords(ctxLine)
		}
		for _, w := range words {
			if seen[w] {
				continue
			}
			seen[w] = true
			items = append(items, songvocab.VocabularyItem{Word: w, Context: ctxLine})
			if len(items) == n {
				return items, nil
			}
		}
	}
	return items, nil
}

func (x *Tokens) japaneseWords(line string) []string {
	var words []string
	for _, m := range x.analyze(line) {
		if !contentPOS[m.POS] || skipSubPOS[m.SubPOS] {
			continue
		}
		if len([]rune(m.BaseForm)) < 2 && !isKanji(m.BaseForm) {
			continue
		}
		words = append(words, m.BaseForm)
	}
	return words
}

func (x *Tokens) analyze(text string) []morpheme {
	var out []morpheme
	for _, token := range x.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		// IPA features: 0 POS, 1-3 sub-POS, 4-5 conjugation, 6 base form,
		// 7 reading, 8 pronunciation.
		features := token.Features()
		m := morpheme{Surface: token.Surface, BaseForm: token.Surface}
		if len(features) > 0 {
			m.POS = features[0]
		}
		if len(features) > 1 {
			m.SubPOS = features[1]
		}
		if len(features) > 6 && features[6] != "*" {
			m.BaseForm = features[6]
		}
		out = append(out, m)
	}
	return out
}

func latinWords(line string) []string {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	var words []string
	for _, f := range fields {
		w := strings.ToLower(strings.Trim(f, "'"))
		if len([]rune(w)) < 3 || stopwords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

// splitLines breaks lyrics on newlines and Japanese sentence delimiters
// 。(3002), ！(FF01), ？(FF1F).
func splitLines(text string) []string {
	var lines []string
	var current strings.Builder
	for _, r := range text {
		if r == '\n' {
			lines = append(lines, current.String())
			current.Reset()
			continue
		}
		current.WriteRune(r)
		if r == '。' || r == '！' || r == '？' {
			lines = append(lines, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}

func hasJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

func isKanji(s string) bool {
	for _, r := range s {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return s != ""
}
