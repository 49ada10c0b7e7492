package seo

import (
	"strings"
	"sync"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

var (
	jaOnce      sync.Once
	jaTokenizer *tokenizer.Tokenizer
	jaErr       error
)

// Words splits text into words. Japanese has no spaces between words, so
// "ja" text is segmented with the IPA dictionary and punctuation tokens are
// dropped; everything else splits on whitespace.
func Words(text, lang string) []string {
	if lang != "ja" {
		return strings.Fields(text)
	}
	jaOnce.Do(func() {
		jaTokenizer, jaErr = tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	})
	if jaErr != nil {
		return strings.Fields(text)
	}
	var words []string
	for _, tok := range jaTokenizer.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		if f := tok.Features(); len(f) > 0 && f[0] == "記号" {
			continue
		}
		words = append(words, tok.Surface)
	}
	return words
}
