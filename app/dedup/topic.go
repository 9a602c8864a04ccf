package dedup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTopicKeyLength bounds the slug stored in the ledger and cooldown tables.
const MaxTopicKeyLength = 48

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "and": true, "or": true,
	"for": true, "with": true, "to": true, "in": true, "on": true, "about": true,
	"new": true, "their": true, "its": true,
}

// TopicKey turns a free-form topic label into a stable slug: diacritics are
// folded, case is lowered, filler words are dropped, trailing plurals are
// trimmed and non-alphanumeric runs collapse to a single '-'.
func TopicKey(label string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), label)
	if err != nil {
		folded = label
	}
	folded = strings.ToLower(folded)

	words := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		w = singular(w)
		if b.Len() > 0 {
			if b.Len()+1+len(w) > MaxTopicKeyLength {
				break
			}
			b.WriteByte('-')
		} else {
			w = truncate(w, MaxTopicKeyLength)
		}
		b.WriteString(w)
	}
	return b.String()
}

func truncate(w string, n int) string {
	for len(w) > n {
		_, size := utf8.DecodeLastRuneInString(w)
		w = w[:len(w)-size]
	}
	return w
}

func singular(w string) string {
	switch {
	case len(w) <= 3:
		return w
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}
