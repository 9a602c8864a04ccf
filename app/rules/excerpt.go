package rules

import (
	"bytes"
	"net/url"
	"strings"
	"unicode/utf8"

	readability "codeberg.org/readeck/go-readability/v2"
)

// Excerpt turns an item's raw content into plain prompt text of at most
// maxChars runes. HTML is reduced to its readable article text first.
func Excerpt(raw, pageURL string, maxChars int) string {
	if maxChars <= 0 || strings.TrimSpace(raw) == "" {
		return ""
	}

	text := raw
	if looksLikeHTML(raw) {
		if extracted := readableText(raw, pageURL); extracted != "" {
			text = extracted
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxChars]))
}

func readableText(raw, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || pageURL == "" {
		u = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(raw), u)
	if err != nil || article.Node == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(s[:min(len(s), 1024)])
	for _, marker := range []string{"<html", "<body", "<div", "<p>", "<p ", "<article", "<!doctype"} {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}
