package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// CleanText normalises extracted text for storage and search.
// It collapses whitespace, removes zero-width characters, and trims.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(collapseWhitespace(text))
}

// NormaliseForHash prepares text for content-hash comparison.
// More aggressive than CleanText: lowercases, removes punctuation.
func NormaliseForHash(text string) string {
	text = strings.ToLower(CleanText(text))
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
	return strings.TrimSpace(collapseWhitespace(text))
}

var multiSpaceRe = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return multiSpaceRe.ReplaceAllString(s, " ")
}
