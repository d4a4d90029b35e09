package expr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var multiSpaceRE = regexp.MustCompile(`\s+`)

// NormaliseText collapses whitespace runs to a single space and applies NFC.
// Leading and trailing whitespace is kept (as one space) because it carries
// word boundaries between chunks.
func NormaliseText(text string) string {
	return norm.NFC.String(multiSpaceRE.ReplaceAllString(text, " "))
}

var wordBreaker = strings.NewReplacer("-", " ", "_", " ")

// BreakWords turns hyphens and underscores into spaces. Replacements are byte
// for byte, so offsets into the result are valid in the input.
func BreakWords(text string) string {
	return wordBreaker.Replace(text)
}

// NormaliseInput is NormaliseText plus trimming, for whole utterances.
func NormaliseInput(text string) string {
	return strings.TrimSpace(NormaliseText(text))
}
