package recognize

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/match"
)

func isPunct(r rune) bool {
	return strings.ContainsRune(match.Punctuation, r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// removePunctuation drops runs of punctuation except where they sit between
// two word characters, as in "3.5" or "don’t".
func removePunctuation(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(runes); {
		if !isPunct(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isPunct(runes[j]) {
			j++
		}
		if i > 0 && j < len(runes) && isWordRune(runes[i-1]) && isWordRune(runes[j]) {
			b.WriteString(string(runes[i:j]))
		}
		i = j
	}
	return b.String()
}

// skipWordPattern matches any skip word, longest first so that "please do"
// wins over "please". Outside ignore-whitespace mode a word only matches
// between non-word characters, which the match keeps.
func skipWordPattern(words []string, ignoreWhitespace bool) *regexp.Regexp {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" && !slices.Contains(quoted, regexp.QuoteMeta(w)) {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	slices.SortStableFunc(quoted, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})
	alternation := strings.Join(quoted, "|")
	if ignoreWhitespace {
		return regexp.MustCompile(`(?i)(?:` + alternation + `)`)
	}
	return regexp.MustCompile(`(?i)([^\pL\pN\pM_])(?:` + alternation + `)([^\pL\pN\pM_])`)
}

func removeSkipWords(text string, re *regexp.Regexp, ignoreWhitespace bool) string {
	if re == nil {
		return text
	}
	if ignoreWhitespace {
		return re.ReplaceAllString(text, "")
	}
	// Adjacent skip words share the separator between them, so one pass can
	// leave every other one behind.
	text = " " + text + " "
	for {
		next := re.ReplaceAllString(text, "${1} ${2}")
		if next == text {
			break
		}
		text = next
	}
	return expr.NormaliseInput(text)
}

// prepared is an utterance ready for the regex filter and the matcher.
type prepared struct {
	text     string
	input    string
	keywords map[string]bool
}

func prepare(raw string, skip *regexp.Regexp, ignoreWhitespace bool) prepared {
	text := expr.NormaliseInput(removePunctuation(raw))
	text = removeSkipWords(text, skip, ignoreWhitespace)

	p := prepared{text: text, keywords: map[string]bool{}}
	for _, word := range tokenise(text) {
		p.keywords[strings.ToLower(word)] = true
	}
	if ignoreWhitespace {
		p.input = strings.Join(strings.Fields(text), "")
	} else {
		p.input = text + " "
	}
	return p
}

func tokenise(normalised string) []string {
	if strings.TrimSpace(normalised) == "" {
		return nil
	}
	return strings.Fields(normalised)
}

// hasKeyword reports whether any of keywords is a word of the utterance.
func (p prepared) hasKeyword(keywords []string) bool {
	for _, k := range keywords {
		if p.keywords[strings.ToLower(strings.TrimSpace(k))] {
			return true
		}
	}
	return false
}
