package expr

import (
	"regexp"
	"strconv"
	"strings"
)

// wordGap stands in for whitespace between literal words. It also accepts
// the word-breaking characters and nothing at all, so it is never stricter
// than the matcher.
const wordGap = `[\s_-]*`

// CompileRegex builds a coarse pattern for exp. A string the matcher would
// accept always matches the pattern; the reverse does not hold. List, range
// and wildcard slots and unresolved rules become ".*".
func CompileRegex(exp Expression) (*regexp.Regexp, error) {
	return regexp.Compile(RegexPattern(exp))
}

func RegexPattern(exp Expression) string {
	var b strings.Builder
	b.WriteString(`(?is)^` + wordGap)
	writePattern(&b, exp)
	b.WriteString(wordGap + `$`)
	return b.String()
}

func writePattern(b *strings.Builder, exp Expression) {
	switch n := exp.(type) {
	case *TextChunk:
		if n.Text == "" {
			return
		}
		for i, word := range strings.Split(n.Text, " ") {
			if i > 0 {
				b.WriteString(wordGap)
			}
			b.WriteString(regexp.QuoteMeta(word))
		}
	case *Sequence:
		for _, item := range n.Items {
			writePattern(b, item)
		}
	case *Alternative:
		b.WriteString("(?:")
		for i, item := range n.Items {
			if i > 0 {
				b.WriteByte('|')
			}
			writePattern(b, item)
		}
		b.WriteByte(')')
	case *Permutation:
		b.WriteString("(?:" + wordGap + "(?:")
		for i, item := range n.Items {
			if i > 0 {
				b.WriteByte('|')
			}
			writePattern(b, item)
		}
		b.WriteString(")" + wordGap + "){" + strconv.Itoa(len(n.Items)) + "}")
	default:
		b.WriteString("(?:.*)")
	}
}
