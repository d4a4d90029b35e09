// Package numwords spells numbers out as words for range lists.
package numwords

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

var ErrUnsupportedLanguage = errors.New("unsupported language for number words")

var ones = [...]string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen",
}

var tens = [...]string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

var scales = []struct {
	value int64
	name  string
}{
	{1_000_000_000, "billion"},
	{1_000_000, "million"},
	{1_000, "thousand"},
}

var irregularOrdinals = map[string]string{
	"one":    "first",
	"two":    "second",
	"three":  "third",
	"five":   "fifth",
	"eight":  "eighth",
	"nine":   "ninth",
	"twelve": "twelfth",
}

// maxWhole bounds what English will spell; larger numbers fall back to
// digits.
const maxWhole = 999_999_999_999

// English spells numbers in English, with British "and" variants for
// numbers over a hundred.
type English struct{}

var _ slots.NumberWords = English{}

func (English) NumberWords(n float64, language string, mode slots.WordMode) ([]string, error) {
	if !isEnglish(language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if math.IsNaN(n) || math.Abs(n) > maxWhole {
		return nil, fmt.Errorf("cannot spell %v", n)
	}

	whole := int64(math.Trunc(n))
	if float64(whole) == n {
		if mode == slots.Ordinal {
			if whole < 0 {
				return nil, fmt.Errorf("no ordinal for %d", whole)
			}
			return []string{ordinal(cardinal(whole, false))}, nil
		}
		forms := []string{cardinal(whole, false)}
		if withAnd := cardinal(whole, true); withAnd != forms[0] {
			forms = append(forms, withAnd)
		}
		return forms, nil
	}

	if mode == slots.Ordinal {
		return nil, fmt.Errorf("no ordinal for %v", n)
	}
	return decimal(n), nil
}

func isEnglish(language string) bool {
	language = strings.ToLower(language)
	return language == "en" || strings.HasPrefix(language, "en-") || strings.HasPrefix(language, "en_")
}

func cardinal(n int64, and bool) string {
	if n < 0 {
		return "minus " + cardinal(-n, and)
	}
	if n < 20 {
		return ones[n]
	}

	var parts []string
	for _, s := range scales {
		if n >= s.value {
			parts = append(parts, cardinal(n/s.value, and)+" "+s.name)
			n %= s.value
		}
	}
	if n >= 100 {
		parts = append(parts, ones[n/100]+" hundred")
		n %= 100
	}
	if n > 0 {
		rest := belowHundred(n)
		if and && len(parts) > 0 {
			rest = "and " + rest
		}
		parts = append(parts, rest)
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + "-" + ones[n%10]
}

func ordinal(words string) string {
	cut := strings.LastIndexAny(words, " -")
	head, last := words[:cut+1], words[cut+1:]
	if irregular, ok := irregularOrdinals[last]; ok {
		return head + irregular
	}
	if strings.HasSuffix(last, "y") {
		return head + strings.TrimSuffix(last, "y") + "ieth"
	}
	return head + last + "th"
}

// decimal spells the digits after the point one by one: 2.75 is "two point
// seven five". Halves also get "and a half".
func decimal(n float64) []string {
	text := slots.FormatNumber(math.Abs(n))
	wholeText, fracText, _ := strings.Cut(text, ".")

	whole := int64(math.Trunc(math.Abs(n)))
	prefix := ""
	if n < 0 {
		prefix = "minus "
	}

	digits := make([]string, 0, len(fracText))
	for _, d := range fracText {
		digits = append(digits, ones[d-'0'])
	}
	forms := []string{prefix + cardinal(whole, false) + " point " + strings.Join(digits, " ")}

	if fracText == "5" && wholeText != "0" {
		forms = append(forms, prefix+cardinal(whole, false)+" and a half")
	}
	return forms
}
