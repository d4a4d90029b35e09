package slots

import (
	"fmt"
	"math"
	"sync"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/trie"
)

type WordMode int

const (
	Cardinal WordMode = iota
	Ordinal
)

// NumberWords spells numbers out. Implementations return every accepted
// spelling of n, most common first, or an error for languages they do not
// know.
type NumberWords interface {
	NumberWords(n float64, language string, mode WordMode) ([]string, error)
}

// RangeForm is one way of saying a number.
type RangeForm struct {
	Text   string
	Number float64
}

// RangeWords is the spoken-word index for one range in one language.
type RangeWords struct {
	Forms []RangeForm
	Trie  *trie.Trie[float64]
}

type rangeKey struct {
	from, to, step int
	fractions      FractionType
	ordinal        bool
	language       string
}

type rangeEntry struct {
	once  sync.Once
	words *RangeWords
	err   error
}

// RangeCache builds word indexes for ranges once per distinct range and
// language. It is safe for concurrent use.
type RangeCache struct {
	words NumberWords

	mu      sync.Mutex
	entries map[rangeKey]*rangeEntry
}

// NewRangeCache uses words to spell numbers. A nil words limits ranges to
// digits.
func NewRangeCache(words NumberWords) *RangeCache {
	return &RangeCache{words: words, entries: map[rangeKey]*rangeEntry{}}
}

// Len is the number of indexes built or being built.
func (c *RangeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Words returns the word index for r in language.
func (c *RangeCache) Words(r *RangeSlotList, language string) (*RangeWords, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if c == nil || c.words == nil {
		return nil, fmt.Errorf("list %q: no number speller configured", r.Name)
	}
	if language == "" {
		return nil, fmt.Errorf("list %q: no language for number words", r.Name)
	}

	key := rangeKey{
		from:      r.From,
		to:        r.To,
		step:      r.Step,
		fractions: r.Fractions,
		ordinal:   r.Ordinal,
		language:  language,
	}

	c.mu.Lock()
	entry, ok := c.entries[key]
	if !ok {
		entry = &rangeEntry{}
		c.entries[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.words, entry.err = c.build(r, language)
	})
	return entry.words, entry.err
}

func (c *RangeCache) build(r *RangeSlotList, language string) (*RangeWords, error) {
	out := &RangeWords{Trie: trie.New[float64]()}
	for n := range r.Numbers() {
		forms, err := c.words.NumberWords(n, language, Cardinal)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", r.Name, err)
		}
		if r.Ordinal && n == math.Trunc(n) {
			ordinals, err := c.words.NumberWords(n, language, Ordinal)
			if err != nil {
				return nil, fmt.Errorf("list %q: %w", r.Name, err)
			}
			forms = append(forms, ordinals...)
		}

		for _, form := range forms {
			form = expr.NormaliseInput(form)
			if form == "" {
				continue
			}
			if out.Trie.Get(form) == nil {
				out.Forms = append(out.Forms, RangeForm{Text: form, Number: n})
			}
			out.Trie.Insert(form, n)
			if broken := expr.BreakWords(form); broken != form {
				out.Trie.Insert(broken, n)
			}
		}
	}
	return out, nil
}

// Values lists every rendering of r: digits first, then words when a
// language and speller are available. Word errors leave only digits.
func (c *RangeCache) Values(r *RangeSlotList, language string) []RangeForm {
	var out []RangeForm
	if r.Digits {
		for n := range r.Numbers() {
			out = append(out, RangeForm{Text: FormatNumber(n), Number: n})
		}
	}
	if r.Words {
		if words, err := c.Words(r, language); err == nil {
			out = append(out, words.Forms...)
		}
	}
	return out
}
