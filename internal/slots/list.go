// Package slots defines the value sources a template's {list} references are
// bound against: enumerated text values, numeric ranges and free-text
// wildcards.
package slots

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/trie"
)

// SlotList is one of *TextSlotList, *RangeSlotList or *WildcardSlotList.
type SlotList interface {
	slotList()
}

func (*TextSlotList) slotList()     {}
func (*RangeSlotList) slotList()    {}
func (*WildcardSlotList) slotList() {}

// TextSlotValue is one accepted phrasing and what it binds to. In may be a
// template ("[the] hall"). Context is merged into the match context when the
// value is chosen and also restricts which intents can pick it.
type TextSlotValue struct {
	In       expr.Expression
	Out      any
	Context  map[string]any
	Metadata map[string]any
}

// TextSlotList is safe for concurrent use once built. Values must not be
// changed after the first match.
type TextSlotList struct {
	Name   string
	Values []TextSlotValue

	once      sync.Once
	index     *trie.Trie[int]
	templated []int
}

func NewTextSlotList(name string, values ...TextSlotValue) *TextSlotList {
	return &TextSlotList{Name: name, Values: values}
}

// ParseValue turns a list value's "in" text into an expression. Plain text
// becomes a single chunk so multi-word values stay whole.
func ParseValue(text string) (expr.Expression, error) {
	if expr.IsTemplate(text) {
		exp, err := expr.ParseExpression(text)
		if err != nil {
			return nil, fmt.Errorf("list value %q: %w", text, err)
		}
		return exp, nil
	}
	return expr.NewTextChunk(strings.TrimSpace(text)), nil
}

// TextSlotListFromStrings makes a list whose values bind to their own text.
func TextSlotListFromStrings(name string, texts ...string) (*TextSlotList, error) {
	values := make([]TextSlotValue, 0, len(texts))
	for _, text := range texts {
		in, err := ParseValue(text)
		if err != nil {
			return nil, err
		}
		values = append(values, TextSlotValue{In: in, Out: text})
	}
	return NewTextSlotList(name, values...), nil
}

// TextSlotListFromMap binds each key phrase to its value.
func TextSlotListFromMap(name string, pairs map[string]any) (*TextSlotList, error) {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	values := make([]TextSlotValue, 0, len(keys))
	for _, k := range keys {
		in, err := ParseValue(k)
		if err != nil {
			return nil, err
		}
		values = append(values, TextSlotValue{In: in, Out: pairs[k]})
	}
	return NewTextSlotList(name, values...), nil
}

// Index builds the value trie now instead of on the first match. It returns
// the number of indexed phrases.
func (l *TextSlotList) Index() int {
	l.once.Do(l.buildIndex)
	return l.index.Len()
}

func (l *TextSlotList) buildIndex() {
	l.index = trie.New[int]()
	for i, v := range l.Values {
		chunk, ok := v.In.(*expr.TextChunk)
		key := ""
		if ok {
			key = strings.TrimSpace(chunk.Text)
		}
		if key == "" {
			l.templated = append(l.templated, i)
			continue
		}
		l.index.Insert(key, i)
	}
}

// Candidates returns the indexes of values that could match at the start of
// text, longest phrase first. Template values cannot be indexed and always
// follow, in declaration order.
func (l *TextSlotList) Candidates(text string) []int {
	l.once.Do(l.buildIndex)

	var out []int
	seen := map[int]bool{}
	add := func(idx int) {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}

	variants := []string{text}
	if broken := expr.BreakWords(text); broken != text {
		variants = append(variants, broken)
	}

	var matches []trie.Match[int]
	for _, variant := range variants {
		matches = append(matches, l.index.Prefixes(variant)...)
	}
	slices.SortStableFunc(matches, func(a, b trie.Match[int]) int {
		return b.End - a.End
	})
	for _, m := range matches {
		for _, idx := range m.Values {
			add(idx)
		}
	}
	for _, idx := range l.templated {
		add(idx)
	}
	return out
}

// All returns every value index in declaration order.
func (l *TextSlotList) All() []int {
	out := make([]int, len(l.Values))
	for i := range out {
		out[i] = i
	}
	return out
}

// WildcardSlotList captures any non-empty text.
type WildcardSlotList struct {
	Name string
}

func NewWildcardSlotList(name string) *WildcardSlotList {
	return &WildcardSlotList{Name: name}
}

// WildcardNames returns the names of the wildcard lists in lists.
func WildcardNames(lists map[string]SlotList) map[string]bool {
	names := map[string]bool{}
	for name, list := range lists {
		if _, ok := list.(*WildcardSlotList); ok {
			names[name] = true
		}
	}
	return names
}

// WildcardFlags maps every list name in lists to whether it is a wildcard
// list.
func WildcardFlags(lists map[string]SlotList) map[string]bool {
	flags := make(map[string]bool, len(lists))
	for name, list := range lists {
		_, flags[name] = list.(*WildcardSlotList)
	}
	return flags
}
