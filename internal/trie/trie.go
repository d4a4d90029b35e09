// Package trie indexes known phrases so they can be found in an utterance
// without trying every phrase in turn.
//
// Keys are compared case-insensitively and only match whole words: a key
// must start and end at a word boundary of the searched text.
package trie

import (
	"iter"
	"slices"
	"unicode"
	"unicode/utf8"
)

type Trie[V comparable] struct {
	root node[V]
	size int
}

type node[V comparable] struct {
	children map[rune]*node[V]
	key      string
	values   []V
}

// Match is a key found in a text. Start and End are byte offsets into the
// searched text, so Text keeps the caller's casing. Values must not be
// modified.
type Match[V comparable] struct {
	Start  int
	End    int
	Key    string
	Text   string
	Values []V
}

func New[V comparable]() *Trie[V] {
	return &Trie[V]{}
}

// Insert adds value under key. Inserting the same key again adds to its
// value set; inserting the same pair twice is a no-op.
func (t *Trie[V]) Insert(key string, value V) {
	if key == "" {
		return
	}
	n := &t.root
	for _, r := range key {
		r = unicode.ToLower(r)
		child := n.children[r]
		if child == nil {
			if n.children == nil {
				n.children = map[rune]*node[V]{}
			}
			child = &node[V]{}
			n.children[r] = child
		}
		n = child
	}
	if n.key == "" {
		n.key = key
		t.size++
	}
	if !slices.Contains(n.values, value) {
		n.values = append(n.values, value)
	}
}

// Len is the number of distinct keys.
func (t *Trie[V]) Len() int {
	return t.size
}

// Get returns the values stored under exactly key.
func (t *Trie[V]) Get(key string) []V {
	n := &t.root
	for _, r := range key {
		n = n.children[unicode.ToLower(r)]
		if n == nil {
			return nil
		}
	}
	return slices.Clip(n.values)
}

// Prefixes returns the keys that match text from its first byte, shortest
// first.
func (t *Trie[V]) Prefixes(text string) []Match[V] {
	return t.prefixesAt(text, 0)
}

// Longest returns the longest key matching text from its first byte.
func (t *Trie[V]) Longest(text string) (Match[V], bool) {
	matches := t.Prefixes(text)
	if len(matches) == 0 {
		return Match[V]{}, false
	}
	return matches[len(matches)-1], true
}

// Find yields every key occurrence in text, ordered by start offset and then
// by length.
func (t *Trie[V]) Find(text string) iter.Seq[Match[V]] {
	return func(yield func(Match[V]) bool) {
		for start := range text {
			if !startsWord(text, start) {
				continue
			}
			for _, m := range t.prefixesAt(text, start) {
				if !yield(m) {
					return
				}
			}
		}
	}
}

func (t *Trie[V]) prefixesAt(text string, start int) []Match[V] {
	var out []Match[V]
	n := &t.root
	for i := start; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		n = n.children[unicode.ToLower(r)]
		if n == nil {
			break
		}
		i += size
		if len(n.values) > 0 && endsWord(text, i, r) {
			out = append(out, Match[V]{
				Start:  start,
				End:    i,
				Key:    n.key,
				Text:   text[start:i],
				Values: slices.Clip(n.values),
			})
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

func startsWord(text string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	next, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(prev) || !isWordRune(next)
}

// endsWord reports whether a match whose final rune is last may end at i.
func endsWord(text string, i int, last rune) bool {
	if i == len(text) || !isWordRune(last) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(next)
}
