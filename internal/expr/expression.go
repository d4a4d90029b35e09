// Package expr holds the template expression tree and everything that works
// on it without runtime data: parsing, rule expansion, regex pre-filter
// compilation and sentence sampling.
//
// Trees are immutable once built. Expansion returns new trees that may share
// unchanged subtrees with their input, so nothing in this package mutates a
// node after construction.
package expr

import (
	"strings"
)

// Expression is one of *TextChunk, *Sequence, *Alternative, *Permutation,
// *ListReference, *RuleReference or *Wildcard.
type Expression interface {
	expression()
}

// TextChunk is literal text. Text is whitespace/unicode normalised,
// OriginalText is what the template author wrote.
type TextChunk struct {
	Text         string
	OriginalText string
}

// Sequence matches all of its items in order.
type Sequence struct {
	Items []Expression
}

// Alternative matches exactly one of its items. Optional alternatives always
// end with an empty chunk.
type Alternative struct {
	Items    []Expression
	Optional bool
}

// Permutation matches all of its items in any order.
type Permutation struct {
	Items []Expression
}

// ListReference is {list} or {list:slot}.
type ListReference struct {
	ListName string
	SlotName string
}

// RuleReference is <rule>.
type RuleReference struct {
	RuleName string
}

// Wildcard captures free text into the named slot.
type Wildcard struct {
	Name string
}

func (*TextChunk) expression()     {}
func (*Sequence) expression()      {}
func (*Alternative) expression()   {}
func (*Permutation) expression()   {}
func (*ListReference) expression() {}
func (*RuleReference) expression() {}
func (*Wildcard) expression()      {}

func NewTextChunk(text string) *TextChunk {
	return &TextChunk{Text: NormaliseText(text), OriginalText: text}
}

// EmptyChunk is the implicit branch of an optional.
func EmptyChunk() *TextChunk {
	return &TextChunk{}
}

func (c *TextChunk) IsEmpty() bool {
	return c.Text == ""
}

// Sentence is a parsed template plus the text it came from.
type Sentence struct {
	Exp  Expression
	Text string
}

// TextChunkCount is the number of non-blank literal chunks in the sentence.
func (s *Sentence) TextChunkCount() int {
	return TextChunkCount(s.Exp)
}

func (s *Sentence) ListNames() []string {
	return ListNames(s.Exp)
}

// Walk visits exp depth first. Returning false from fn skips the children of
// the visited node.
func Walk(exp Expression, fn func(Expression) bool) {
	if exp == nil || !fn(exp) {
		return
	}
	for _, item := range children(exp) {
		Walk(item, fn)
	}
}

func children(exp Expression) []Expression {
	switch n := exp.(type) {
	case *Sequence:
		return n.Items
	case *Alternative:
		return n.Items
	case *Permutation:
		return n.Items
	default:
		return nil
	}
}

func TextChunkCount(exp Expression) int {
	count := 0
	Walk(exp, func(e Expression) bool {
		if c, ok := e.(*TextChunk); ok && strings.TrimSpace(c.Text) != "" {
			count++
		}
		return true
	})
	return count
}

// ListNames returns referenced list names in template order, without
// duplicates.
func ListNames(exp Expression) []string {
	var names []string
	seen := map[string]bool{}
	Walk(exp, func(e Expression) bool {
		if ref, ok := e.(*ListReference); ok && !seen[ref.ListName] {
			seen[ref.ListName] = true
			names = append(names, ref.ListName)
		}
		return true
	})
	return names
}

// RuleNames returns the names of rule references still present in exp.
func RuleNames(exp Expression) []string {
	var names []string
	seen := map[string]bool{}
	Walk(exp, func(e Expression) bool {
		if ref, ok := e.(*RuleReference); ok && !seen[ref.RuleName] {
			seen[ref.RuleName] = true
			names = append(names, ref.RuleName)
		}
		return true
	})
	return names
}

func HasWildcard(exp Expression) bool {
	found := false
	Walk(exp, func(e Expression) bool {
		if _, ok := e.(*Wildcard); ok {
			found = true
		}
		return !found
	})
	return found
}

// Format renders exp back into template syntax.
func Format(exp Expression) string {
	var b strings.Builder
	format(&b, exp, true)
	return b.String()
}

func format(b *strings.Builder, exp Expression, top bool) {
	switch n := exp.(type) {
	case *TextChunk:
		b.WriteString(escapeTemplate(n.Text))
	case *Sequence:
		if !top {
			b.WriteByte('(')
		}
		for _, item := range n.Items {
			format(b, item, false)
		}
		if !top {
			b.WriteByte(')')
		}
	case *Alternative:
		items := n.Items
		if n.Optional {
			b.WriteByte('[')
			if len(items) > 0 {
				items = items[:len(items)-1]
			}
		} else {
			b.WriteByte('(')
		}
		for i, item := range items {
			if i > 0 {
				b.WriteByte('|')
			}
			formatBranch(b, item)
		}
		if n.Optional {
			b.WriteByte(']')
		} else {
			b.WriteByte(')')
		}
	case *Permutation:
		b.WriteByte('(')
		for i, item := range n.Items {
			if i > 0 {
				b.WriteByte(';')
			}
			formatBranch(b, item)
		}
		b.WriteByte(')')
	case *ListReference:
		b.WriteByte('{')
		b.WriteString(n.ListName)
		if n.SlotName != "" && n.SlotName != n.ListName {
			b.WriteByte(':')
			b.WriteString(n.SlotName)
		}
		b.WriteByte('}')
	case *RuleReference:
		b.WriteString("<" + n.RuleName + ">")
	case *Wildcard:
		b.WriteString("{" + n.Name + "}")
	}
}

// formatBranch writes an alternative/permutation branch without wrapping a
// top-level sequence in another group.
func formatBranch(b *strings.Builder, exp Expression) {
	if seq, ok := exp.(*Sequence); ok {
		for _, item := range seq.Items {
			format(b, item, false)
		}
		return
	}
	format(b, exp, false)
}

const templateSpecials = `\()[]{}<>|;`

func escapeTemplate(text string) string {
	if !strings.ContainsAny(text, templateSpecials) {
		return text
	}
	var b strings.Builder
	for _, r := range text {
		if strings.ContainsRune(templateSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsTemplate reports whether text uses any template syntax.
func IsTemplate(text string) bool {
	return strings.ContainsAny(text, "(){}<>[]|")
}
