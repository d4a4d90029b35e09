package expr

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError is a rule that (transitively) references itself. Chain starts and
// ends with the same rule name.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("expansion rule cycle: %s", strings.Join(e.Chain, " -> "))
}

// Expander substitutes <rule> references with rule bodies. Rule templates are
// parsed on first use and expanded bodies are cached, so every sentence that
// refers to a rule shares one subtree.
//
// An Expander is not safe for concurrent use; it is meant to run while a
// corpus is being compiled.
type Expander struct {
	texts     map[string]string
	wildcards map[string]bool
	parsed    map[string]Expression
	expanded  map[string]Expression
}

// NewExpander takes rule templates by name and the names of lists that hold
// wildcards. References to those lists are turned into Wildcard nodes.
func NewExpander(rules map[string]string, wildcardLists map[string]bool) *Expander {
	return &Expander{
		texts:     rules,
		wildcards: wildcardLists,
		parsed:    map[string]Expression{},
		expanded:  map[string]Expression{},
	}
}

// With returns an expander whose rules are these plus extra, extra winning on
// name clashes. Parsed rules that are not overridden are shared.
//
// lists names the lists that shadow outer ones, true for wildcard lists.
// A false entry stops an outer wildcard list of that name from being
// rewritten.
func (e *Expander) With(extra map[string]string, lists map[string]bool) *Expander {
	if len(extra) == 0 && len(lists) == 0 {
		return e
	}
	texts := make(map[string]string, len(e.texts)+len(extra))
	for name, text := range e.texts {
		texts[name] = text
	}
	for name, text := range extra {
		texts[name] = text
	}
	wildcards := make(map[string]bool, len(e.wildcards)+len(lists))
	for name := range e.wildcards {
		wildcards[name] = true
	}
	for name, wildcard := range lists {
		if wildcard {
			wildcards[name] = true
		} else {
			delete(wildcards, name)
		}
	}
	child := NewExpander(texts, wildcards)
	for name, exp := range e.parsed {
		if _, overridden := extra[name]; !overridden {
			child.parsed[name] = exp
		}
	}
	return child
}

// Expand returns exp with every known rule reference replaced. References to
// rules the expander does not know stay in place so they can be satisfied at
// match time.
func (e *Expander) Expand(exp Expression) (Expression, error) {
	return e.expand(exp, nil)
}

func (e *Expander) ExpandSentence(s *Sentence) (*Sentence, error) {
	exp, err := e.Expand(s.Exp)
	if err != nil {
		return nil, fmt.Errorf("sentence %q: %w", s.Text, err)
	}
	return &Sentence{Exp: exp, Text: s.Text}, nil
}

// Rule returns the fully expanded body of a rule.
func (e *Expander) Rule(name string) (Expression, bool, error) {
	if _, ok := e.texts[name]; !ok {
		return nil, false, nil
	}
	exp, err := e.rule(name, nil)
	if err != nil {
		return nil, true, err
	}
	return exp, true, nil
}

// Rules expands every rule the expander knows.
func (e *Expander) Rules() (map[string]Expression, error) {
	out := make(map[string]Expression, len(e.texts))
	for name := range e.texts {
		exp, err := e.rule(name, nil)
		if err != nil {
			return nil, err
		}
		out[name] = exp
	}
	return out, nil
}

func (e *Expander) expand(exp Expression, stack []string) (Expression, error) {
	switch n := exp.(type) {
	case *Sequence:
		items, changed, err := e.expandItems(n.Items, stack)
		if err != nil || !changed {
			return n, err
		}
		return &Sequence{Items: items}, nil
	case *Alternative:
		items, changed, err := e.expandItems(n.Items, stack)
		if err != nil || !changed {
			return n, err
		}
		return &Alternative{Items: items, Optional: n.Optional}, nil
	case *Permutation:
		items, changed, err := e.expandItems(n.Items, stack)
		if err != nil || !changed {
			return n, err
		}
		return &Permutation{Items: items}, nil
	case *ListReference:
		if e.wildcards[n.ListName] {
			return &Wildcard{Name: n.SlotName}, nil
		}
		return n, nil
	case *RuleReference:
		if _, ok := e.texts[n.RuleName]; !ok {
			return n, nil
		}
		return e.rule(n.RuleName, stack)
	default:
		return exp, nil
	}
}

func (e *Expander) expandItems(items []Expression, stack []string) ([]Expression, bool, error) {
	var out []Expression
	for i, item := range items {
		expanded, err := e.expand(item, stack)
		if err != nil {
			return nil, false, err
		}
		if out == nil && expanded != item {
			out = make([]Expression, len(items))
			copy(out, items[:i])
		}
		if out != nil {
			out[i] = expanded
		}
	}
	return out, out != nil, nil
}

func (e *Expander) rule(name string, stack []string) (Expression, error) {
	if i := slices.Index(stack, name); i >= 0 {
		chain := append(slices.Clone(stack[i:]), name)
		return nil, &CycleError{Chain: chain}
	}
	if exp, ok := e.expanded[name]; ok {
		return exp, nil
	}

	body, ok := e.parsed[name]
	if !ok {
		var err error
		body, err = ParseExpression(e.texts[name])
		if err != nil {
			return nil, fmt.Errorf("expansion rule %q: %w", name, err)
		}
		e.parsed[name] = body
	}

	exp, err := e.expand(body, append(stack[:len(stack):len(stack)], name))
	if err != nil {
		return nil, err
	}
	e.expanded[name] = exp
	return exp, nil
}
