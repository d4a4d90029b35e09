package expr

import (
	"iter"
	"math/rand/v2"
	"slices"
	"strings"
)

// ListValues supplies concrete renderings for list references while
// sampling. Values may themselves be templates.
type ListValues interface {
	ListValues(name string) ([]Expression, bool)
}

type SampleOptions struct {
	// Lists renders {list} references. Lists it does not know, and wildcard
	// slots, are rendered with Placeholder.
	Lists ListValues
	// Rules resolves rule references left over after expansion.
	Rules         map[string]Expression
	SkipOptionals bool
	Placeholder   func(slot string) string
}

func defaultPlaceholder(slot string) string {
	return "{" + slot + "}"
}

// Sample enumerates every sentence exp can produce, lazily, in template
// order. Permutations are produced in every ordering with a space between
// items.
func Sample(exp Expression, opts SampleOptions) iter.Seq[string] {
	return func(yield func(string) bool) {
		s := newSampler(opts)
		s.sample(exp, "", nil, func(text string) bool {
			return yield(NormaliseInput(text))
		})
	}
}

type sampler struct {
	opts SampleOptions
}

func newSampler(opts SampleOptions) *sampler {
	if opts.Placeholder == nil {
		opts.Placeholder = defaultPlaceholder
	}
	return &sampler{opts: opts}
}

func (s *sampler) sample(exp Expression, prefix string, rules []string, k func(string) bool) bool {
	switch n := exp.(type) {
	case *TextChunk:
		return k(prefix + n.Text)
	case *Sequence:
		return s.sequence(n.Items, prefix, rules, k)
	case *Alternative:
		if n.Optional && s.opts.SkipOptionals {
			return k(prefix)
		}
		for _, item := range n.Items {
			if !s.sample(item, prefix, rules, k) {
				return false
			}
		}
		return true
	case *Permutation:
		return s.permutation(n.Items, prefix, true, rules, k)
	case *ListReference:
		values, ok := s.listValues(n.ListName)
		if !ok {
			return k(prefix + s.opts.Placeholder(n.SlotName))
		}
		for _, v := range values {
			if !s.sample(v, prefix, rules, k) {
				return false
			}
		}
		return true
	case *RuleReference:
		body, ok := s.opts.Rules[n.RuleName]
		if !ok || slices.Contains(rules, n.RuleName) {
			return k(prefix + "<" + n.RuleName + ">")
		}
		return s.sample(body, prefix, append(rules[:len(rules):len(rules)], n.RuleName), k)
	case *Wildcard:
		return k(prefix + s.opts.Placeholder(n.Name))
	default:
		return true
	}
}

func (s *sampler) listValues(name string) ([]Expression, bool) {
	if s.opts.Lists == nil {
		return nil, false
	}
	values, ok := s.opts.Lists.ListValues(name)
	if !ok || len(values) == 0 {
		return nil, false
	}
	return values, true
}

func (s *sampler) sequence(items []Expression, prefix string, rules []string, k func(string) bool) bool {
	if len(items) == 0 {
		return k(prefix)
	}
	return s.sample(items[0], prefix, rules, func(text string) bool {
		return s.sequence(items[1:], text, rules, k)
	})
}

func (s *sampler) permutation(items []Expression, prefix string, first bool, rules []string, k func(string) bool) bool {
	if len(items) == 0 {
		return k(prefix)
	}
	if !first {
		prefix += " "
	}
	for i, item := range items {
		rest := without(items, i)
		ok := s.sample(item, prefix, rules, func(text string) bool {
			return s.permutation(rest, text, false, rules, k)
		})
		if !ok {
			return false
		}
	}
	return true
}

func without(items []Expression, i int) []Expression {
	rest := make([]Expression, 0, len(items)-1)
	rest = append(rest, items[:i]...)
	return append(rest, items[i+1:]...)
}

// SampleRandom produces one sentence, choosing branches, orderings and list
// values with rng.
func SampleRandom(exp Expression, rng *rand.Rand, opts SampleOptions) string {
	s := newSampler(opts)
	var b strings.Builder
	s.random(&b, exp, rng, nil)
	return NormaliseInput(b.String())
}

func (s *sampler) random(b *strings.Builder, exp Expression, rng *rand.Rand, rules []string) {
	switch n := exp.(type) {
	case *TextChunk:
		b.WriteString(n.Text)
	case *Sequence:
		for _, item := range n.Items {
			s.random(b, item, rng, rules)
		}
	case *Alternative:
		if len(n.Items) == 0 || (n.Optional && s.opts.SkipOptionals) {
			return
		}
		s.random(b, n.Items[rng.IntN(len(n.Items))], rng, rules)
	case *Permutation:
		for i, idx := range rng.Perm(len(n.Items)) {
			if i > 0 {
				b.WriteByte(' ')
			}
			s.random(b, n.Items[idx], rng, rules)
		}
	case *ListReference:
		values, ok := s.listValues(n.ListName)
		if !ok || len(values) == 0 {
			b.WriteString(s.opts.Placeholder(n.SlotName))
			return
		}
		s.random(b, values[rng.IntN(len(values))], rng, rules)
	case *RuleReference:
		body, ok := s.opts.Rules[n.RuleName]
		if !ok || slices.Contains(rules, n.RuleName) {
			b.WriteString("<" + n.RuleName + ">")
			return
		}
		s.random(b, body, rng, append(rules[:len(rules):len(rules)], n.RuleName))
	case *Wildcard:
		b.WriteString(s.opts.Placeholder(n.Name))
	}
}
