// Package match walks an expression tree against an utterance and yields
// every way the utterance can be consumed by it.
//
// Matching is a depth-first backtracking search. Each node hands the states
// it can reach to a continuation, so alternatives, permutation orders,
// wildcard splits and list values are only explored as far as the caller
// keeps asking for results.
package match

import (
	"iter"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

// Punctuation is ignored at word edges of an utterance and in whatever is
// left over after a match.
const Punctuation = ".。,，?¿？؟!¡！;；:：’"

type Settings struct {
	SlotLists map[string]slots.SlotList
	// Rules resolves rule references that were not expanded ahead of time.
	// Bodies must already be expanded.
	Rules            map[string]expr.Expression
	Language         string
	IgnoreWhitespace bool
	Ranges           *slots.RangeCache
	// RequiresContext and ExcludesContext restrict which list values may be
	// used, by each value's own context.
	RequiresContext map[string]any
	ExcludesContext map[string]any
	Logger          *slog.Logger
}

// Entity is a slot bound during matching. Text is the span of the utterance
// that produced it.
type Entity struct {
	Name       string
	Value      any
	Text       string
	Metadata   map[string]any
	IsWildcard bool
}

// State is one point in the search. States are values; entity slices and
// context maps are never written after they are shared, so states can be
// copied freely.
type State struct {
	Text              string
	Entities          []Entity
	Context           map[string]any
	StartOfWord       bool
	TextChunksMatched int
}

func NewState(text string, context map[string]any) State {
	return State{Text: text, Context: context, StartOfWord: true}
}

// IsMatch reports whether the whole utterance has been consumed. Trailing
// whitespace and punctuation do not count.
func (s State) IsMatch() bool {
	return strings.TrimFunc(s.Text, isIgnorable) == ""
}

func isIgnorable(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(Punctuation, r)
}

// Entity returns the last entity bound to name.
func (s State) Entity(name string) (Entity, bool) {
	for i := len(s.Entities) - 1; i >= 0; i-- {
		if s.Entities[i].Name == name {
			return s.Entities[i], true
		}
	}
	return Entity{}, false
}

func (s State) withEntity(e Entity) State {
	entities := make([]Entity, len(s.Entities), len(s.Entities)+1)
	copy(entities, s.Entities)
	s.Entities = append(entities, e)
	return s
}

// Run calls yield with every state reachable by matching exp from initial,
// including partial matches; callers filter with IsMatch. It stops when
// yield returns false. The only errors are invalid list configurations.
func Run(settings *Settings, initial State, exp expr.Expression, yield func(State) bool) error {
	m := &matcher{settings: settings, logger: settings.Logger}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.match(initial, exp, yield)
	return m.err
}

// Matches returns the complete matches of text.
func Matches(settings *Settings, text string, exp expr.Expression) ([]State, error) {
	var out []State
	err := Run(settings, NewState(text, nil), exp, func(s State) bool {
		if s.IsMatch() {
			out = append(out, s)
		}
		return true
	})
	return out, err
}

type matcher struct {
	settings *Settings
	logger   *slog.Logger
	err      error
}

// continuation receives a state and reports whether the search should go on.
type continuation func(State) bool

func (m *matcher) match(st State, exp expr.Expression, k continuation) bool {
	switch n := exp.(type) {
	case *expr.TextChunk:
		return m.matchChunk(st, n, k)
	case *expr.Sequence:
		return m.matchSequence(st, n.Items, k)
	case *expr.Alternative:
		for _, item := range n.Items {
			if !m.match(st, item, k) {
				return false
			}
		}
		return true
	case *expr.Permutation:
		return m.matchPermutation(st, n.Items, true, k)
	case *expr.ListReference:
		return m.matchList(st, n, k)
	case *expr.RuleReference:
		body, ok := m.settings.Rules[n.RuleName]
		if !ok {
			m.logger.Debug("unknown expansion rule", "rule", n.RuleName)
			return true
		}
		return m.match(st, body, k)
	case *expr.Wildcard:
		return m.matchWildcard(st, n.Name, k)
	default:
		return true
	}
}

func (m *matcher) matchSequence(st State, items []expr.Expression, k continuation) bool {
	if len(items) == 0 {
		return k(st)
	}
	return m.match(st, items[0], func(next State) bool {
		return m.matchSequence(next, items[1:], k)
	})
}

func (m *matcher) matchChunk(st State, chunk *expr.TextChunk, k continuation) bool {
	if chunk.Text == "" {
		return k(st)
	}

	chunkText, text := chunk.Text, st.Text
	if m.settings.IgnoreWhitespace {
		chunkText = stripSpace(chunkText)
	} else if st.StartOfWord {
		chunkText = strings.TrimLeftFunc(chunkText, unicode.IsSpace)
		text = strings.TrimLeftFunc(text, unicode.IsSpace)
	}

	next := st
	next.StartOfWord = m.settings.IgnoreWhitespace || strings.HasSuffix(chunk.Text, " ")
	if strings.TrimSpace(chunkText) != "" {
		next.TextChunksMatched++
	}

	if end, ok := matchPrefix(text, chunkText); ok {
		next.Text = text[end:]
		return k(next)
	}

	if strings.TrimSpace(chunkText) == "" && strings.TrimSpace(text) == "" {
		return k(st)
	}

	if broken := expr.BreakWords(text); broken != text {
		if end, ok := matchPrefix(broken, chunkText); ok {
			next.Text = broken[end:]
			return k(next)
		}
	}
	return true
}

// matchPrefix compares prefix to the start of text without regard to case
// and returns how many bytes of text it covered.
func matchPrefix(text, prefix string) (int, bool) {
	i := 0
	for _, pr := range prefix {
		if i >= len(text) {
			return 0, false
		}
		tr, size := utf8.DecodeRuneInString(text[i:])
		if !equalFold(tr, pr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

func stripSpace(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
}

func (m *matcher) matchPermutation(st State, items []expr.Expression, first bool, k continuation) bool {
	if len(items) == 0 {
		return k(st)
	}
	if !first {
		var ok bool
		if st, ok = m.separate(st); !ok {
			return true
		}
	}
	for i, item := range items {
		rest := without(items, i)
		cont := m.match(st, item, func(next State) bool {
			return m.matchPermutation(next, rest, false, k)
		})
		if !cont {
			return false
		}
	}
	return true
}

// separate moves past the word boundary between two permutation items.
func (m *matcher) separate(st State) (State, bool) {
	if m.settings.IgnoreWhitespace {
		return st, true
	}
	trimmed := strings.TrimLeftFunc(st.Text, unicode.IsSpace)
	if len(trimmed) == len(st.Text) && !st.StartOfWord && trimmed != "" {
		return st, false
	}
	st.Text = trimmed
	st.StartOfWord = true
	return st, true
}

func without(items []expr.Expression, i int) []expr.Expression {
	rest := make([]expr.Expression, 0, len(items)-1)
	rest = append(rest, items[:i]...)
	return append(rest, items[i+1:]...)
}

func (m *matcher) matchList(st State, ref *expr.ListReference, k continuation) bool {
	list, ok := m.settings.SlotLists[ref.ListName]
	if !ok {
		m.logger.Debug("unknown slot list", "list", ref.ListName)
		return true
	}
	switch l := list.(type) {
	case *slots.TextSlotList:
		return m.matchTextList(st, ref.SlotName, l, k)
	case *slots.RangeSlotList:
		return m.matchRange(st, ref.SlotName, l, k)
	case *slots.WildcardSlotList:
		return m.matchWildcard(st, ref.SlotName, k)
	default:
		return true
	}
}

func (m *matcher) matchTextList(st State, slot string, list *slots.TextSlotList, k continuation) bool {
	if strings.TrimSpace(st.Text) == "" {
		return true
	}

	var candidates []int
	if m.settings.IgnoreWhitespace {
		candidates = list.All()
	} else {
		candidates = list.Candidates(strings.TrimLeftFunc(st.Text, unicode.IsSpace))
	}

	for _, idx := range candidates {
		value := &list.Values[idx]
		if !m.valueAllowed(value) {
			continue
		}
		cont := m.match(st, value.In, func(vs State) bool {
			consumed := st.Text[:len(st.Text)-len(vs.Text)]
			next := vs.withEntity(Entity{
				Name:     slot,
				Value:    value.Out,
				Text:     strings.TrimSpace(consumed),
				Metadata: value.Metadata,
			})
			next.TextChunksMatched = st.TextChunksMatched
			next.Context = mergeContext(vs.Context, value.Context)
			return k(next)
		})
		if !cont {
			return false
		}
	}
	return true
}

func (m *matcher) valueAllowed(value *slots.TextSlotValue) bool {
	if len(value.Context) == 0 {
		return true
	}
	if m.settings.RequiresContext != nil && !CheckRequiredContext(m.settings.RequiresContext, value.Context, true) {
		return false
	}
	if m.settings.ExcludesContext != nil && !CheckExcludedContext(m.settings.ExcludesContext, value.Context) {
		return false
	}
	return true
}

var (
	integerRE = regexp.MustCompile(`^\s*(-?[0-9]+)`)
	decimalRE = regexp.MustCompile(`^\s*(-?[0-9]+(?:[.,][0-9]+)?)`)
)

func (m *matcher) matchRange(st State, slot string, list *slots.RangeSlotList, k continuation) bool {
	if err := list.Validate(); err != nil {
		m.err = err
		return false
	}

	text := st.Text
	if strings.TrimSpace(text) == "" {
		return true
	}

	if list.Digits {
		re := integerRE
		if list.Fractions != slots.FractionNone {
			re = decimalRE
		}
		if loc := re.FindStringSubmatchIndex(text); loc != nil {
			digits := text[loc[2]:loc[3]]
			n, err := slots.ParseNumber(digits)
			if err != nil || !list.Contains(n) {
				return true
			}
			next := st.withEntity(Entity{Name: slot, Value: list.Value(n), Text: digits})
			next.Text = text[loc[1]:]
			next.StartOfWord = false
			return k(next)
		}
	}

	if !list.Words {
		return true
	}
	language := list.WordsLanguage
	if language == "" {
		language = m.settings.Language
	}
	if language == "" || m.settings.Ranges == nil {
		return true
	}
	words, err := m.settings.Ranges.Words(list, language)
	if err != nil {
		m.logger.Debug("no number words for range", "list", list.Name, "language", language, "error", err)
		return true
	}

	text = strings.TrimLeftFunc(text, unicode.IsSpace)
	for _, found := range words.Trie.Prefixes(text) {
		for _, n := range found.Values {
			next := st.withEntity(Entity{Name: slot, Value: list.Value(n), Text: found.Text})
			next.Text = text[found.End:]
			next.StartOfWord = false
			if !k(next) {
				return false
			}
		}
	}
	return true
}

// matchWildcard binds every non-empty run of whole words at the front of the
// text, shortest first, leaving the rest to the remainder of the template.
func (m *matcher) matchWildcard(st State, slot string, k continuation) bool {
	text := strings.TrimLeftFunc(st.Text, unicode.IsSpace)
	if strings.TrimSpace(text) == "" {
		return true
	}

	for end := range m.wordEnds(text) {
		captured := strings.TrimSpace(text[:end])
		if captured == "" {
			continue
		}
		next := st.withEntity(Entity{Name: slot, Value: captured, Text: captured, IsWildcard: true})
		next.Text = text[end:]
		next.StartOfWord = false
		if !k(next) {
			return false
		}
	}
	return true
}

// wordEnds yields the offsets in text where a captured span may stop: the
// start of each whitespace run, and the end of text unless it is already
// covered by a trailing run.
func (m *matcher) wordEnds(text string) iter.Seq[int] {
	return func(yield func(int) bool) {
		prevSpace := false
		for i, r := range text {
			space := unicode.IsSpace(r)
			if i > 0 && (m.settings.IgnoreWhitespace || (space && !prevSpace)) {
				if !yield(i) {
					return
				}
			}
			prevSpace = space
		}
		if !prevSpace {
			yield(len(text))
		}
	}
}
