package recognize

import (
	"fmt"
	"log/slog"
	"maps"
	"regexp"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/intents"
	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

type compiledSentence struct {
	sentence *expr.Sentence
	// regex is nil when the block does not filter.
	regex    *regexp.Regexp
	wildcard bool
}

// block is one intent data block with its templates expanded against the
// rules and lists in its scope.
type block struct {
	intent    *intents.Intent
	data      *intents.IntentData
	parsed    []*expr.Sentence
	sentences []compiledSentence
	lists     map[string]slots.SlotList
}

type registry struct {
	doc    *intents.Intents
	blocks []*block
	logger *slog.Logger
	strict bool
	// wildcards are the corpus lists expanded as wildcards.
	wildcards map[string]bool
}

func newRegistry(doc *intents.Intents, logger *slog.Logger, strict bool) (*registry, error) {
	r := &registry{
		doc:       doc,
		logger:    logger,
		strict:    strict,
		wildcards: slots.WildcardNames(doc.SlotLists),
	}
	phrases := indexLists(doc.SlotLists)
	for _, intent := range doc.Intents {
		for _, data := range intent.Data {
			phrases += indexLists(data.SlotLists)
			b := &block{intent: intent, data: data, lists: doc.Lists(data)}
			for _, text := range data.Sentences {
				sentence, err := expr.Parse(text)
				if err != nil {
					if err := r.reject(intent, text, err); err != nil {
						return nil, err
					}
					continue
				}
				b.parsed = append(b.parsed, sentence)
			}
			r.blocks = append(r.blocks, b)
		}
	}

	blocks, err := r.expand(nil, nil)
	if err != nil {
		return nil, err
	}
	r.blocks = blocks
	logger.Debug("corpus compiled", "blocks", len(blocks), "phrases", phrases)
	return r, nil
}

// indexLists builds the tries of the text lists ahead of the first match.
func indexLists(lists map[string]slots.SlotList) int {
	n := 0
	for _, list := range lists {
		if l, ok := list.(*slots.TextSlotList); ok {
			n += l.Index()
		}
	}
	return n
}

// reject handles a template that cannot be parsed or expanded. Strict
// registries fail; others log and drop the sentence.
func (r *registry) reject(intent *intents.Intent, text string, err error) error {
	if r.strict {
		return fmt.Errorf("intent %q: %w", intent.Name, err)
	}
	r.logger.Warn("skipping sentence", "intent", intent.Name, "sentence", text, "error", err)
	return nil
}

// expand returns the blocks with their sentences expanded against the
// corpus rules, extraRules, and each block's own rules, in that order of
// precedence from lowest to highest. A list reference becomes a wildcard
// when the list in the block's scope is one: block lists shadow extraLists,
// which shadow the corpus lists.
func (r *registry) expand(extraRules map[string]string, extraLists map[string]slots.SlotList) ([]*block, error) {
	base := r.doc.SlotLists
	if len(extraLists) > 0 {
		base = overlay(r.doc.SlotLists, extraLists)
	}
	root := expr.NewExpander(r.doc.ExpansionRules, slots.WildcardNames(base)).
		With(extraRules, nil)

	out := make([]*block, 0, len(r.blocks))
	for _, b := range r.blocks {
		expander := root.With(b.data.ExpansionRules, slots.WildcardFlags(b.data.SlotLists))
		next := &block{
			intent: b.intent,
			data:   b.data,
			parsed: b.parsed,
			lists:  overlay(base, b.data.SlotLists),
		}
		for _, parsed := range b.parsed {
			sentence, err := expander.ExpandSentence(parsed)
			if err != nil {
				if err := r.reject(b.intent, parsed.Text, err); err != nil {
					return nil, err
				}
				continue
			}
			compiled := compiledSentence{
				sentence: sentence,
				wildcard: expr.HasWildcard(sentence.Exp),
			}
			if b.data.FilterWithRegex {
				re, err := expr.CompileRegex(sentence.Exp)
				if err != nil {
					return nil, fmt.Errorf("intent %q: sentence %q: %w", b.intent.Name, parsed.Text, err)
				}
				compiled.regex = re
			}
			next.sentences = append(next.sentences, compiled)
		}
		out = append(out, next)
	}
	return out, nil
}

// blocksFor returns the blocks to use for a call. Extra rules need a fresh
// expansion since they may replace rules already substituted, and so do
// extra lists that make a wildcard out of a list or the other way round.
func (r *registry) blocksFor(opts *Options) ([]*block, error) {
	if len(opts.ExpansionRules) == 0 && !r.reshapes(opts.SlotLists) {
		return r.blocks, nil
	}
	return r.expand(opts.ExpansionRules, opts.SlotLists)
}

func (r *registry) reshapes(extra map[string]slots.SlotList) bool {
	for name, wildcard := range slots.WildcardFlags(extra) {
		if wildcard != r.wildcards[name] {
			return true
		}
	}
	return false
}

// listsFor lays the call's lists under a block's local lists.
func (b *block) listsFor(doc *intents.Intents, extra map[string]slots.SlotList) map[string]slots.SlotList {
	if len(extra) == 0 {
		return b.lists
	}
	return overlay(overlay(doc.SlotLists, extra), b.data.SlotLists)
}

func overlay(base, top map[string]slots.SlotList) map[string]slots.SlotList {
	if len(top) == 0 {
		return base
	}
	out := make(map[string]slots.SlotList, len(base)+len(top))
	maps.Copy(out, base)
	maps.Copy(out, top)
	return out
}
