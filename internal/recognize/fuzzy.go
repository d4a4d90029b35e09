package recognize

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

// fuzzySamples caps the renderings compared per sentence.
const fuzzySamples = 512

type fuzzyCandidate struct {
	block    *block
	sentence *compiledSentence
	text     string
	distance int
}

// fuzzy finds, for every sentence the context allows, the rendering closest
// to the utterance by edit distance, and matches that rendering in the
// utterance's place. Results are ordered by distance, then corpus order.
// Sentences with wildcards are skipped since their renderings hold
// placeholders.
func (c *call) fuzzy(ctx context.Context) ([]Result, error) {
	target := c.comparable(c.p.text)

	var candidates []fuzzyCandidate
	for _, b := range c.blocks {
		if !c.contextAllowed(b) {
			continue
		}
		lists := b.listsFor(c.r.doc, c.opts.SlotLists)
		sampler := slots.Sampler{Lists: lists, Ranges: c.r.ranges, Language: c.language}
		for i := range b.sentences {
			cs := &b.sentences[i]
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if cs.wildcard || usesWildcardList(cs.sentence, lists) {
				continue
			}
			if best, ok := c.closest(cs, sampler, target); ok {
				best.block = b
				candidates = append(candidates, best)
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	var results []Result
	for _, cand := range candidates {
		p := prepare(cand.text, nil, c.ignoreWS)
		_, err := c.matchSentence(c.settings(cand.block), cand.block, cand.sentence, p, func(res Result) bool {
			res.Fuzzy = true
			res.Distance = cand.distance
			results = append(results, res)
			return false
		})
		if err != nil {
			return nil, err
		}
		if c.opts.FuzzyLimit > 0 && len(results) >= c.opts.FuzzyLimit {
			break
		}
	}
	c.r.logger.Debug("fuzzy fallback", "text", c.p.text, "candidates", len(candidates), "results", len(results))
	return results, nil
}

func (c *call) closest(cs *compiledSentence, sampler slots.Sampler, target string) (fuzzyCandidate, bool) {
	best := fuzzyCandidate{sentence: cs, distance: -1}
	n := 0
	for text := range expr.Sample(cs.sentence.Exp, expr.SampleOptions{Lists: sampler}) {
		d := levenshtein.ComputeDistance(target, c.comparable(text))
		if best.distance < 0 || d < best.distance {
			best.text = text
			best.distance = d
		}
		n++
		if d == 0 || n >= fuzzySamples {
			break
		}
	}
	return best, best.distance >= 0
}

func (c *call) comparable(text string) string {
	text = strings.ToLower(text)
	if c.ignoreWS {
		return strings.Join(strings.Fields(text), "")
	}
	return text
}

func usesWildcardList(s *expr.Sentence, lists map[string]slots.SlotList) bool {
	for _, name := range s.ListNames() {
		if _, ok := lists[name].(*slots.WildcardSlotList); ok {
			return true
		}
	}
	return false
}
