package recognize

import (
	"iter"
	"slices"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

type SampleOptions struct {
	// Intents limits sampling to these intents; empty means all.
	Intents       []string
	SkipOptionals bool
	// Limit caps the samples per sentence template; zero means no cap.
	Limit int
	// Random draws Limit random samples per template from Seed instead of
	// enumerating them in order.
	Random bool
	Seed   int64
}

type Sample struct {
	Intent   string
	Template string
	Text     string
}

// Samples renders the corpus templates as concrete sentences. List values,
// ranges and rules are filled in from the corpus; wildcards show as
// "{slot}".
func (r *Recognizer) Samples(opts SampleOptions) iter.Seq[Sample] {
	return func(yield func(Sample) bool) {
		rng := expr.NewRand(opts.Seed)
		for _, b := range r.reg.blocks {
			if len(opts.Intents) > 0 && !slices.Contains(opts.Intents, b.intent.Name) {
				continue
			}
			sampleOpts := expr.SampleOptions{
				Lists: slots.Sampler{
					Lists:    b.lists,
					Ranges:   r.ranges,
					Language: r.doc.Language,
				},
				SkipOptionals: opts.SkipOptionals,
			}
			for _, cs := range b.sentences {
				emit := func(text string) bool {
					return yield(Sample{Intent: b.intent.Name, Template: cs.sentence.Text, Text: text})
				}
				if opts.Random {
					for range max(opts.Limit, 1) {
						if !emit(expr.SampleRandom(cs.sentence.Exp, rng, sampleOpts)) {
							return
						}
					}
					continue
				}
				n := 0
				for text := range expr.Sample(cs.sentence.Exp, sampleOpts) {
					if !emit(text) {
						return
					}
					n++
					if opts.Limit > 0 && n >= opts.Limit {
						break
					}
				}
			}
		}
	}
}
