// Package recognize matches utterances against a compiled intent corpus.
//
// A Recognizer is built once from an intents.Intents document: every
// template is parsed, expanded and given a regex pre-filter up front. After
// that it is read-only and safe for concurrent use.
package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/appengine-ltd/intentgrammar/internal/intents"
	"github.com/appengine-ltd/intentgrammar/internal/match"
	"github.com/appengine-ltd/intentgrammar/internal/numwords"
	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

type Recognizer struct {
	doc    *intents.Intents
	reg    *registry
	ranges *slots.RangeCache
	skip   *regexp.Regexp
	logger *slog.Logger
}

type config struct {
	logger *slog.Logger
	words  slots.NumberWords
	strict bool
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithNumberWords sets how range values are spelled out. The default
// speaks English.
func WithNumberWords(words slots.NumberWords) Option {
	return func(c *config) { c.words = words }
}

// WithStrict makes New fail on templates that do not parse or expand.
// Otherwise they are logged and left out.
func WithStrict() Option {
	return func(c *config) { c.strict = true }
}

func New(doc *intents.Intents, opts ...Option) (*Recognizer, error) {
	cfg := config{logger: slog.Default(), words: numwords.English{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	reg, err := newRegistry(doc, cfg.logger, cfg.strict)
	if err != nil {
		return nil, err
	}
	return &Recognizer{
		doc:    doc,
		reg:    reg,
		ranges: slots.NewRangeCache(cfg.words),
		skip:   skipWordPattern(doc.SkipWords, doc.Settings.IgnoreWhitespace),
		logger: cfg.logger,
	}, nil
}

func (r *Recognizer) Intents() *intents.Intents {
	return r.doc
}

// RecognizeAll returns every match of text in corpus order: intents, their
// data blocks, sentences and then the order the matcher found them. When
// nothing matches and opts.Fuzzy is set, the closest sentences are matched
// instead.
func (r *Recognizer) RecognizeAll(ctx context.Context, text string, opts Options) ([]Result, error) {
	start := time.Now()
	ctx, span := startRecognizeSpan(ctx, "Recognizer.RecognizeAll", text, opts.Fuzzy)
	defer span.End()

	results, outcome, err := r.recognizeAll(ctx, text, &opts)
	observe(span, start, len(results), outcome, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Recognizer) recognizeAll(ctx context.Context, text string, opts *Options) ([]Result, string, error) {
	c, err := r.newCall(text, opts)
	if err != nil {
		return nil, "error", err
	}

	var results []Result
	if opts.Parallelism > 1 {
		results, err = c.parallel(ctx, opts.Parallelism)
	} else {
		err = c.each(ctx, func(res Result) bool {
			results = append(results, res)
			return true
		})
	}
	if err != nil {
		return nil, "error", err
	}
	if len(results) > 0 {
		return results, "match", nil
	}
	if !opts.Fuzzy {
		return nil, "none", nil
	}

	results, err = c.fuzzy(ctx)
	if err != nil {
		return nil, "error", err
	}
	if len(results) == 0 {
		return nil, "none", nil
	}
	return results, "fuzzy", nil
}

// Recognize returns the first match of text, or nil. Matching stops at the
// first result.
func (r *Recognizer) Recognize(ctx context.Context, text string, opts Options) (*Result, error) {
	start := time.Now()
	ctx, span := startRecognizeSpan(ctx, "Recognizer.Recognize", text, opts.Fuzzy)
	defer span.End()

	first, outcome, err := r.recognize(ctx, text, &opts)
	n := 0
	if first != nil {
		n = 1
	}
	observe(span, start, n, outcome, err)
	if err != nil {
		return nil, err
	}
	return first, nil
}

func (r *Recognizer) recognize(ctx context.Context, text string, opts *Options) (*Result, string, error) {
	c, err := r.newCall(text, opts)
	if err != nil {
		return nil, "error", err
	}

	var first *Result
	err = c.each(ctx, func(res Result) bool {
		first = &res
		return false
	})
	if err != nil {
		return nil, "error", err
	}
	if first != nil {
		return first, "match", nil
	}
	if !opts.Fuzzy {
		return nil, "none", nil
	}

	fuzzy, err := c.fuzzy(ctx)
	if err != nil {
		return nil, "error", err
	}
	if len(fuzzy) == 0 {
		return nil, "none", nil
	}
	return &fuzzy[0], "fuzzy", nil
}

// call is the per-utterance state of one recognition.
type call struct {
	r        *Recognizer
	opts     *Options
	p        prepared
	blocks   []*block
	language string
	ignoreWS bool
}

func (r *Recognizer) newCall(text string, opts *Options) (*call, error) {
	blocks, err := r.reg.blocksFor(opts)
	if err != nil {
		return nil, fmt.Errorf("expand call rules: %w", err)
	}

	ignoreWS := r.doc.Settings.IgnoreWhitespace
	skip := r.skip
	if len(opts.SkipWords) > 0 {
		skip = skipWordPattern(append(slices.Clone(opts.SkipWords), r.doc.SkipWords...), ignoreWS)
	}

	language := opts.Language
	if language == "" {
		language = r.doc.Language
	}
	return &call{
		r:        r,
		opts:     opts,
		p:        prepare(text, skip, ignoreWS),
		blocks:   blocks,
		language: language,
		ignoreWS: ignoreWS,
	}, nil
}

// each matches blocks one at a time until yield returns false.
func (c *call) each(ctx context.Context, yield func(Result) bool) error {
	for _, b := range c.blocks {
		if !c.keywordsAllowed(b) || !c.contextAllowed(b) {
			continue
		}
		more, err := c.matchBlock(ctx, b, c.p, yield)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

// parallel matches up to n blocks at once and returns results in corpus
// order.
func (c *call) parallel(ctx context.Context, n int) ([]Result, error) {
	perBlock := make([][]Result, len(c.blocks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n)
	for i, b := range c.blocks {
		if !c.keywordsAllowed(b) || !c.contextAllowed(b) {
			continue
		}
		g.Go(func() error {
			_, err := c.matchBlock(gctx, b, c.p, func(res Result) bool {
				perBlock[i] = append(perBlock[i], res)
				return true
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(perBlock...), nil
}

// keywordsAllowed rejects blocks whose required keywords are all missing
// from the utterance.
func (c *call) keywordsAllowed(b *block) bool {
	return len(b.data.RequiredKeywords) == 0 || c.p.hasKeyword(b.data.RequiredKeywords)
}

// contextAllowed rules out blocks the caller's context contradicts. Keys the
// caller did not give may still be filled by list values while matching.
func (c *call) contextAllowed(b *block) bool {
	if len(c.opts.Context) == 0 {
		return true
	}
	if len(b.data.RequiresContext) > 0 && !match.CheckRequiredContext(b.data.RequiresContext, c.opts.Context, true) {
		return false
	}
	if len(b.data.ExcludesContext) > 0 && !match.CheckExcludedContext(b.data.ExcludesContext, c.opts.Context) {
		return false
	}
	return true
}

func (c *call) settings(b *block) *match.Settings {
	return &match.Settings{
		SlotLists:        b.listsFor(c.r.doc, c.opts.SlotLists),
		Language:         c.language,
		IgnoreWhitespace: c.ignoreWS,
		Ranges:           c.r.ranges,
		RequiresContext:  b.data.RequiresContext,
		ExcludesContext:  b.data.ExcludesContext,
		Logger:           c.r.logger,
	}
}

// matchBlock yields every result of p against b's sentences. It reports
// false when yield asked to stop.
func (c *call) matchBlock(ctx context.Context, b *block, p prepared, yield func(Result) bool) (bool, error) {
	settings := c.settings(b)
	for i := range b.sentences {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		more, err := c.matchSentence(settings, b, &b.sentences[i], p, yield)
		if err != nil || !more {
			return false, err
		}
	}
	return true, nil
}

func (c *call) matchSentence(settings *match.Settings, b *block, cs *compiledSentence, p prepared, yield func(Result) bool) (bool, error) {
	if cs.regex != nil && !cs.regex.MatchString(p.input) {
		sentencesTried.WithLabelValues("filtered").Inc()
		return true, nil
	}
	sentencesTried.WithLabelValues("matched").Inc()

	more := true
	err := match.Run(settings, match.NewState(p.input, c.opts.Context), cs.sentence.Exp, func(st match.State) bool {
		if !st.IsMatch() {
			return true
		}
		res, ok := c.finalize(b, cs, st)
		if !ok {
			return true
		}
		more = yield(res)
		return more
	})
	if err != nil {
		return false, fmt.Errorf("intent %q: sentence %q: %w", b.intent.Name, cs.sentence.Text, err)
	}
	return more, nil
}

// finalize applies the block's context conditions to a complete match and
// adds the block's fixed and context-copied slots.
func (c *call) finalize(b *block, cs *compiledSentence, st match.State) (Result, bool) {
	data := b.data
	if len(data.ExcludesContext) > 0 && !match.CheckExcludedContext(data.ExcludesContext, st.Context) {
		return Result{}, false
	}
	var fromContext []match.Entity
	if len(data.RequiresContext) > 0 {
		copied, ok := match.RequiredContextSlots(data.RequiresContext, st.Context)
		if !ok {
			return Result{}, false
		}
		fromContext = copied
	}

	bound := make(map[string]bool, len(st.Entities))
	for _, e := range st.Entities {
		bound[e.Name] = true
	}
	list := slices.Clone(st.Entities)
	for _, name := range slices.Sorted(maps.Keys(data.Slots)) {
		if !bound[name] {
			list = append(list, match.Entity{Name: name, Value: data.Slots[name]})
		}
	}
	for _, e := range fromContext {
		if !bound[e.Name] {
			list = append(list, e)
		}
	}

	entities := make(map[string]match.Entity, len(list))
	for _, e := range list {
		entities[e.Name] = e
	}

	response := data.Response
	if response == "" {
		response = c.opts.DefaultResponse
	}
	if response == "" {
		response = DefaultResponse
	}

	return Result{
		Intent:            b.intent,
		Data:              data,
		Entities:          entities,
		EntitiesList:      list,
		Response:          response,
		Context:           st.Context,
		TextChunksMatched: st.TextChunksMatched,
		Sentence:          cs.sentence,
		Metadata:          data.Metadata,
	}, true
}
