package recognize

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/intents"
	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

const homeYAML = `
language: en
intents:
  TurnOn:
    data:
      - sentences:
          - "turn on [the] {area} light[s]"
          - "<light> on"
        slots:
          domain: light
  TurnOff:
    data:
      - sentences:
          - "turn off [the] {area} light[s]"
        response: turned_off
  TurnOnContext:
    data:
      - sentences:
          - "turn it on"
        requires_context:
          area:
            slot: true
        excludes_context:
          domain: cover
  PlayAlbum:
    data:
      - sentences:
          - "play {album} by {artist}"
          - "play {album}"
  PlayMusic:
    data:
      - sentences:
          - "play music"
  SetBrightness:
    data:
      - sentences:
          - "set brightness to {brightness} percent"
  Halt:
    data:
      - sentences: ["stop everything"]
        required_keywords: ["nothing"]
      - sentences: ["halt everything"]
        required_keywords: ["pause", "halt"]
  Heat:
    data:
      - sentences: ["start <heater>"]
lists:
  area:
    values:
      - kitchen
      - in: living room
        out: living_room
  album:
    wildcard: true
  artist:
    wildcard: true
  brightness:
    range:
      from: 0
      to: 100
expansion_rules:
  light: "[the] {area} light[s]"
skip_words:
  - please
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadDoc(t *testing.T, text string) *intents.Intents {
	t.Helper()
	doc, err := intents.Parse([]byte(text))
	require.NoError(t, err)
	return doc
}

func newRecognizer(t *testing.T, text string, opts ...Option) *Recognizer {
	t.Helper()
	r, err := New(loadDoc(t, text), append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	return r
}

func intentNames(results []Result) []string {
	names := make([]string, 0, len(results))
	for _, res := range results {
		names = append(names, res.Intent.Name)
	}
	return names
}

func entityValues(res Result) map[string]any {
	out := map[string]any{}
	for name, e := range res.Entities {
		out[name] = e.Value
	}
	return out
}

func TestRecognize(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	res, err := r.Recognize(context.Background(), "turn on the kitchen light", Options{})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "TurnOn", res.Intent.Name)
	assert.Equal(t, map[string]any{"area": "kitchen", "domain": "light"}, entityValues(*res))
	assert.Equal(t, "kitchen", res.Entities["area"].Text)
	assert.Equal(t, "", res.Entities["domain"].Text)
	assert.Equal(t, DefaultResponse, res.Response)
	assert.Equal(t, "turn on [the] {area} light[s]", res.Sentence.Text)
	assert.Equal(t, 4, res.TextChunksMatched)
	assert.False(t, res.Fuzzy)
}

func TestRecognizeNoMatch(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	res, err := r.Recognize(context.Background(), "turn up the kitchen light", Options{})
	require.NoError(t, err)
	assert.Nil(t, res)

	all, err := r.RecognizeAll(context.Background(), "turn up the kitchen light", Options{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRecognizeListValueOut(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	res, err := r.Recognize(context.Background(), "turn off living room light", Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "TurnOff", res.Intent.Name)
	assert.Equal(t, "living_room", res.Entities["area"].Value)
	assert.Equal(t, "living room", res.Entities["area"].Text)
	assert.Equal(t, "turned_off", res.Response)

	res, err = r.Recognize(context.Background(), "turn off living room light", Options{DefaultResponse: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "turned_off", res.Response)

	res, err = r.Recognize(context.Background(), "kitchen light on", Options{DefaultResponse: "ok"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "ok", res.Response)
}

func TestRecognizePunctuationAndSkipWords(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	for _, text := range []string{
		"Turn on the kitchen light!",
		"turn, on the kitchen light.",
		"please turn on the kitchen light please",
		"  TURN   ON the Kitchen Light  ",
	} {
		res, err := r.Recognize(ctx, text, Options{})
		require.NoError(t, err)
		require.NotNil(t, res, text)
		assert.Equal(t, "TurnOn", res.Intent.Name, text)
	}

	res, err := r.Recognize(ctx, "kindly turn on the kitchen light", Options{})
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = r.Recognize(ctx, "kindly turn on the kitchen light please", Options{SkipWords: []string{"kindly"}})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "TurnOn", res.Intent.Name)
}

func TestRecognizeRequiredKeywords(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	all, err := r.RecognizeAll(ctx, "stop everything", Options{})
	require.NoError(t, err)
	assert.Empty(t, all)

	all, err = r.RecognizeAll(ctx, "Halt everything", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Halt"}, intentNames(all))
}

func TestRecognizeRequiredContext(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	res, err := r.Recognize(ctx, "turn it on", Options{})
	require.NoError(t, err)
	assert.Nil(t, res, "area must come from the context")

	res, err = r.Recognize(ctx, "turn it on", Options{Context: map[string]any{"area": "kitchen"}})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "TurnOnContext", res.Intent.Name)
	assert.Equal(t, "kitchen", res.Entities["area"].Value)
	assert.Equal(t, map[string]any{"area": "kitchen"}, res.Context)

	res, err = r.Recognize(ctx, "turn it on", Options{Context: map[string]any{
		"area": map[string]any{"value": "area.kitchen", "text": "Kitchen"},
	}})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "area.kitchen", res.Entities["area"].Value)
	assert.Equal(t, "Kitchen", res.Entities["area"].Text)

	res, err = r.Recognize(ctx, "turn it on", Options{Context: map[string]any{"area": "kitchen", "domain": "cover"}})
	require.NoError(t, err)
	assert.Nil(t, res, "excluded by domain")
}

func TestRecognizeWildcards(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	all, err := r.RecognizeAll(context.Background(), "play day by day by taken by trees", Options{})
	require.NoError(t, err)

	var pairs [][2]any
	for _, res := range all {
		if res.Sentence.Text != "play {album} by {artist}" {
			continue
		}
		pairs = append(pairs, [2]any{res.Entities["album"].Value, res.Entities["artist"].Value})
		assert.True(t, res.Entities["album"].IsWildcard)
	}
	assert.ElementsMatch(t, [][2]any{
		{"day", "day by taken by trees"},
		{"day by day", "taken by trees"},
		{"day by day by taken", "trees"},
	}, pairs)
	assert.Len(t, all, 4)
}

func TestRecognizeRange(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	for text, want := range map[string]int{
		"set brightness to 50 percent":    50,
		"set brightness to fifty percent": 50,
		"set brightness to 0 percent":     0,
	} {
		res, err := r.Recognize(ctx, text, Options{})
		require.NoError(t, err)
		require.NotNil(t, res, text)
		assert.Equal(t, want, res.Entities["brightness"].Value, text)
	}

	res, err := r.Recognize(ctx, "set brightness to 101 percent", Options{})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestRecognizeCallListsAndRules(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	res, err := r.Recognize(ctx, "start the heater", Options{})
	require.NoError(t, err)
	assert.Nil(t, res, "unknown rules never match")

	res, err = r.Recognize(ctx, "start the heater", Options{ExpansionRules: map[string]string{"heater": "[the] heater"}})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Heat", res.Intent.Name)

	garage, err := slots.TextSlotListFromStrings("area", "garage")
	require.NoError(t, err)
	opts := Options{SlotLists: map[string]slots.SlotList{"area": garage}}

	res, err = r.Recognize(ctx, "turn on the garage light", opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "garage", res.Entities["area"].Value)

	res, err = r.Recognize(ctx, "turn on the kitchen light", opts)
	require.NoError(t, err)
	assert.Nil(t, res)

	// call lists reach rule bodies too
	opts.ExpansionRules = map[string]string{"heater": "heater"}
	res, err = r.Recognize(ctx, "the garage light on", opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "garage", res.Entities["area"].Value)
}

func TestRecognizeCallWildcardList(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	opts := Options{SlotLists: map[string]slots.SlotList{"area": slots.NewWildcardSlotList("area")}}
	res, err := r.Recognize(context.Background(), "turn on the back garden light", opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "back garden", res.Entities["area"].Value)
	assert.True(t, res.Entities["area"].IsWildcard)
}

const shadowYAML = `
language: en
intents:
  Play:
    data:
      - sentences: ["play {name} now"]
        lists:
          name:
            values: ["jazz", "rock"]
  Say:
    data:
      - sentences: ["say {name}"]
lists:
  name:
    wildcard: true
`

func TestRecognizeLocalListShadowsWildcard(t *testing.T) {
	r := newRecognizer(t, shadowYAML)
	ctx := context.Background()

	res, err := r.Recognize(ctx, "play anything at all now", Options{})
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = r.Recognize(ctx, "play jazz now", Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Play", res.Intent.Name)
	assert.Equal(t, "jazz", res.Entities["name"].Value)
	assert.False(t, res.Entities["name"].IsWildcard)

	res, err = r.Recognize(ctx, "say anything else", Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "anything else", res.Entities["name"].Value)
}

func TestRecognizeCallListShadowsWildcard(t *testing.T) {
	r := newRecognizer(t, shadowYAML)
	ctx := context.Background()

	red, err := slots.TextSlotListFromStrings("name", "red")
	require.NoError(t, err)
	opts := Options{SlotLists: map[string]slots.SlotList{"name": red}}

	all, err := r.RecognizeAll(ctx, "say anything else", opts)
	require.NoError(t, err)
	assert.Empty(t, all)

	res, err := r.Recognize(ctx, "say red", opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Say", res.Intent.Name)
	assert.False(t, res.Entities["name"].IsWildcard)

	// block lists still win over call lists
	res, err = r.Recognize(ctx, "play rock now", opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "rock", res.Entities["name"].Value)

	// the compiled corpus is untouched by the call
	res, err = r.Recognize(ctx, "say anything else", Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Entities["name"].IsWildcard)
}

func TestRecognizeParallelKeepsOrder(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	for _, text := range []string{
		"play music",
		"play day by day by taken by trees",
		"turn on the kitchen light",
		"nothing at all",
	} {
		serial, err := r.RecognizeAll(ctx, text, Options{})
		require.NoError(t, err)
		parallel, err := r.RecognizeAll(ctx, text, Options{Parallelism: 4})
		require.NoError(t, err)

		assert.Equal(t, intentNames(serial), intentNames(parallel), text)
		for i := range serial {
			assert.Equal(t, serial[i].EntitiesList, parallel[i].EntitiesList, text)
		}
	}
}

func TestRecognizeCancelled(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RecognizeAll(ctx, "turn on the kitchen light", Options{})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = r.RecognizeAll(ctx, "turn on the kitchen light", Options{Parallelism: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegexFilterNeverRejectsMatches(t *testing.T) {
	filtered := newRecognizer(t, homeYAML)
	unfiltered := newRecognizer(t, "settings:\n  filter_with_regex: false\n"+homeYAML)
	ctx := context.Background()

	texts := []string{
		"turn on the kitchen light",
		"turn on living-room lights",
		"the living room light on",
		"play music",
		"play day by day by taken by trees",
		"set brightness to forty-two percent",
		"set brightness to 42 percent",
		"turn off kitchen",
		"halt everything",
	}
	for _, text := range texts {
		want, err := unfiltered.RecognizeAll(ctx, text, Options{})
		require.NoError(t, err)
		got, err := filtered.RecognizeAll(ctx, text, Options{})
		require.NoError(t, err)
		assert.Equal(t, intentNames(want), intentNames(got), text)
	}
}

func TestSamplesAreRecognized(t *testing.T) {
	r := newRecognizer(t, homeYAML)
	ctx := context.Background()

	var count int
	for sample := range r.Samples(SampleOptions{Intents: []string{"TurnOn", "TurnOff", "PlayMusic"}}) {
		count++
		all, err := r.RecognizeAll(ctx, sample.Text, Options{})
		require.NoError(t, err)
		assert.Contains(t, intentNames(all), sample.Intent, sample.Text)
	}
	// 8 renderings for each of the three light templates, plus "play music"
	assert.Equal(t, 25, count)
}

func TestSamplesLimitAndRandom(t *testing.T) {
	r := newRecognizer(t, homeYAML)

	var limited []string
	for s := range r.Samples(SampleOptions{Intents: []string{"TurnOn"}, Limit: 2}) {
		limited = append(limited, s.Text)
	}
	assert.Len(t, limited, 4)

	draw := func() []string {
		var out []string
		for s := range r.Samples(SampleOptions{Intents: []string{"TurnOn"}, Random: true, Limit: 3, Seed: 7}) {
			out = append(out, s.Text)
		}
		return out
	}
	first := draw()
	assert.Len(t, first, 6)
	assert.Equal(t, first, draw())

	for s := range r.Samples(SampleOptions{Intents: []string{"PlayAlbum"}, Limit: 1}) {
		assert.True(t, strings.HasPrefix(s.Text, "play {album}"), s.Text)
	}
}

func TestNewSkipsBadSentences(t *testing.T) {
	const broken = `
intents:
  Good:
    data:
      - sentences: ["hello there", "hello (there"]
  Loop:
    data:
      - sentences: ["<loop>"]
expansion_rules:
  loop: "<loop> x"
`
	r := newRecognizer(t, broken)
	res, err := r.Recognize(context.Background(), "hello there", Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Good", res.Intent.Name)

	_, err = New(loadDoc(t, broken), WithLogger(quietLogger()), WithStrict())
	var syntax *expr.SyntaxError
	assert.ErrorAs(t, err, &syntax)

	_, err = New(loadDoc(t, strings.Replace(broken, `, "hello (there"`, "", 1)), WithLogger(quietLogger()), WithStrict())
	var cycle *expr.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"loop", "loop"}, cycle.Chain)
}

func TestRecognizeIgnoreWhitespace(t *testing.T) {
	r := newRecognizer(t, `
language: zh
settings:
  ignore_whitespace: true
intents:
  TurnOn:
    data:
      - sentences: ["打开 {area} 的 灯"]
lists:
  area:
    values: ["客厅", "厨房"]
skip_words: ["请"]
`)

	res, err := r.Recognize(context.Background(), "请打开厨房的灯。", Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "厨房", res.Entities["area"].Value)
}
