package intents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

type documentYAML struct {
	Language       string              `yaml:"language"`
	Settings       settingsYAML        `yaml:"settings"`
	Intents        intentsYAML         `yaml:"intents"`
	Lists          map[string]listYAML `yaml:"lists"`
	ExpansionRules map[string]string   `yaml:"expansion_rules"`
	SkipWords      []string            `yaml:"skip_words"`
}

type settingsYAML struct {
	IgnoreWhitespace *bool `yaml:"ignore_whitespace"`
	FilterWithRegex  *bool `yaml:"filter_with_regex"`
}

type namedIntentYAML struct {
	Name string
	Data []dataYAML
}

// intentsYAML keeps intents in file order, which decides result order.
type intentsYAML []namedIntentYAML

func (i *intentsYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: intents must be a mapping", node.Line)
	}
	for j := 0; j+1 < len(node.Content); j += 2 {
		var body struct {
			Data []dataYAML `yaml:"data"`
		}
		if err := node.Content[j+1].Decode(&body); err != nil {
			return fmt.Errorf("intent %q: %w", node.Content[j].Value, err)
		}
		*i = append(*i, namedIntentYAML{Name: node.Content[j].Value, Data: body.Data})
	}
	return nil
}

type dataYAML struct {
	Sentences        []string            `yaml:"sentences"`
	Slots            map[string]any      `yaml:"slots"`
	Response         string              `yaml:"response"`
	RequiresContext  map[string]any      `yaml:"requires_context"`
	ExcludesContext  map[string]any      `yaml:"excludes_context"`
	RequiredKeywords []string            `yaml:"required_keywords"`
	Metadata         map[string]any      `yaml:"metadata"`
	Lists            map[string]listYAML `yaml:"lists"`
	ExpansionRules   map[string]string   `yaml:"expansion_rules"`
	Settings         settingsYAML        `yaml:"settings"`
}

type listYAML struct {
	Values   []valueYAML `yaml:"values"`
	Range    *rangeYAML  `yaml:"range"`
	Wildcard bool        `yaml:"wildcard"`
}

type valueYAML struct {
	In       string
	Out      any
	Context  map[string]any
	Metadata map[string]any
}

func (v *valueYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.In = node.Value
		v.Out = node.Value
		return nil
	}
	var raw struct {
		In       string         `yaml:"in"`
		Out      any            `yaml:"out"`
		Context  map[string]any `yaml:"context"`
		Metadata map[string]any `yaml:"metadata"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.In == "" {
		return fmt.Errorf("line %d: list value has no \"in\"", node.Line)
	}
	v.In, v.Out, v.Context, v.Metadata = raw.In, raw.Out, raw.Context, raw.Metadata
	if v.Out == nil {
		v.Out = raw.In
	}
	return nil
}

type rangeYAML struct {
	Type          string   `yaml:"type"`
	From          *int     `yaml:"from"`
	To            *int     `yaml:"to"`
	Step          *int     `yaml:"step"`
	Multiplier    *float64 `yaml:"multiplier"`
	Fractions     string   `yaml:"fractions"`
	Digits        *bool    `yaml:"digits"`
	Words         *bool    `yaml:"words"`
	WordsLanguage string   `yaml:"words_language"`
	Ordinal       bool     `yaml:"ordinal"`
}

// Load reads one YAML corpus.
func Load(r io.Reader) (*Intents, error) {
	doc, err := decode(r)
	if err != nil {
		return nil, err
	}
	return build(doc)
}

func Parse(data []byte) (*Intents, error) {
	return Load(bytes.NewReader(data))
}

// LoadFiles reads and merges several corpus files. Later files add data
// blocks to intents of the same name and replace lists and rules of the same
// name.
func LoadFiles(paths ...string) (*Intents, error) {
	if len(paths) == 0 {
		return nil, errors.New("no intent files given")
	}
	var merged *documentYAML
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		doc, err := decode(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if merged == nil {
			merged = doc
			continue
		}
		if err := mergeDocuments(merged, doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return build(merged)
}

func decode(r io.Reader) (*documentYAML, error) {
	var doc documentYAML
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("parse intents: %w", err)
	}
	return &doc, nil
}

func mergeDocuments(into, from *documentYAML) error {
	if from.Language != "" {
		if into.Language != "" && into.Language != from.Language {
			return fmt.Errorf("language %q does not match %q", from.Language, into.Language)
		}
		into.Language = from.Language
	}
	if from.Settings.IgnoreWhitespace != nil {
		into.Settings.IgnoreWhitespace = from.Settings.IgnoreWhitespace
	}
	if from.Settings.FilterWithRegex != nil {
		into.Settings.FilterWithRegex = from.Settings.FilterWithRegex
	}

	for _, intent := range from.Intents {
		i := slices.IndexFunc(into.Intents, func(existing namedIntentYAML) bool {
			return existing.Name == intent.Name
		})
		if i < 0 {
			into.Intents = append(into.Intents, intent)
			continue
		}
		into.Intents[i].Data = append(into.Intents[i].Data, intent.Data...)
	}

	if into.Lists == nil {
		into.Lists = map[string]listYAML{}
	}
	for name, list := range from.Lists {
		into.Lists[name] = list
	}
	if into.ExpansionRules == nil {
		into.ExpansionRules = map[string]string{}
	}
	for name, rule := range from.ExpansionRules {
		into.ExpansionRules[name] = rule
	}
	for _, word := range from.SkipWords {
		if !slices.Contains(into.SkipWords, word) {
			into.SkipWords = append(into.SkipWords, word)
		}
	}
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func build(doc *documentYAML) (*Intents, error) {
	out := &Intents{
		Language: doc.Language,
		Settings: Settings{
			IgnoreWhitespace: boolOr(doc.Settings.IgnoreWhitespace, false),
			FilterWithRegex:  boolOr(doc.Settings.FilterWithRegex, true),
		},
		ExpansionRules: doc.ExpansionRules,
		SkipWords:      doc.SkipWords,
	}
	if out.ExpansionRules == nil {
		out.ExpansionRules = map[string]string{}
	}

	lists, err := buildLists(doc.Lists)
	if err != nil {
		return nil, err
	}
	out.SlotLists = lists

	for _, raw := range doc.Intents {
		if raw.Name == "" {
			return nil, errors.New("intent with empty name")
		}
		intent := &Intent{Name: raw.Name}
		for i, d := range raw.Data {
			data, err := buildData(d, out.Settings)
			if err != nil {
				return nil, fmt.Errorf("intent %q data %d: %w", raw.Name, i, err)
			}
			intent.Data = append(intent.Data, data)
		}
		out.Intents = append(out.Intents, intent)
	}
	return out, nil
}

func buildData(d dataYAML, settings Settings) (*IntentData, error) {
	if len(d.Sentences) == 0 {
		return nil, errors.New("no sentences")
	}
	lists, err := buildLists(d.Lists)
	if err != nil {
		return nil, err
	}
	return &IntentData{
		Sentences:        d.Sentences,
		Slots:            d.Slots,
		Response:         d.Response,
		RequiresContext:  d.RequiresContext,
		ExcludesContext:  d.ExcludesContext,
		RequiredKeywords: d.RequiredKeywords,
		Metadata:         d.Metadata,
		SlotLists:        lists,
		ExpansionRules:   d.ExpansionRules,
		FilterWithRegex:  boolOr(d.Settings.FilterWithRegex, settings.FilterWithRegex),
	}, nil
}

func buildLists(raw map[string]listYAML) (map[string]slots.SlotList, error) {
	out := make(map[string]slots.SlotList, len(raw))
	for name, l := range raw {
		list, err := buildList(name, l)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", name, err)
		}
		out[name] = list
	}
	return out, nil
}

func buildList(name string, l listYAML) (slots.SlotList, error) {
	kinds := 0
	if l.Values != nil {
		kinds++
	}
	if l.Range != nil {
		kinds++
	}
	if l.Wildcard {
		kinds++
	}
	if kinds != 1 {
		return nil, errors.New("need exactly one of values, range or wildcard")
	}

	switch {
	case l.Wildcard:
		return slots.NewWildcardSlotList(name), nil
	case l.Range != nil:
		return buildRange(name, l.Range)
	}

	values := make([]slots.TextSlotValue, 0, len(l.Values))
	for _, v := range l.Values {
		in, err := slots.ParseValue(v.In)
		if err != nil {
			return nil, err
		}
		values = append(values, slots.TextSlotValue{
			In:       in,
			Out:      v.Out,
			Context:  v.Context,
			Metadata: v.Metadata,
		})
	}
	return slots.NewTextSlotList(name, values...), nil
}

func buildRange(name string, r *rangeYAML) (*slots.RangeSlotList, error) {
	if r.From == nil || r.To == nil {
		return nil, fmt.Errorf("%w: range needs from and to", slots.ErrInvalidRange)
	}
	list := slots.NewRangeSlotList(name, *r.From, *r.To)
	if r.Type != "" {
		list.Type = slots.RangeType(r.Type)
	}
	if r.Step != nil {
		list.Step = *r.Step
	}
	list.Multiplier = r.Multiplier
	list.Fractions = slots.FractionType(r.Fractions)
	list.Digits = boolOr(r.Digits, true)
	list.Words = boolOr(r.Words, true)
	list.WordsLanguage = r.WordsLanguage
	list.Ordinal = r.Ordinal

	switch list.Type {
	case slots.RangeNumber, slots.RangePercentage, slots.RangeTemperature:
	default:
		return nil, fmt.Errorf("%w: unknown range type %q", slots.ErrInvalidRange, r.Type)
	}
	if err := list.Validate(); err != nil {
		return nil, err
	}
	return list, nil
}
