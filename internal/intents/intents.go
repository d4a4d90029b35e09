// Package intents is the in-memory corpus: intents, their sentence
// templates and the slot lists and rules they share.
package intents

import (
	"maps"

	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

type Settings struct {
	// IgnoreWhitespace is for languages written without spaces between
	// words; whitespace in templates and input is dropped.
	IgnoreWhitespace bool
	FilterWithRegex  bool
}

// Intents is a loaded corpus. It is read-only once built.
type Intents struct {
	Language       string
	Settings       Settings
	Intents        []*Intent
	SlotLists      map[string]slots.SlotList
	ExpansionRules map[string]string
	SkipWords      []string
}

type Intent struct {
	Name string
	Data []*IntentData
}

// IntentData is one block of templates with shared slots, responses and
// context conditions.
type IntentData struct {
	Sentences []string
	// Slots are added to every result from this block unless a template
	// already bound the name.
	Slots           map[string]any
	Response        string
	RequiresContext map[string]any
	ExcludesContext map[string]any
	// RequiredKeywords must all appear as words in the input before any
	// template is tried.
	RequiredKeywords []string
	Metadata         map[string]any
	// SlotLists and ExpansionRules are local to the block and shadow the
	// corpus-wide ones.
	SlotLists       map[string]slots.SlotList
	ExpansionRules  map[string]string
	FilterWithRegex bool
}

func (d *Intents) Intent(name string) (*Intent, bool) {
	for _, intent := range d.Intents {
		if intent.Name == name {
			return intent, true
		}
	}
	return nil, false
}

// IntentNames returns intent names in corpus order.
func (d *Intents) IntentNames() []string {
	names := make([]string, 0, len(d.Intents))
	for _, intent := range d.Intents {
		names = append(names, intent.Name)
	}
	return names
}

// Lists returns the corpus lists with data's local lists laid over them.
func (d *Intents) Lists(data *IntentData) map[string]slots.SlotList {
	if len(data.SlotLists) == 0 {
		return d.SlotLists
	}
	out := make(map[string]slots.SlotList, len(d.SlotLists)+len(data.SlotLists))
	maps.Copy(out, d.SlotLists)
	maps.Copy(out, data.SlotLists)
	return out
}
