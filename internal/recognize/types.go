package recognize

import (
	"github.com/appengine-ltd/intentgrammar/internal/expr"
	"github.com/appengine-ltd/intentgrammar/internal/intents"
	"github.com/appengine-ltd/intentgrammar/internal/match"
	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

// DefaultResponse is used for data blocks without a response key.
const DefaultResponse = "default"

// Result is one way an utterance matched one sentence template.
type Result struct {
	Intent *intents.Intent
	Data   *intents.IntentData
	// Entities holds the last entity bound to each slot name; EntitiesList
	// keeps them all in the order they were bound.
	Entities     map[string]match.Entity
	EntitiesList []match.Entity
	Response     string
	Context      map[string]any
	// TextChunksMatched counts the literal template words the utterance
	// matched. More is a closer match.
	TextChunksMatched int
	Sentence          *expr.Sentence
	Metadata          map[string]any

	// Fuzzy results come from the edit distance fallback. Distance is the
	// edit distance between the utterance and the sentence rendering that
	// was matched in its place.
	Fuzzy    bool
	Distance int
}

// WildcardCount is the number of entities bound by wildcards.
func (r *Result) WildcardCount() int {
	n := 0
	for _, e := range r.EntitiesList {
		if e.IsWildcard {
			n++
		}
	}
	return n
}

// Options adjust a single recognition call.
type Options struct {
	// SlotLists and ExpansionRules are laid over the corpus ones. Lists and
	// rules local to a data block still win.
	SlotLists      map[string]slots.SlotList
	ExpansionRules map[string]string
	// SkipWords are removed from the utterance along with the corpus ones.
	SkipWords []string
	// Context is the caller's intent context. Blocks whose requires_context
	// or excludes_context it rules out are not tried.
	Context  map[string]any
	Language string
	// DefaultResponse replaces DefaultResponse for blocks without one.
	DefaultResponse string

	// Fuzzy ranks sentence renderings by edit distance when nothing matches
	// exactly. FuzzyLimit caps the number of fuzzy results; zero keeps all.
	Fuzzy      bool
	FuzzyLimit int
	// Parallelism is the number of data blocks matched at once. Values
	// below two match sequentially.
	Parallelism int
}

// BestOptions pick the preferred result in RecognizeBest.
type BestOptions struct {
	// MetadataKey prefers results whose block metadata has a truthy value
	// for the key.
	MetadataKey string
	// SlotName prefers results with a non-wildcard entity of this name,
	// longest entity text first.
	SlotName string
}
