package slots

import (
	"github.com/appengine-ltd/intentgrammar/internal/expr"
)

// Sampler renders lists for expr.Sample. Wildcards and unknown lists are
// left to the sampler's placeholder.
type Sampler struct {
	Lists    map[string]SlotList
	Ranges   *RangeCache
	Language string
}

func (s Sampler) ListValues(name string) ([]expr.Expression, bool) {
	switch list := s.Lists[name].(type) {
	case *TextSlotList:
		values := make([]expr.Expression, 0, len(list.Values))
		for _, v := range list.Values {
			values = append(values, v.In)
		}
		return values, true
	case *RangeSlotList:
		language := list.WordsLanguage
		if language == "" {
			language = s.Language
		}
		ranges := s.Ranges
		if ranges == nil {
			ranges = NewRangeCache(nil)
		}
		forms := ranges.Values(list, language)
		values := make([]expr.Expression, 0, len(forms))
		for _, f := range forms {
			values = append(values, expr.NewTextChunk(f.Text))
		}
		return values, true
	default:
		return nil, false
	}
}
