package recognize

import (
	"context"
	"sort"
)

// RecognizeBest returns the preferred match of text, or nil.
//
// Results whose block metadata sets opts.MetadataKey come first. Failing
// that, results binding opts.SlotName from the utterance (not a wildcard)
// are preferred, longest slot text first. Among the remaining candidates
// the fewest wildcards wins, then the most literal words matched. Fuzzy
// results are ranked by edit distance before any of that.
func (r *Recognizer) RecognizeBest(ctx context.Context, text string, opts Options, best BestOptions) (*Result, error) {
	results, err := r.RecognizeAll(ctx, text, opts)
	if err != nil || len(results) == 0 {
		return nil, err
	}

	var (
		candidates   []Result
		metadataSeen bool
		slotSeen     bool
		bestQuality  = -1
	)
	for _, res := range results {
		if best.MetadataKey != "" {
			isMetadata := truthy(res.Metadata[best.MetadataKey])
			if metadataSeen && !isMetadata {
				continue
			}
			if !metadataSeen && isMetadata {
				metadataSeen = true
				slotSeen = false
				bestQuality = -1
				candidates = nil
			}
		}

		if best.SlotName != "" {
			entity, ok := res.Entities[best.SlotName]
			isSlot := ok && !entity.IsWildcard
			if slotSeen && !isSlot {
				continue
			}
			if !slotSeen && isSlot {
				slotSeen = true
				candidates = nil
			}
			if _, isText := entity.Value.(string); isSlot && isText {
				quality := len(entity.Text)
				if quality > bestQuality {
					bestQuality = quality
					candidates = nil
				} else if quality < bestQuality {
					continue
				}
			}
		}
		candidates = append(candidates, res)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		wi, wj := candidates[i].WildcardCount(), candidates[j].WildcardCount()
		if wi != wj {
			return wi < wj
		}
		return candidates[i].TextChunksMatched > candidates[j].TextChunksMatched
	})
	return &candidates[0], nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
