package slots

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strconv"
)

var ErrInvalidRange = errors.New("invalid range")

type FractionType string

const (
	FractionNone   FractionType = ""
	FractionHalves FractionType = "halves"
	FractionTenths FractionType = "tenths"
)

type RangeType string

const (
	RangeNumber      RangeType = "number"
	RangePercentage  RangeType = "percentage"
	RangeTemperature RangeType = "temperature"
)

// RangeSlotList accepts whole numbers From..To (inclusive) in Step
// increments, optionally with halves or tenths after each of them. Numbers
// may be spoken as digits, as words, or both.
type RangeSlotList struct {
	Name          string
	Type          RangeType
	From          int
	To            int
	Step          int
	Multiplier    *float64
	Fractions     FractionType
	Digits        bool
	Words         bool
	WordsLanguage string
	Ordinal       bool
}

// NewRangeSlotList accepts digits and words in steps of one.
func NewRangeSlotList(name string, from, to int) *RangeSlotList {
	return &RangeSlotList{
		Name:   name,
		Type:   RangeNumber,
		From:   from,
		To:     to,
		Step:   1,
		Digits: true,
		Words:  true,
	}
}

func (r *RangeSlotList) Validate() error {
	switch {
	case r.From > r.To:
		return fmt.Errorf("%w: list %q: from %d is above to %d", ErrInvalidRange, r.Name, r.From, r.To)
	case r.Step <= 0:
		return fmt.Errorf("%w: list %q: step must be positive, got %d", ErrInvalidRange, r.Name, r.Step)
	case r.Multiplier != nil && *r.Multiplier == 0:
		return fmt.Errorf("%w: list %q: multiplier is zero", ErrInvalidRange, r.Name)
	}
	switch r.Fractions {
	case FractionNone, FractionHalves, FractionTenths:
	default:
		return fmt.Errorf("%w: list %q: unknown fraction type %q", ErrInvalidRange, r.Name, r.Fractions)
	}
	return nil
}

// Numbers yields every accepted number in ascending order.
func (r *RangeSlotList) Numbers() iter.Seq[float64] {
	return func(yield func(float64) bool) {
		if r.Step <= 0 {
			return
		}
		for i := r.From; i <= r.To; i += r.Step {
			if !yield(float64(i)) {
				return
			}
			switch r.Fractions {
			case FractionHalves:
				if !yield(float64(i*2+1) / 2) {
					return
				}
			case FractionTenths:
				for d := 1; d <= 9; d++ {
					if !yield(float64(i*10+d) / 10) {
						return
					}
				}
			}
		}
	}
}

const fractionEpsilon = 1e-9

// Contains reports whether n is one of Numbers. Fractions extend each whole
// number upwards, so 1..1 in halves accepts 1.5.
func (r *RangeSlotList) Contains(n float64) bool {
	whole := math.Floor(n)
	if math.IsInf(whole, 0) || math.IsNaN(whole) {
		return false
	}
	i := int(whole)
	if i < r.From || i > r.To || r.Step <= 0 || (i-r.From)%r.Step != 0 {
		return false
	}

	frac := n - whole
	if frac < fractionEpsilon {
		return true
	}
	switch r.Fractions {
	case FractionHalves:
		return math.Abs(frac-0.5) < fractionEpsilon
	case FractionTenths:
		tenths := frac * 10
		return math.Abs(tenths-math.Round(tenths)) < fractionEpsilon
	default:
		return false
	}
}

// Value is what a matched number binds to: an int for whole numbers, a
// float64 for fractions or when a multiplier applies.
func (r *RangeSlotList) Value(n float64) any {
	if r.Multiplier != nil {
		return n * *r.Multiplier
	}
	if n == math.Trunc(n) {
		return int(n)
	}
	return n
}

// FormatNumber renders n as digits the way it would be typed.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ParseNumber accepts digits with an optional "." or "," decimal separator.
func ParseNumber(text string) (float64, error) {
	b := []byte(text)
	for i, c := range b {
		if c == ',' {
			b[i] = '.'
		}
	}
	return strconv.ParseFloat(string(b), 64)
}
