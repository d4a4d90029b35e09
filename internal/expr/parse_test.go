package expr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(text string) *TextChunk {
	return NewTextChunk(text)
}

func seq(items ...Expression) *Sequence {
	return &Sequence{Items: items}
}

func TestParseWordChunks(t *testing.T) {
	s, err := Parse("turn on the lights")
	require.NoError(t, err)
	assert.Equal(t, seq(chunk("turn "), chunk("on "), chunk("the "), chunk("lights")), s.Exp)
	assert.Equal(t, "turn on the lights", s.Text)
	assert.Equal(t, 4, s.TextChunkCount())
}

func TestParseOptional(t *testing.T) {
	exp, err := ParseExpression("turn on [the] light[s]")
	require.NoError(t, err)

	want := seq(
		chunk("turn "),
		chunk("on "),
		&Alternative{Items: []Expression{seq(chunk("the")), EmptyChunk()}, Optional: true},
		chunk(" light"),
		&Alternative{Items: []Expression{seq(chunk("s")), EmptyChunk()}, Optional: true},
	)
	assert.Equal(t, want, exp)
}

func TestParseAlternativeInOptional(t *testing.T) {
	exp, err := ParseExpression("[a|b]")
	require.NoError(t, err)

	want := seq(&Alternative{
		Items:    []Expression{seq(chunk("a")), seq(chunk("b")), EmptyChunk()},
		Optional: true,
	})
	assert.Equal(t, want, exp)
}

func TestParseGroupUnwrapsAtRoot(t *testing.T) {
	exp, err := ParseExpression("(turn on)")
	require.NoError(t, err)
	assert.Equal(t, seq(chunk("turn "), chunk("on")), exp)
}

func TestParseTopLevelAlternative(t *testing.T) {
	exp, err := ParseExpression("on|off")
	require.NoError(t, err)
	assert.Equal(t, &Alternative{Items: []Expression{seq(chunk("on")), seq(chunk("off"))}}, exp)
}

func TestParsePermutation(t *testing.T) {
	exp, err := ParseExpression("(a;b;c) d")
	require.NoError(t, err)

	perm := &Permutation{Items: []Expression{seq(chunk("a")), seq(chunk("b")), seq(chunk("c"))}}
	assert.Equal(t, seq(perm, chunk(" d")), exp)
}

func TestParseReferences(t *testing.T) {
	exp, err := ParseExpression("set {color} light to {brightness:level} <please>")
	require.NoError(t, err)

	want := seq(
		chunk("set "),
		&ListReference{ListName: "color", SlotName: "color"},
		chunk(" light "),
		chunk("to "),
		&ListReference{ListName: "brightness", SlotName: "level"},
		chunk(" "),
		&RuleReference{RuleName: "please"},
	)
	assert.Equal(t, want, exp)
	assert.Equal(t, []string{"color", "brightness"}, ListNames(exp))
	assert.Equal(t, []string{"please"}, RuleNames(exp))
}

func TestParseEscapes(t *testing.T) {
	exp, err := ParseExpression(`say \(hi\) \| \{x\}`)
	require.NoError(t, err)
	assert.Equal(t, seq(chunk("say "), chunk("(hi) "), chunk("| "), chunk("{x}")), exp)
}

func TestParseNormalisesChunks(t *testing.T) {
	exp, err := ParseExpression("café  au\tlait")
	require.NoError(t, err)

	s, ok := exp.(*Sequence)
	require.True(t, ok)
	first, ok := s.Items[0].(*TextChunk)
	require.True(t, ok)
	assert.Equal(t, "café ", first.Text)
	assert.Equal(t, "café  ", first.OriginalText)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"unbalanced group", "turn (on|off"},
		{"unbalanced optional", "turn [on"},
		{"stray close", "turn on)"},
		{"dangling alternative", "on|"},
		{"leading alternative", "(|on)"},
		{"empty list", "set {} light"},
		{"blank list name", "set { :slot} light"},
		{"blank slot name", "set {color: } light"},
		{"empty rule", "say <>"},
		{"blank rule", "say < >"},
		{"mixed operators", "(a|b;c)"},
		{"trailing backslash", `trailing \`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.template)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr), "got %T", err)
			assert.Equal(t, tt.template, syntaxErr.Template)
			assert.NotEmpty(t, syntaxErr.Msg)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("(a|b;c)")

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, 4, syntaxErr.Offset)
	assert.Equal(t, 1, syntaxErr.Line)
	assert.Contains(t, syntaxErr.Error(), "cannot mix")
}

func TestFormatRoundTrip(t *testing.T) {
	for _, template := range []string{
		"turn on [the] light[s]",
		"(a;b;c) d",
		"set {color:c} <r>",
		"(on|off) [the|a] {name}",
	} {
		exp, err := ParseExpression(template)
		require.NoError(t, err, template)
		assert.Equal(t, template, Format(exp))

		again, err := ParseExpression(Format(exp))
		require.NoError(t, err)
		assert.Equal(t, exp, again)
	}
}

func TestHasWildcard(t *testing.T) {
	exp, err := ParseExpression("play {album}")
	require.NoError(t, err)
	assert.False(t, HasWildcard(exp))

	expanded, err := NewExpander(nil, map[string]bool{"album": true}).Expand(exp)
	require.NoError(t, err)
	assert.True(t, HasWildcard(expanded))
}
