package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, template string) *Sentence {
	t.Helper()
	s, err := Parse(template)
	require.NoError(t, err)
	return s
}

func TestRegexMatches(t *testing.T) {
	tests := []struct {
		template string
		accept   []string
		reject   []string
	}{
		{
			template: "turn on [the] light[s]",
			accept:   []string{"turn on the lights", "TURN ON LIGHT", "  turn on lights "},
			reject:   []string{"turn off the lights", "turn on the lights please"},
		},
		{
			template: "(a;b;c) d",
			accept:   []string{"a b c d", "c b a d", "b a c d"},
			reject:   []string{"a b d", "d a b c"},
		},
		{
			template: "set {color} light",
			accept:   []string{"set dark blue light", "set red light"},
			reject:   []string{"set red lamp"},
		},
		{
			template: "open the living room",
			accept:   []string{"open the living-room", "open the living_room"},
		},
		{
			template: `what is 1+1\?`,
			accept:   []string{"what is 1+1?"},
			reject:   []string{"what is 11"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			re, err := CompileRegex(compile(t, tt.template).Exp)
			require.NoError(t, err)
			for _, text := range tt.accept {
				assert.True(t, re.MatchString(text), "%q should match %s", text, re)
			}
			for _, text := range tt.reject {
				assert.False(t, re.MatchString(text), "%q should not match %s", text, re)
			}
		})
	}
}

// Everything a template can produce must get through its own filter.
func TestRegexAcceptsAllSamples(t *testing.T) {
	lists := staticLists{
		"area": {NewTextChunk("kitchen"), NewTextChunk("living room")},
	}
	for _, template := range []string{
		"turn (on|off) [the] {area} light[s]",
		"(set|change) [the] ({area};brightness) to {level}[%]",
		"[please] (a;[b] c;d e) now",
		"what's the (weather|temperature) like [today|tomorrow]",
		"play {album} by {artist}",
	} {
		s := compile(t, template)
		re, err := CompileRegex(s.Exp)
		require.NoError(t, err)

		n := 0
		for text := range Sample(s.Exp, SampleOptions{Lists: lists}) {
			n++
			assert.True(t, re.MatchString(text), "%q from %q", text, template)
		}
		assert.Positive(t, n)
	}
}
