package recognize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appengine-ltd/intentgrammar/internal/slots"
)

func TestIndexLists(t *testing.T) {
	doc := loadDoc(t, homeYAML)
	assert.Equal(t, 2, indexLists(doc.SlotLists), "kitchen and living room")

	doc = loadDoc(t, shadowYAML)
	assert.Zero(t, indexLists(doc.SlotLists))
	play, ok := doc.Intent("Play")
	require.True(t, ok)
	assert.Equal(t, 2, indexLists(play.Data[0].SlotLists))
}

func TestRegistryReshapes(t *testing.T) {
	r := newRecognizer(t, shadowYAML)
	red, err := slots.TextSlotListFromStrings("name", "red")
	require.NoError(t, err)
	other, err := slots.TextSlotListFromStrings("color", "red")
	require.NoError(t, err)

	assert.True(t, r.reg.reshapes(map[string]slots.SlotList{"name": red}))
	assert.True(t, r.reg.reshapes(map[string]slots.SlotList{"color": slots.NewWildcardSlotList("color")}))
	assert.False(t, r.reg.reshapes(map[string]slots.SlotList{"name": slots.NewWildcardSlotList("name")}))
	assert.False(t, r.reg.reshapes(map[string]slots.SlotList{"color": other}))
	assert.False(t, r.reg.reshapes(nil))
}
