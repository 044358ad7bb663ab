package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convengine/engine/internal/entries"
)

func TestConversationApply(t *testing.T) {
	var c Conversation

	require.NoError(t, c.Apply(Add(0, entries.NewSystemMessage("hello"))))
	require.Len(t, c.Entries, 1)

	require.NoError(t, c.Apply(Replace(0, entries.NewSystemMessage("replaced"))))
	assert.Equal(t, "replaced", c.Entries[0].Content)

	require.NoError(t, c.Apply(Remove(0)))
	assert.Nil(t, c.Entries[0])
}

func TestConversationApplyRejectsOutOfOrderAdd(t *testing.T) {
	var c Conversation
	err := c.Apply(Add(1, entries.NewSystemMessage("skip")))
	assert.Error(t, err, "expected error when adding past current length")
}

func TestConversationApplyRejectsOutOfRangeReplace(t *testing.T) {
	var c Conversation
	err := c.Apply(Replace(0, entries.NewSystemMessage("x")))
	assert.Error(t, err, "expected error replacing into an empty conversation")
}

func TestApplyAllStopsAtFirstError(t *testing.T) {
	var c Conversation
	patches := []Patch{
		Add(0, entries.NewSystemMessage("a")),
		Add(2, entries.NewSystemMessage("skip")), // out of order
		Add(1, entries.NewSystemMessage("b")),
	}
	err := c.ApplyAll(patches)
	require.Error(t, err)
	assert.Len(t, c.Entries, 1, "expected only first patch applied")
}

func TestMarshalRFC6902(t *testing.T) {
	p := Add(3, entries.NewSystemMessage("hi"))
	b, err := p.MarshalRFC6902()
	require.NoError(t, err)
	want := `[{"op":"add","path":"/entries/3","value":{"kind":"system_message","content":"hi"}}]`
	assert.Equal(t, want, string(b))
}
