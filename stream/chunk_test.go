package stream

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkJSONFieldNames(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(Failed(errors.New("tool \"x\" not found")))
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, true, m["isError"])
	assert.Equal(t, true, m["isCompleted"])
	assert.Equal(t, `tool "x" not found`, m["errorMessage"])
	assert.Equal(t, "", m["content"])
}

func TestErrorChunkIsTerminal(t *testing.T) {
	t.Parallel()
	c := Failure("x")
	assert.True(t, c.Terminal())
	assert.False(t, Content(Stdout, "hi").Terminal())
}
