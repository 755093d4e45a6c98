package output

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_WriteAdvancesCheckpoint(t *testing.T) {
	t.Parallel()
	var sink bytes.Buffer
	c := New(&sink)

	before := c.Checkpoint()
	n, err := fmt.Fprint(c, "hello")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	after := c.Checkpoint()
	assert.NotEqual(t, before, after)
	assert.Equal(t, int64(5), after.Bytes)
	assert.Equal(t, "hello", sink.String())
}

func TestCapture_EmptyWriteKeepsCheckpoint(t *testing.T) {
	t.Parallel()
	c := New(nil)
	before := c.Checkpoint()
	_, err := c.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, before, c.Checkpoint())
}

func TestCapture_Nesting(t *testing.T) {
	t.Parallel()
	c := New(nil)
	base := c.Checkpoint()

	c.Begin()
	assert.Equal(t, 1, c.Checkpoint().Depth)
	assert.True(t, c.End())
	assert.Equal(t, base, c.Checkpoint(), "balanced scopes restore the checkpoint")

	assert.False(t, c.End(), "End without Begin")
	assert.Equal(t, 0, c.Checkpoint().Depth)
}

func TestCapture_BytesNeverRewind(t *testing.T) {
	t.Parallel()
	c := New(nil)
	c.Begin()
	_, _ = c.Write([]byte("x"))
	c.End()
	assert.Equal(t, Checkpoint{Bytes: 1, Depth: 0}, c.Checkpoint())
}
