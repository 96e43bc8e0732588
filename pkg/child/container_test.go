package child_test

import (
	"errors"
	"testing"

	"github.com/aretw0/suitemux/pkg/child"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainer_AttachReplacesPrevious(t *testing.T) {
	c := child.NewContainer()
	first := &fakeInstance{}
	second := &fakeInstance{}

	require.NoError(t, c.Attach("h1", first))
	require.NoError(t, c.Attach("h1", second))

	assert.Equal(t, int32(1), first.detached.Load())
	assert.Equal(t, int32(0), second.detached.Load())
	assert.Equal(t, 1, c.Len())
}

func TestContainer_DetachIsIdempotent(t *testing.T) {
	c := child.NewContainer()
	inst := &fakeInstance{}
	require.NoError(t, c.Attach("h1", inst))

	require.NoError(t, c.Detach("h1"))
	require.NoError(t, c.Detach("h1"))
	require.NoError(t, c.Detach("never-attached"))

	assert.Equal(t, int32(1), inst.detached.Load())
	assert.False(t, c.Has("h1"))
}

func TestContainer_DetachAllJoinsErrors(t *testing.T) {
	c := child.NewContainer()
	ok := &fakeInstance{}
	require.NoError(t, c.Attach("ok", ok))
	require.NoError(t, c.Attach("bad", ports.InstanceFunc(func() error { return errors.New("stuck") })))

	err := c.DetachAll()
	assert.EqualError(t, err, "stuck")
	assert.Equal(t, int32(1), ok.detached.Load())
	assert.Equal(t, 0, c.Len())
}
