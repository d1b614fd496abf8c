package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	name   string
	closed int
	err    error
}

func (f *fakeHandle) Close() error {
	f.closed++
	return f.err
}

func TestHandlesOpenOnce(t *testing.T) {
	h := NewHandles[*fakeHandle]()
	opens := 0
	open := func() (*fakeHandle, error) {
		opens++
		return &fakeHandle{name: "state"}, nil
	}

	first, err := h.Get("state", open)
	require.NoError(t, err)
	second, err := h.Get("state", open)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, opens)
	assert.Equal(t, []string{"state"}, h.Names())

	require.NoError(t, h.Close("state"))
	assert.Equal(t, 1, first.closed)
	assert.ErrorIs(t, h.Close("state"), ErrDBNotOpen)
	assert.Empty(t, h.Names())
}

func TestHandlesOpenError(t *testing.T) {
	h := NewHandles[*fakeHandle]()
	boom := errors.New("locked")

	_, err := h.Get("state", func() (*fakeHandle, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, h.Names())
}

func TestHandlesCloseAllJoinsErrors(t *testing.T) {
	h := NewHandles[*fakeHandle]()
	bad := &fakeHandle{err: errors.New("io")}
	good := &fakeHandle{}
	_, err := h.Get("a", func() (*fakeHandle, error) { return bad, nil })
	require.NoError(t, err)
	_, err = h.Get("b", func() (*fakeHandle, error) { return good, nil })
	require.NoError(t, err)

	err = h.CloseAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close database a")
	assert.Equal(t, 1, bad.closed)
	assert.Equal(t, 1, good.closed)
	assert.Empty(t, h.Names())
}
