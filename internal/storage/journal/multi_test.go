package journal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/LeJamon/goCustody/internal/storage/journal"
	"github.com/LeJamon/goCustody/internal/storage/journal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	journal.Nop
	err error
}

func (f failingSink) Publish(context.Context, []journal.Event) error { return f.err }
func (f failingSink) Close() error                                 { return f.err }

func TestMultiSingleSink(t *testing.T) {
	s := memory.NewSink()
	assert.Same(t, s, journal.Multi(s))
}

func TestMultiPublishesToAll(t *testing.T) {
	ctx := context.Background()
	first, second := memory.NewSink(), memory.NewSink()
	m := journal.Multi(first, second)

	require.NoError(t, m.Publish(ctx, []journal.Event{journal.NewEvent("h1", "escrow.setup", "rec", nil)}))

	for _, s := range []*memory.Sink{first, second} {
		events, err := s.List(ctx, "rec")
		require.NoError(t, err)
		assert.Len(t, events, 1)
	}

	events, err := m.List(ctx, "rec")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMultiJoinsErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := memory.NewSink()
	m := journal.Multi(failingSink{err: boom}, s)

	err := m.Publish(ctx, []journal.Event{journal.NewEvent("h1", "escrow.setup", "rec", nil)})
	require.ErrorIs(t, err, boom)

	// The healthy sink still got the event
	events, err := s.List(ctx, "rec")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.ErrorIs(t, m.Close(), boom)
}
