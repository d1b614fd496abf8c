package di

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerBuildsOnce(t *testing.T) {
	c := New()
	var builds atomic.Int32
	c.RegisterBuilder("svc", func(*Container) (interface{}, error) {
		builds.Add(1)
		return "value", nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get("svc")
			assert.NoError(t, err)
			assert.Equal(t, "value", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())
}

func TestContainerNestedBuild(t *testing.T) {
	c := New()
	c.RegisterBuilder("inner", func(*Container) (interface{}, error) { return 2, nil })
	c.RegisterBuilder("outer", func(c *Container) (interface{}, error) {
		v, err := c.Get("inner")
		if err != nil {
			return nil, err
		}
		return v.(int) * 21, nil
	})

	assert.Equal(t, 42, c.MustGet("outer"))
}

func TestContainerMissing(t *testing.T) {
	c := New()
	_, err := c.Get("nope")
	assert.Error(t, err)
	assert.False(t, c.Has("nope"))
	assert.Panics(t, func() { c.MustGet("nope") })
}

func TestContainerBuildErrorIsNotCached(t *testing.T) {
	c := New()
	fail := true
	c.RegisterBuilder("flaky", func(*Container) (interface{}, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return "ok", nil
	})

	_, err := c.Get("flaky")
	require.Error(t, err)
	fail = false
	v, err := c.Get("flaky")
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestContainerCloseOrder(t *testing.T) {
	c := New()
	var order []string
	c.OnClose(func() error { order = append(order, "first"); return nil })
	c.OnClose(func() error { order = append(order, "second"); return errors.New("second failed") })
	c.Register("svc", 1)

	err := c.Close()
	assert.EqualError(t, err, "second failed")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, c.Close())
	assert.False(t, c.Has("svc"))
}

func TestServiceNamesSorted(t *testing.T) {
	c := New()
	c.Register("b", 1)
	c.RegisterBuilder("a", func(*Container) (interface{}, error) { return nil, nil })
	c.RegisterBuilder("b", func(*Container) (interface{}, error) { return nil, nil })

	assert.Equal(t, []string{"a", "b"}, c.ServiceNames())
	c.Clear()
	assert.Empty(t, c.ServiceNames())
}
