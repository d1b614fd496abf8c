package database

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Handles tracks the open handles of a Manager by database name. Opening a
// name twice returns the first handle.
type Handles[T io.Closer] struct {
	mu   sync.Mutex
	open map[string]T
}

func NewHandles[T io.Closer]() *Handles[T] {
	return &Handles[T]{open: make(map[string]T)}
}

// Get returns the handle of name, calling open on first use.
func (h *Handles[T]) Get(name string, open func() (T, error)) (T, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if handle, ok := h.open[name]; ok {
		return handle, nil
	}
	handle, err := open()
	if err != nil {
		var zero T
		return zero, fmt.Errorf("open database %s: %w", name, err)
	}
	h.open[name] = handle
	return handle, nil
}

// Close closes and forgets the handle of name.
func (h *Handles[T]) Close(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	handle, ok := h.open[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDBNotOpen, name)
	}
	delete(h.open, name)
	return handle.Close()
}

// CloseAll closes every handle. It keeps going past failures and returns
// all of them.
func (h *Handles[T]) CloseAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	for name, handle := range h.open {
		if err := handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database %s: %w", name, err))
		}
		delete(h.open, name)
	}
	return errors.Join(errs...)
}

// Names returns the open database names, sorted
func (h *Handles[T]) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.open))
	for name := range h.open {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
