package journal

import (
	"context"
	"errors"
)

// multi publishes to every sink and lists from the first
type multi []Sink

// Multi returns a sink that publishes events to all sinks in order. List
// reads from the first sink.
func Multi(sinks ...Sink) Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return multi(sinks)
}

func (m multi) Publish(ctx context.Context, events []Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) List(ctx context.Context, record string) ([]Event, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].List(ctx, record)
}

func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
