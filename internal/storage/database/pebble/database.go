// Package pebble implements database.DB on cockroachdb/pebble.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/storage/database"
	"github.com/cockroachdb/pebble"
)

// DB adapts a pebble store. Every mutation, single or batched, goes through
// one pebble batch committed with fsync.
type DB struct {
	db *pebble.DB
}

func NewDB(db *pebble.DB) *DB {
	return &DB{db: db}
}

func (p *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if p.db == nil {
		return nil, database.ErrDBClosed
	}

	val, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, database.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	// val is only valid until closer is closed
	out := append([]byte(nil), val...)
	return out, closer.Close()
}

func (p *DB) Write(ctx context.Context, key, value []byte) error {
	return p.commit(func(b *pebble.Batch) error {
		return b.Set(key, value, nil)
	})
}

func (p *DB) Delete(ctx context.Context, key []byte) error {
	return p.commit(func(b *pebble.Batch) error {
		return b.Delete(key, nil)
	})
}

func (p *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	return p.commit(func(b *pebble.Batch) error {
		for _, op := range ops {
			if err := stage(b, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func stage(b *pebble.Batch, op database.BatchOperation) error {
	switch op.Type {
	case database.BatchPut:
		return b.Set(op.Key, op.Value, nil)
	case database.BatchDelete:
		return b.Delete(op.Key, nil)
	default:
		return fmt.Errorf("%w: %d", database.ErrUnknownBatchOp, op.Type)
	}
}

// commit stages fill into a fresh batch and commits it synchronously.
// Nothing is written when fill fails.
func (p *DB) commit(fill func(*pebble.Batch) error) error {
	if p.db == nil {
		return database.ErrDBClosed
	}

	b := p.db.NewBatch()
	defer b.Close()
	if err := fill(b); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Iterator walks [start, end) using pebble's own bounds.
func (p *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	if p.db == nil {
		return nil, database.ErrDBClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: start, UpperBound: end})
	if err != nil {
		return nil, fmt.Errorf("open iterator: %w", err)
	}
	return &Iterator{iter: iter, unpositioned: true}, nil
}

type Iterator struct {
	iter         *pebble.Iterator
	unpositioned bool
	key, value   []byte
}

func (it *Iterator) Next() bool {
	var ok bool
	if it.unpositioned {
		it.unpositioned = false
		ok = it.iter.First()
	} else {
		ok = it.iter.Next()
	}
	if !ok {
		it.key, it.value = nil, nil
		return false
	}

	// Both slices are reused by pebble on the next step
	it.key = append([]byte(nil), it.iter.Key()...)
	it.value = append([]byte(nil), it.iter.Value()...)
	return true
}

func (it *Iterator) Key() []byte   { return it.key }
func (it *Iterator) Value() []byte { return it.value }
func (it *Iterator) Error() error  { return it.iter.Error() }
func (it *Iterator) Close() error  { return it.iter.Close() }
