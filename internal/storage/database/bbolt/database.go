// Package bbolt implements database.DB on go.etcd.io/bbolt, one bucket per DB.
package bbolt

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/storage/database"
	"go.etcd.io/bbolt"
)

// ErrNoBucket is returned when the database bucket was never created
var ErrNoBucket = errors.New("bbolt: bucket not found")

type DB struct {
	db     *bbolt.DB
	bucket []byte
}

func NewDB(db *bbolt.DB, bucket []byte) *DB {
	return &DB{db: db, bucket: bucket}
}

func (b *DB) lookup(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	bucket := tx.Bucket(b.bucket)
	if bucket == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoBucket, b.bucket)
	}
	return bucket, nil
}

// view runs fn against the bucket in a read-only transaction
func (b *DB) view(fn func(*bbolt.Bucket) error) error {
	if b.db == nil {
		return database.ErrDBClosed
	}
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket, err := b.lookup(tx)
		if err != nil {
			return err
		}
		return fn(bucket)
	})
}

// update runs fn against the bucket in one read-write transaction. Any
// error rolls the whole transaction back.
func (b *DB) update(fn func(*bbolt.Bucket) error) error {
	if b.db == nil {
		return database.ErrDBClosed
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := b.lookup(tx)
		if err != nil {
			return err
		}
		return fn(bucket)
	})
}

func (b *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := b.view(func(bucket *bbolt.Bucket) error {
		v := bucket.Get(key)
		if v == nil {
			return database.ErrKeyNotFound
		}
		// bbolt values are only valid for the life of the transaction
		value = bytes.Clone(v)
		return nil
	})
	return value, err
}

func (b *DB) Write(ctx context.Context, key []byte, value []byte) error {
	return b.update(func(bucket *bbolt.Bucket) error {
		return bucket.Put(key, value)
	})
}

func (b *DB) Delete(ctx context.Context, key []byte) error {
	return b.update(func(bucket *bbolt.Bucket) error {
		return bucket.Delete(key)
	})
}

// Batch runs in a single Update transaction. bbolt's own Batch may retry
// the function, which is not safe for a caller-supplied op list that fails
// halfway.
func (b *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	return b.update(func(bucket *bbolt.Bucket) error {
		for _, op := range ops {
			var err error
			switch op.Type {
			case database.BatchPut:
				err = bucket.Put(op.Key, op.Value)
			case database.BatchDelete:
				err = bucket.Delete(op.Key)
			default:
				return fmt.Errorf("%w: %d", database.ErrUnknownBatchOp, op.Type)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Iterator holds a read-only transaction open until Close. Keys and values
// stay valid for that long.
type Iterator struct {
	tx      *bbolt.Tx
	cursor  *bbolt.Cursor
	started bool
	start   []byte
	end     []byte
	key     []byte
	value   []byte
}

func (b *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	if b.db == nil {
		return nil, database.ErrDBClosed
	}

	tx, err := b.db.Begin(false)
	if err != nil {
		return nil, err
	}
	bucket, err := b.lookup(tx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &Iterator{tx: tx, cursor: bucket.Cursor(), start: start, end: end}, nil
}

func (it *Iterator) Next() bool {
	var k, v []byte
	switch {
	case it.started:
		k, v = it.cursor.Next()
	case it.start == nil:
		k, v = it.cursor.First()
	default:
		k, v = it.cursor.Seek(it.start)
	}
	it.started = true

	if k == nil || (it.end != nil && bytes.Compare(k, it.end) >= 0) {
		it.key, it.value = nil, nil
		return false
	}
	it.key, it.value = k, v
	return true
}

func (it *Iterator) Key() []byte {
	return it.key
}

func (it *Iterator) Value() []byte {
	return it.value
}

func (it *Iterator) Error() error {
	return nil
}

func (it *Iterator) Close() error {
	return it.tx.Rollback()
}
