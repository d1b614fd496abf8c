package compression

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/storage/database"
)

// ErrCorrupt is returned for a stored value that is not a valid frame
var ErrCorrupt = errors.New("compression: corrupt value")

// DB compresses values on their way into an inner database.DB.
//
// A stored value is a frame: one algorithm tag, the uvarint length of the
// raw value, then the payload. Values the compressor cannot shrink are
// stored under the raw tag.
type DB struct {
	inner database.DB
	c     Compressor
}

// Wrap returns db storing values with c.
func Wrap(db database.DB, c Compressor) *DB {
	return &DB{inner: db, c: c}
}

// Compressor returns the algorithm new values are written with
func (d *DB) Compressor() Compressor {
	return d.c
}

func (d *DB) encode(value []byte) ([]byte, error) {
	payload, ok, err := d.c.Compress(value)
	if err != nil {
		return nil, err
	}
	tag := d.c.Tag()
	if !ok {
		tag, payload = tagRaw, value
	}

	frame := make([]byte, 1+binary.MaxVarintLen64+len(payload))
	frame[0] = tag
	n := binary.PutUvarint(frame[1:], uint64(len(value)))
	copy(frame[1+n:], payload)
	return frame[:1+n+len(payload)], nil
}

func decode(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("%w: %d byte frame", ErrCorrupt, len(frame))
	}
	size, n := binary.Uvarint(frame[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad length prefix", ErrCorrupt)
	}

	c, ok := byTag(frame[0])
	if !ok {
		return nil, fmt.Errorf("%w: unknown tag %d", ErrCorrupt, frame[0])
	}
	return c.Decompress(frame[1+n:], int(size))
}

func (d *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	frame, err := d.inner.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return decode(frame)
}

func (d *DB) Write(ctx context.Context, key, value []byte) error {
	frame, err := d.encode(value)
	if err != nil {
		return err
	}
	return d.inner.Write(ctx, key, frame)
}

func (d *DB) Delete(ctx context.Context, key []byte) error {
	return d.inner.Delete(ctx, key)
}

func (d *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	framed := make([]database.BatchOperation, len(ops))
	for i, op := range ops {
		framed[i] = op
		if op.Type != database.BatchPut {
			continue
		}
		frame, err := d.encode(op.Value)
		if err != nil {
			return err
		}
		framed[i].Value = frame
	}
	return d.inner.Batch(ctx, framed)
}

func (d *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	it, err := d.inner.Iterator(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &Iterator{inner: it}, nil
}

// Iterator decodes values of the inner iterator. A corrupt value stops the
// walk and is reported by Error.
type Iterator struct {
	inner database.Iterator
	value []byte
	err   error
}

func (it *Iterator) Next() bool {
	if it.err != nil || !it.inner.Next() {
		it.value = nil
		return false
	}
	value, err := decode(it.inner.Value())
	if err != nil {
		it.err = fmt.Errorf("key %x: %w", it.inner.Key(), err)
		it.value = nil
		return false
	}
	it.value = value
	return true
}

func (it *Iterator) Key() []byte {
	return it.inner.Key()
}

func (it *Iterator) Value() []byte {
	return it.value
}

func (it *Iterator) Error() error {
	if it.err != nil {
		return it.err
	}
	return it.inner.Error()
}

func (it *Iterator) Close() error {
	return it.inner.Close()
}
