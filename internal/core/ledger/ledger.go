// Package ledger holds the authoritative custody state and commits
// operation results to it atomically.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/storage/database"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultCacheSize = 4096

var (
	// ErrConflict is returned by Commit when a key changed after it was read
	ErrConflict = errors.New("ledger: conflicting commit")

	// ErrNotFound is returned when a required entry does not exist
	ErrNotFound = errors.New("ledger: entry not found")

	// ErrTypeMismatch is returned when a stored value carries another type tag
	ErrTypeMismatch = errors.New("ledger: entry type mismatch")

	// ErrCorrupt is returned for stored values too short to carry a tag
	ErrCorrupt = errors.New("ledger: corrupt entry")
)

// storageKey is the entry type byte followed by the 32 byte keylet key, so
// that entries of one type are contiguous.
type storageKey [33]byte

func keyOf(k keylet.Keylet) storageKey {
	var sk storageKey
	sk[0] = k.Type.Byte()
	copy(sk[1:], k.Key[:])
	return sk
}

// Change is the before and after image of one entry as seen by an
// operation. A nil Original means the entry was absent when read, a nil
// Current means the entry is deleted. Equal images only assert that the
// entry is still unchanged.
type Change struct {
	Keylet   keylet.Keylet
	Original []byte
	Current  []byte
}

// Written reports whether the change writes to the store.
func (c Change) Written() bool {
	return !bytes.Equal(c.Original, c.Current) || (c.Original == nil) != (c.Current == nil)
}

// Ledger is the authoritative state of every account and record. Reads go
// through an LRU cache; commits validate their read set and write in a
// single batch. Only one Ledger may own a database at a time.
type Ledger struct {
	db     database.DB
	cache  *lru.Cache[storageKey, []byte]
	logger *zap.Logger

	// mu is held for writing during commit so readers never observe a cache
	// that lags the store.
	mu sync.RWMutex
}

// Option configures a Ledger
type Option func(*Ledger) error

// WithCacheSize sets the number of entries kept in the read cache.
func WithCacheSize(size int) Option {
	return func(l *Ledger) error {
		if size <= 0 {
			return fmt.Errorf("cache size must be positive, got %d", size)
		}
		c, err := lru.New[storageKey, []byte](size)
		if err != nil {
			return err
		}
		l.cache = c
		return nil
	}
}

// WithLogger sets the logger used for commit diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) error {
		l.logger = logger
		return nil
	}
}

// New creates a ledger over db.
func New(db database.DB, opts ...Option) (*Ledger, error) {
	if db == nil {
		return nil, errors.New("ledger: nil database")
	}
	l := &Ledger{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.cache == nil {
		c, err := lru.New[storageKey, []byte](defaultCacheSize)
		if err != nil {
			return nil, err
		}
		l.cache = c
	}
	return l, nil
}

// load returns the payload stored for k, or nil when absent. The caller
// holds mu.
func (l *Ledger) load(ctx context.Context, k keylet.Keylet) ([]byte, error) {
	sk := keyOf(k)
	if v, ok := l.cache.Get(sk); ok {
		return v, nil
	}

	raw, err := l.db.Read(ctx, sk[:])
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s %x: %w", k.Type, k.Key, err)
	}
	if len(raw) < 1 {
		return nil, fmt.Errorf("%w: %s %x", ErrCorrupt, k.Type, k.Key)
	}
	if entry.FromByte(raw[0]) != k.Type {
		return nil, fmt.Errorf("%w: want %s, stored %s", ErrTypeMismatch, k.Type, entry.FromByte(raw[0]))
	}

	payload := raw[1:]
	l.cache.Add(sk, payload)
	return payload, nil
}

// Read returns the serialized entry at k, or nil when it does not exist.
// The returned slice must not be modified.
func (l *Ledger) Read(ctx context.Context, k keylet.Keylet) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.load(ctx, k)
}

// View returns a read view bound to ctx.
func (l *Ledger) View(ctx context.Context) *View {
	return &View{ctx: ctx, ledger: l}
}

// Commit applies changes in one atomic batch. Every change's Original must
// still match the stored entry, otherwise nothing is written and
// ErrConflict is returned.
func (l *Ledger) Commit(ctx context.Context, changes []Change) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ops := make([]database.BatchOperation, 0, len(changes))
	for _, c := range changes {
		stored, err := l.load(ctx, c.Keylet)
		if err != nil {
			return err
		}
		if (stored == nil) != (c.Original == nil) || !bytes.Equal(stored, c.Original) {
			l.logger.Debug("commit conflict",
				zap.Stringer("type", c.Keylet.Type),
				zap.String("key", sle.AccountID(c.Keylet.Key).String()),
			)
			return ErrConflict
		}
		if !c.Written() {
			continue
		}

		sk := keyOf(c.Keylet)
		if c.Current == nil {
			ops = append(ops, database.BatchOperation{Type: database.BatchDelete, Key: sk[:]})
			continue
		}
		value := make([]byte, 0, len(c.Current)+1)
		value = append(value, c.Keylet.Type.Byte())
		value = append(value, c.Current...)
		ops = append(ops, database.BatchOperation{Type: database.BatchPut, Key: sk[:], Value: value})
	}

	if len(ops) == 0 {
		return nil
	}
	if err := l.db.Batch(ctx, ops); err != nil {
		// The store may or may not hold the batch; drop cached images of
		// every touched key so the next read goes to the store.
		for _, op := range ops {
			var sk storageKey
			copy(sk[:], op.Key)
			l.cache.Remove(sk)
		}
		return fmt.Errorf("commit batch: %w", err)
	}

	for _, op := range ops {
		var sk storageKey
		copy(sk[:], op.Key)
		if op.Type == database.BatchDelete {
			l.cache.Remove(sk)
		} else {
			l.cache.Add(sk, op.Value[1:])
		}
	}
	return nil
}

// Fund credits native balance to id, creating its AccountRoot when absent.
// It is an administrative operation for standalone mode and tests.
func (l *Ledger) Fund(ctx context.Context, id sle.AccountID, drops uint64) (uint64, error) {
	k := keylet.Account(id)
	for {
		current, err := l.Read(ctx, k)
		if err != nil {
			return 0, err
		}

		root := &sle.AccountRoot{Account: id}
		if current != nil {
			if root, err = sle.ParseAccountRoot(current); err != nil {
				return 0, err
			}
		}
		if root.Balance, err = amount.Add(root.Balance, drops); err != nil {
			return 0, err
		}

		next, err := sle.Marshal(root)
		if err != nil {
			return 0, err
		}
		err = l.Commit(ctx, []Change{{Keylet: k, Original: current, Current: next}})
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return root.Balance, nil
	}
}

// ForEach calls fn with the key and payload of every entry of type t, in
// key order. fn returning false stops the walk.
func (l *Ledger) ForEach(ctx context.Context, t entry.Type, fn func(key [32]byte, data []byte) bool) error {
	start := []byte{t.Byte()}
	end := []byte{t.Byte() + 1}

	l.mu.RLock()
	it, err := l.db.Iterator(ctx, start, end)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("iterate %s: %w", t, err)
	}
	defer it.Close()

	for it.Next() {
		k, v := it.Key(), it.Value()
		if len(k) != len(storageKey{}) || len(v) < 1 {
			return fmt.Errorf("%w: key %x", ErrCorrupt, k)
		}
		var key [32]byte
		copy(key[:], k[1:])
		if !fn(key, v[1:]) {
			break
		}
	}
	return it.Error()
}

// View is a read-only view of the ledger bound to a context.
type View struct {
	ctx    context.Context
	ledger *Ledger
}

// Read returns the entry at k, or nil when absent.
func (v *View) Read(k keylet.Keylet) ([]byte, error) {
	return v.ledger.Read(v.ctx, k)
}

// Exists reports whether an entry is stored at k.
func (v *View) Exists(k keylet.Keylet) (bool, error) {
	data, err := v.Read(k)
	return data != nil, err
}
