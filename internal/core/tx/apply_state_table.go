package tx

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

var (
	ErrEntryExists   = errors.New("entry already exists")
	ErrEntryNotFound = errors.New("entry not found")
)

// Action represents the type of modification to a ledger entry
type Action int

const (
	// ActionCache means the entry was read but not modified. An absent
	// entry that was looked up is cached with nil images.
	ActionCache Action = iota
	// ActionInsert means a new entry was created
	ActionInsert
	// ActionModify means an existing entry was modified
	ActionModify
	// ActionErase means an entry was deleted
	ActionErase
)

// TrackedEntry represents a ledger entry being tracked for changes
type TrackedEntry struct {
	Action   Action
	Original []byte // State when first read (nil if absent)
	Current  []byte // Current state (state before deletion for erase)
}

// ApplyStateTable wraps a LedgerView and tracks every read and
// modification. Nothing reaches the ledger until the engine commits the
// table's changes.
type ApplyStateTable struct {
	base  LedgerView
	items map[keylet.Keylet]*TrackedEntry
}

// NewApplyStateTable creates a new ApplyStateTable wrapping the given base view
func NewApplyStateTable(base LedgerView) *ApplyStateTable {
	return &ApplyStateTable{
		base:  base,
		items: make(map[keylet.Keylet]*TrackedEntry),
	}
}

// track returns the tracked entry for k, reading it from base on first use.
func (t *ApplyStateTable) track(k keylet.Keylet) (*TrackedEntry, error) {
	if e, exists := t.items[k]; exists {
		return e, nil
	}

	data, err := t.base.Read(k)
	if err != nil {
		return nil, err
	}
	e := &TrackedEntry{Action: ActionCache, Original: data, Current: data}
	t.items[k] = e
	return e, nil
}

func (e *TrackedEntry) live() bool {
	return e.Action != ActionErase && e.Current != nil
}

// Read reads a ledger entry, returning nil when it does not exist
func (t *ApplyStateTable) Read(k keylet.Keylet) ([]byte, error) {
	e, err := t.track(k)
	if err != nil {
		return nil, err
	}
	if !e.live() {
		return nil, nil
	}
	return e.Current, nil
}

// Exists checks if an entry exists
func (t *ApplyStateTable) Exists(k keylet.Keylet) (bool, error) {
	e, err := t.track(k)
	if err != nil {
		return false, err
	}
	return e.live(), nil
}

// Insert adds a new entry
func (t *ApplyStateTable) Insert(k keylet.Keylet, data []byte) error {
	e, err := t.track(k)
	if err != nil {
		return err
	}
	if e.live() {
		return fmt.Errorf("%w: %s", ErrEntryExists, k.Type)
	}

	if e.Original != nil {
		// Re-inserting a deleted entry becomes a modify
		e.Action = ActionModify
	} else {
		e.Action = ActionInsert
	}
	e.Current = data
	return nil
}

// Update modifies an existing entry
func (t *ApplyStateTable) Update(k keylet.Keylet, data []byte) error {
	e, err := t.track(k)
	if err != nil {
		return err
	}
	if !e.live() {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, k.Type)
	}

	if e.Action == ActionCache {
		e.Action = ActionModify
	}
	// For insert, keep it as insert with new data
	e.Current = data
	return nil
}

// Erase removes an entry
func (t *ApplyStateTable) Erase(k keylet.Keylet) error {
	e, err := t.track(k)
	if err != nil {
		return err
	}
	if !e.live() {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, k.Type)
	}

	if e.Action == ActionInsert {
		// Inserting then deleting is no change, but the absent read stays
		// in the read set
		e.Action = ActionCache
		e.Current = nil
		return nil
	}
	// Current keeps the state before deletion for metadata
	e.Action = ActionErase
	return nil
}

// IsErased returns true if the entry at the given key has been erased.
func (t *ApplyStateTable) IsErased(k keylet.Keylet) bool {
	if e, exists := t.items[k]; exists {
		return e.Action == ActionErase
	}
	return false
}

// Changes returns the read set and write set of the table for commit.
func (t *ApplyStateTable) Changes() []ledger.Change {
	changes := make([]ledger.Change, 0, len(t.items))
	for k, e := range t.items {
		c := ledger.Change{Keylet: k, Original: e.Original, Current: e.Current}
		if e.Action == ActionErase {
			c.Current = nil
		}
		changes = append(changes, c)
	}
	sort.Slice(changes, func(i, j int) bool {
		return bytes.Compare(changes[i].Keylet.Key[:], changes[j].Keylet.Key[:]) < 0
	})
	return changes
}

// Metadata describes every entry the table created, modified or deleted.
func (t *ApplyStateTable) Metadata() (*Metadata, error) {
	metadata := &Metadata{
		AffectedNodes: make([]AffectedNode, 0),
	}

	for k, e := range t.items {
		var (
			node AffectedNode
			err  error
		)
		switch e.Action {
		case ActionCache:
			// No change, skip
			continue

		case ActionInsert:
			node, err = buildCreatedNode(k, e.Current)

		case ActionModify:
			// Skip if no actual change
			if bytes.Equal(e.Original, e.Current) {
				continue
			}
			node, err = buildModifiedNode(k, e.Original, e.Current)

		case ActionErase:
			node, err = buildDeletedNode(k, e.Current)
		}
		if err != nil {
			return nil, err
		}
		metadata.AffectedNodes = append(metadata.AffectedNodes, node)
	}

	sort.Slice(metadata.AffectedNodes, func(i, j int) bool {
		return metadata.AffectedNodes[i].LedgerIndex < metadata.AffectedNodes[j].LedgerIndex
	})
	return metadata, nil
}

// buildCreatedNode creates metadata for a newly created entry
func buildCreatedNode(k keylet.Keylet, data []byte) (AffectedNode, error) {
	fields, err := sle.Fields(data)
	if err != nil {
		return AffectedNode{}, fmt.Errorf("created %s: %w", k.Type, err)
	}
	return AffectedNode{
		NodeType:        "CreatedNode",
		LedgerEntryType: k.Type.String(),
		LedgerIndex:     sle.AccountID(k.Key).String(),
		NewFields:       fields,
	}, nil
}

// buildModifiedNode creates metadata for a modified entry. PreviousFields
// only holds the fields that changed.
func buildModifiedNode(k keylet.Keylet, original, current []byte) (AffectedNode, error) {
	prev, err := sle.Fields(original)
	if err != nil {
		return AffectedNode{}, fmt.Errorf("modified %s: %w", k.Type, err)
	}
	final, err := sle.Fields(current)
	if err != nil {
		return AffectedNode{}, fmt.Errorf("modified %s: %w", k.Type, err)
	}

	changed := make(map[string]any)
	for name, old := range prev {
		if !reflect.DeepEqual(old, final[name]) {
			changed[name] = old
		}
	}

	return AffectedNode{
		NodeType:        "ModifiedNode",
		LedgerEntryType: k.Type.String(),
		LedgerIndex:     sle.AccountID(k.Key).String(),
		FinalFields:     final,
		PreviousFields:  changed,
	}, nil
}

// buildDeletedNode creates metadata for a deleted entry
func buildDeletedNode(k keylet.Keylet, last []byte) (AffectedNode, error) {
	final, err := sle.Fields(last)
	if err != nil {
		return AffectedNode{}, fmt.Errorf("deleted %s: %w", k.Type, err)
	}
	return AffectedNode{
		NodeType:        "DeletedNode",
		LedgerEntryType: k.Type.String(),
		LedgerIndex:     sle.AccountID(k.Key).String(),
		FinalFields:     final,
	}, nil
}
