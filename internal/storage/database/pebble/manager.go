package pebble

import (
	"path/filepath"

	"github.com/LeJamon/goCustody/internal/storage/database"
	"github.com/cockroachdb/pebble"
)

// Manager keeps one pebble store per database name under a root directory.
type Manager struct {
	root    string
	handles *database.Handles[*pebble.DB]
}

func NewManager(root string) *Manager {
	return &Manager{root: root, handles: database.NewHandles[*pebble.DB]()}
}

func (m *Manager) OpenDB(name string) (database.DB, error) {
	db, err := m.handles.Get(name, func() (*pebble.DB, error) {
		return pebble.Open(filepath.Join(m.root, name+".db"), &pebble.Options{})
	})
	if err != nil {
		return nil, err
	}
	return NewDB(db), nil
}

func (m *Manager) CloseDB(name string) error {
	return m.handles.Close(name)
}

func (m *Manager) Close() error {
	return m.handles.CloseAll()
}
