package memory

import (
	"github.com/LeJamon/goCustody/internal/storage/database"
)

// Manager hands out one in-memory DB per name. Closing a database drops
// its contents.
type Manager struct {
	handles *database.Handles[*DB]
}

func NewManager() *Manager {
	return &Manager{handles: database.NewHandles[*DB]()}
}

func (m *Manager) OpenDB(name string) (database.DB, error) {
	db, err := m.handles.Get(name, func() (*DB, error) { return NewDB(), nil })
	if err != nil {
		return nil, err
	}
	return db, nil
}

func (m *Manager) CloseDB(name string) error {
	return m.handles.Close(name)
}

func (m *Manager) Close() error {
	return m.handles.CloseAll()
}
