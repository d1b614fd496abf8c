package leveldb

import (
	"path/filepath"

	"github.com/LeJamon/goCustody/internal/storage/database"
	"github.com/syndtr/goleveldb/leveldb"
)

// Manager keeps one leveldb directory per database name under a root.
type Manager struct {
	root    string
	handles *database.Handles[*leveldb.DB]
}

func NewManager(root string) *Manager {
	return &Manager{root: root, handles: database.NewHandles[*leveldb.DB]()}
}

func (m *Manager) OpenDB(name string) (database.DB, error) {
	db, err := m.handles.Get(name, func() (*leveldb.DB, error) {
		return leveldb.OpenFile(filepath.Join(m.root, name+".ldb"), nil)
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
