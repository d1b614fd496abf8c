package bbolt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LeJamon/goCustody/internal/storage/database"
	"go.etcd.io/bbolt"
)

// openTimeout bounds the wait for another process's file lock
const openTimeout = time.Second

// Manager keeps one bbolt file per database name under a root directory.
// Each file holds a single bucket named after the database.
type Manager struct {
	root    string
	handles *database.Handles[*bbolt.DB]
}

func NewManager(root string) *Manager {
	return &Manager{root: root, handles: database.NewHandles[*bbolt.DB]()}
}

func (m *Manager) OpenDB(name string) (database.DB, error) {
	db, err := m.handles.Get(name, func() (*bbolt.DB, error) {
		return m.open(name)
	})
	if err != nil {
		return nil, err
	}
	return NewDB(db, []byte(name)), nil
}

// open creates the file and its bucket if they do not exist
func (m *Manager) open(name string) (*bbolt.DB, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(filepath.Join(m.root, name+".db"), 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return db, nil
}

func (m *Manager) CloseDB(name string) error {
	return m.handles.Close(name)
}

func (m *Manager) Close() error {
	return m.handles.CloseAll()
}
