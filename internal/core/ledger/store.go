package ledger

import (
	"fmt"

	"github.com/LeJamon/goCustody/internal/storage/database"
	"github.com/LeJamon/goCustody/internal/storage/database/bbolt"
	"github.com/LeJamon/goCustody/internal/storage/database/leveldb"
	"github.com/LeJamon/goCustody/internal/storage/database/memory"
	"github.com/LeJamon/goCustody/internal/storage/database/pebble"
)

// Supported store backends
const (
	BackendMemory  = "memory"
	BackendPebble  = "pebble"
	BackendBBolt   = "bbolt"
	BackendLevelDB = "leveldb"
)

// stateDBName is the database name of the ledger state within a manager.
const stateDBName = "state"

// OpenStore opens the state database for backend under path. The returned
// manager must be closed after the ledger is no longer used.
func OpenStore(backend, path string) (database.DB, database.Manager, error) {
	var m database.Manager
	switch backend {
	case BackendMemory, "":
		m = memory.NewManager()
	case BackendPebble:
		m = pebble.NewManager(path)
	case BackendBBolt:
		m = bbolt.NewManager(path)
	case BackendLevelDB:
		m = leveldb.NewManager(path)
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", backend)
	}

	db, err := m.OpenDB(stateDBName)
	if err != nil {
		m.Close()
		return nil, nil, err
	}
	return db, m, nil
}
