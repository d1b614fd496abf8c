package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/storage/database/compression"
	"github.com/LeJamon/goCustody/internal/storage/journal/sqldb"
)

// Journal drivers besides the SQL ones
const (
	JournalNone   = "none"
	JournalMemory = "memory"
)

// ValidateConfig checks every section of the configuration
func ValidateConfig(config *Config) error {
	if err := config.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger validation failed: %w", err)
	}
	if err := config.Engine.Validate(); err != nil {
		return fmt.Errorf("engine validation failed: %w", err)
	}
	if err := config.Journal.Validate(); err != nil {
		return fmt.Errorf("journal validation failed: %w", err)
	}
	if err := config.RPC.Validate(); err != nil {
		return fmt.Errorf("rpc validation failed: %w", err)
	}
	if err := config.GRPC.Validate(); err != nil {
		return fmt.Errorf("grpc validation failed: %w", err)
	}
	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}
	return nil
}

// Validate validates the ledger section
func (c *LedgerConfig) Validate() error {
	switch c.Backend {
	case ledger.BackendMemory:
	case ledger.BackendPebble, ledger.BackendBBolt, ledger.BackendLevelDB:
		if c.Path == "" {
			return fmt.Errorf("path is required for backend %s", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (supported: memory, pebble, bbolt, leveldb)", c.Backend)
	}
	if !compression.IsAvailable(c.Compression) {
		return fmt.Errorf("unknown compression %q (supported: %s)", c.Compression, strings.Join(compression.Available(), ", "))
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

// Validate validates the engine section
func (c *EngineConfig) Validate() error {
	if _, err := tx.ParseInvariantPolicy(c.InvariantPolicy); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.MaxRetries)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Validate validates the journal section
func (c *JournalConfig) Validate() error {
	switch c.Driver {
	case JournalNone, JournalMemory:
		return nil
	case sqldb.DriverSQLite, sqldb.DriverPostgres:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for driver %s", c.Driver)
		}
		return nil
	}
	return fmt.Errorf("unknown driver %q (supported: none, memory, sqlite, postgres)", c.Driver)
}

// Validate validates the rpc section
func (c *RPCConfig) Validate() error {
	if c.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative")
	}
	return nil
}

// Validate validates the grpc section
func (c *GRPCConfig) Validate() error {
	if c.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.MaxRecvMsgSize <= 0 || c.MaxSendMsgSize <= 0 {
		return fmt.Errorf("message size limits must be positive")
	}
	return nil
}

// Validate validates the log section
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
	switch c.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("unknown encoding %q", c.Encoding)
	}
	return nil
}
