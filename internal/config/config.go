// Package config loads the custodyd configuration from defaults, a TOML
// file and CUSTODY_ environment variables, in that order of precedence.
package config

import (
	"time"

	"github.com/LeJamon/goCustody/internal/core/tx"
)

// Config represents the complete custodyd configuration
type Config struct {
	Ledger  LedgerConfig  `toml:"ledger" mapstructure:"ledger"`
	Engine  EngineConfig  `toml:"engine" mapstructure:"engine"`
	Journal JournalConfig `toml:"journal" mapstructure:"journal"`
	RPC     RPCConfig     `toml:"rpc" mapstructure:"rpc"`
	GRPC    GRPCConfig    `toml:"grpc" mapstructure:"grpc"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// LedgerConfig selects the state store
type LedgerConfig struct {
	// Backend is memory, pebble, bbolt or leveldb
	Backend string `toml:"backend" mapstructure:"backend"`
	Path    string `toml:"path" mapstructure:"path"`

	// Compression names the algorithm new values are stored with
	Compression string `toml:"compression" mapstructure:"compression"`

	// CacheSize is the number of entries kept in the read cache, 0 keeps the default
	CacheSize int `toml:"cache_size" mapstructure:"cache_size"`
}

// EngineConfig tunes the operation engine
type EngineConfig struct {
	EntryReserve              uint64 `toml:"entry_reserve" mapstructure:"entry_reserve"`
	MaxRetries                int    `toml:"max_retries" mapstructure:"max_retries"`
	Workers                   int    `toml:"workers" mapstructure:"workers"` // 0 means one per CPU
	InvariantPolicy           string `toml:"invariant_policy" mapstructure:"invariant_policy"`
	SkipSignatureVerification bool   `toml:"skip_signature_verification" mapstructure:"skip_signature_verification"`
}

// JournalConfig selects where events are recorded
type JournalConfig struct {
	// Driver is none, memory, sqlite or postgres
	Driver string `toml:"driver" mapstructure:"driver"`
	DSN    string `toml:"dsn" mapstructure:"dsn"`
}

// RPCConfig configures the JSON-RPC and websocket listener
type RPCConfig struct {
	Listen      string        `toml:"listen" mapstructure:"listen"`
	ReadTimeout time.Duration `toml:"read_timeout" mapstructure:"read_timeout"`
}

// GRPCConfig configures the gRPC listener. An empty Listen disables it.
type GRPCConfig struct {
	Listen         string `toml:"listen" mapstructure:"listen"`
	MaxRecvMsgSize int    `toml:"max_recv_msg_size" mapstructure:"max_recv_msg_size"`
	MaxSendMsgSize int    `toml:"max_send_msg_size" mapstructure:"max_send_msg_size"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level    string `toml:"level" mapstructure:"level"`
	Encoding string `toml:"encoding" mapstructure:"encoding"`
}

// GetConfigPath returns the path of the file the config was read from
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// EngineSettings converts the engine section for tx.NewEngine. Validation
// has already checked the invariant policy.
func (c *Config) EngineSettings() tx.EngineConfig {
	policy, _ := tx.ParseInvariantPolicy(c.Engine.InvariantPolicy)
	cfg := tx.DefaultEngineConfig()
	cfg.EntryReserve = c.Engine.EntryReserve
	cfg.MaxRetries = c.Engine.MaxRetries
	if c.Engine.Workers > 0 {
		cfg.Workers = c.Engine.Workers
	}
	cfg.InvariantPolicy = policy
	cfg.SkipSignatureVerification = c.Engine.SkipSignatureVerification
	return cfg
}
