package config

import (
	"time"

	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/spf13/viper"
)

// setDefaults sets all default values
func setDefaults(v *viper.Viper) {
	// Ledger defaults
	v.SetDefault("ledger.backend", "memory")
	v.SetDefault("ledger.path", "data/ledger")
	v.SetDefault("ledger.cache_size", 4096)
	v.SetDefault("ledger.compression", "none")

	// Engine defaults
	v.SetDefault("engine.entry_reserve", tx.DefaultEntryReserve)
	v.SetDefault("engine.max_retries", tx.DefaultMaxRetries)
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.invariant_policy", "fail")
	v.SetDefault("engine.skip_signature_verification", false)

	// Journal defaults
	v.SetDefault("journal.driver", "memory")
	v.SetDefault("journal.dsn", "")

	// RPC defaults
	v.SetDefault("rpc.listen", "127.0.0.1:5005")
	v.SetDefault("rpc.read_timeout", 30*time.Second)

	// gRPC defaults
	v.SetDefault("grpc.listen", "127.0.0.1:50051")
	v.SetDefault("grpc.max_recv_msg_size", 4*1024*1024)
	v.SetDefault("grpc.max_send_msg_size", 4*1024*1024)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg, err := LoadConfig("")
	if err != nil {
		// The defaults are validated by the package tests
		panic(err)
	}
	return cfg
}
