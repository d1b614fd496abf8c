// Package grpc serves the custody RPC methods over gRPC with a JSON codec.
package grpc

import (
	"errors"
	"fmt"
	"net"
)

// defaultMsgSize applies to both directions
const defaultMsgSize = 4 << 20

// ServerConfig holds configuration for the gRPC server.
type ServerConfig struct {
	// Address is host:port, e.g. "127.0.0.1:50051"
	Address string

	MaxRecvMsgSize int
	MaxSendMsgSize int
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        "127.0.0.1:50051",
		MaxRecvMsgSize: defaultMsgSize,
		MaxSendMsgSize: defaultMsgSize,
	}
}

// Validate checks the listen address and the message size limits.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return errors.New("address is required")
	}
	host, port, err := net.SplitHostPort(c.Address)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	if host == "" || port == "" {
		return fmt.Errorf("address %q needs both host and port", c.Address)
	}
	if c.MaxRecvMsgSize <= 0 || c.MaxSendMsgSize <= 0 {
		return fmt.Errorf("message size limits must be positive, got recv=%d send=%d", c.MaxRecvMsgSize, c.MaxSendMsgSize)
	}
	return nil
}
