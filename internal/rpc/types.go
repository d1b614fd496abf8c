package rpc

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/storage/journal"
	"github.com/LeJamon/goCustody/internal/storage/journal/memory"
	"go.uber.org/zap"
)

// RpcContext carries per-request data to a method
type RpcContext struct {
	Context  context.Context
	ClientIP string
}

// MethodHandler is implemented by every RPC method
type MethodHandler interface {
	Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)
}

// MethodFunc adapts a function to MethodHandler
type MethodFunc func(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError)

func (f MethodFunc) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	return f(ctx, params)
}

// MethodRegistry maps method names to handlers
type MethodRegistry struct {
	methods map[string]MethodHandler
}

func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		methods: make(map[string]MethodHandler),
	}
}

func (r *MethodRegistry) Register(name string, handler MethodHandler) {
	r.methods[name] = handler
}

func (r *MethodRegistry) Get(name string) (MethodHandler, bool) {
	handler, exists := r.methods[name]
	return handler, exists
}

// Names returns the registered method names, sorted
func (r *MethodRegistry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StateReader reads committed ledger entries
type StateReader interface {
	Read(ctx context.Context, k keylet.Keylet) ([]byte, error)
}

// Services are the dependencies of the RPC methods
type Services struct {
	Engine  *tx.Engine
	Ledger  StateReader
	Journal journal.Sink

	// Feed streams events to websocket subscribers. Nil disables subscribe.
	Feed *memory.Sink

	Logger  *zap.Logger
	Started time.Time
}
