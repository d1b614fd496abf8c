package rpc

import (
	"encoding/json"
	"time"

	"github.com/LeJamon/goCustody/internal/core/tx"
)

// ServerInfoMethod reports the engine configuration and uptime
type ServerInfoMethod struct {
	svc      *Services
	registry *MethodRegistry
}

func (m *ServerInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	cfg := m.svc.Engine.Config()

	types := tx.SupportedTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}

	return map[string]interface{}{
		"info": map[string]interface{}{
			"uptime":           int64(time.Since(m.svc.Started).Seconds()),
			"entry_reserve":    cfg.EntryReserve,
			"max_retries":      cfg.MaxRetries,
			"workers":          cfg.Workers,
			"invariant_policy": cfg.InvariantPolicy.String(),
			"operation_types":  names,
			"methods":          m.registry.Names(),
			"streaming":        m.svc.Feed != nil,
		},
	}, nil
}

// RecordEventsMethod lists the journal of one record
type RecordEventsMethod struct {
	svc *Services
}

func (m *RecordEventsMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Record string `json:"record"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if request.Record == "" {
		return nil, RpcErrorInvalidParams("Missing field 'record'")
	}

	events, err := m.svc.Journal.List(ctx.Context, request.Record)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}
	return map[string]interface{}{
		"record": request.Record,
		"events": events,
	}, nil
}
