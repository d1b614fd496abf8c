package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

// SubmitMethod applies a signed operation
type SubmitMethod struct {
	svc *Services
}

func (m *SubmitMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		TxJSON json.RawMessage `json:"tx_json"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if len(request.TxJSON) == 0 {
		return nil, RpcErrorInvalidParams("Missing field 'tx_json'")
	}

	op, err := tx.FromJSON(request.TxJSON)
	if err != nil {
		return nil, RpcErrorInvalidTransaction(err.Error())
	}

	res := m.svc.Engine.Apply(ctx.Context, op)
	return ApplyResultJSON(res), nil
}

// ApplyResultJSON renders an engine result the way submit returns it.
func ApplyResultJSON(res tx.ApplyResult) map[string]interface{} {
	out := map[string]interface{}{
		"engine_result":         res.Result.String(),
		"engine_result_code":    int(res.Result),
		"engine_result_message": res.Result.Message(),
		"applied":               res.Applied(),
	}
	if res.TxHash != ([32]byte{}) {
		out["hash"] = sle.AccountID(res.TxHash).String()
	}
	if res.Reason != "" {
		out["reason"] = res.Reason
	}
	if res.Metadata != nil {
		out["meta"] = res.Metadata
	}
	if len(res.Events) > 0 {
		out["events"] = res.Events
	}
	return out
}
