package rpc

import (
	"encoding/json"
	"errors"

	"github.com/LeJamon/goCustody/internal/core/tx/escrow"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

// EscrowInfoMethod reports the deal record of a (player, beneficiary, mint)
// triple with its journal. A settled deal only has its journal left.
type EscrowInfoMethod struct {
	svc *Services
}

func (m *EscrowInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var d escrow.Deal
	if err := parseParams(params, &d); err != nil {
		return nil, err
	}
	if err := requireAccount("Player", d.Player); err != nil {
		return nil, err
	}
	if err := requireAccount("Beneficiary", d.Beneficiary); err != nil {
		return nil, err
	}
	if err := requireAccount("Mint", d.Mint); err != nil {
		return nil, err
	}

	record := d.Address().String()
	events, err := m.svc.Journal.List(ctx.Context, record)
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	result := map[string]interface{}{
		"record": record,
		"events": events,
	}

	var state sle.TransactionState
	err = readEntry(ctx, m.svc.Ledger, d.StateKeylet().Keylet, &state)
	switch {
	case errors.Is(err, errNotFound):
		if len(events) == 0 {
			return nil, RpcErrorEntryNotFound("Escrow not found")
		}
		result["exists"] = false
		return result, nil
	case err != nil:
		return nil, RpcErrorInternal(err.Error())
	}

	held, err := tokenBalance(ctx, m.svc.Ledger, state.EscrowAccount)
	if err != nil {
		return nil, entryError(err, "Escrow account")
	}

	result["exists"] = true
	result["state"] = map[string]interface{}{
		"player":         state.Player.String(),
		"beneficiary":    state.Beneficiary.String(),
		"mint":           state.Mint.String(),
		"escrow_account": state.EscrowAccount.String(),
		"amount":         state.Amount,
		"stage":          state.Stage.String(),
		"held":           held,
	}
	return result, nil
}
