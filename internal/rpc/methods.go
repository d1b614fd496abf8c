package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

// errNotFound is returned by readEntry for an absent entry
var errNotFound = errors.New("entry not found")

// RegisterAllMethods registers every method served over HTTP and websocket.
func RegisterAllMethods(r *MethodRegistry, svc *Services) {
	r.Register("server_info", &ServerInfoMethod{svc: svc, registry: r})
	r.Register("submit", &SubmitMethod{svc: svc})
	r.Register("account_info", &AccountInfoMethod{svc: svc})
	r.Register("escrow_info", &EscrowInfoMethod{svc: svc})
	r.Register("market_info", &MarketInfoMethod{svc: svc})
	r.Register("amm_quote", &AMMQuoteMethod{svc: svc})
	r.Register("record_events", &RecordEventsMethod{svc: svc})
}

// parseParams decodes params into v. Missing params decode as an empty object.
func parseParams(params json.RawMessage, v interface{}) *RpcError {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return RpcErrorInvalidParams("Invalid parameters: " + err.Error())
	}
	return nil
}

// requireAccount reports a missing identity field
func requireAccount(name string, id sle.AccountID) *RpcError {
	if id.IsZero() {
		return RpcErrorInvalidParams(fmt.Sprintf("Missing field '%s'", name))
	}
	return nil
}

// readEntry reads the entry at k and decodes it into e
func readEntry(ctx *RpcContext, l StateReader, k keylet.Keylet, e entry.Entry) error {
	data, err := l.Read(ctx.Context, k)
	if err != nil {
		return err
	}
	if data == nil {
		return errNotFound
	}
	return sle.Unmarshal(data, e)
}

// entryError maps a readEntry failure
func entryError(err error, what string) *RpcError {
	if errors.Is(err, errNotFound) {
		return RpcErrorEntryNotFound(what + " not found")
	}
	return RpcErrorInternal(err.Error())
}

// tokenBalance returns the balance of the token account at addr
func tokenBalance(ctx *RpcContext, l StateReader, addr sle.AccountID) (uint64, error) {
	var acct sle.TokenAccount
	if err := readEntry(ctx, l, keylet.TokenAccount(addr), &acct); err != nil {
		return 0, err
	}
	return acct.Amount, nil
}
