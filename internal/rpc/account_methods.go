package rpc

import (
	"encoding/json"
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

// AccountInfoMethod reports the native balance of an identity and,
// when a mint is given, its associated token account
type AccountInfoMethod struct {
	svc *Services
}

func (m *AccountInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account      sle.AccountID `json:"account"`
		Mint         sle.AccountID `json:"mint"`
		TokenAccount sle.AccountID `json:"token_account"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}

	// A bare token account lookup
	if request.Account.IsZero() && !request.TokenAccount.IsZero() {
		var acct sle.TokenAccount
		if err := readEntry(ctx, m.svc.Ledger, keylet.TokenAccount(request.TokenAccount), &acct); err != nil {
			return nil, entryError(err, "Token account")
		}
		return map[string]interface{}{"token_account": tokenAccountJSON(request.TokenAccount, &acct)}, nil
	}
	if err := requireAccount("account", request.Account); err != nil {
		return nil, err
	}

	var root sle.AccountRoot
	err := readEntry(ctx, m.svc.Ledger, keylet.Account(request.Account), &root)
	if errors.Is(err, errNotFound) {
		return nil, RpcErrorActNotFound("Account not found.")
	}
	if err != nil {
		return nil, RpcErrorInternal(err.Error())
	}

	result := map[string]interface{}{
		"account_data": map[string]interface{}{
			"Account": root.Account.String(),
			"Balance": root.Balance,
		},
	}

	if !request.Mint.IsZero() {
		addr := keylet.AssociatedTokenAccount(request.Account, request.Mint).Key
		var acct sle.TokenAccount
		if err := readEntry(ctx, m.svc.Ledger, keylet.TokenAccount(addr), &acct); err != nil {
			return nil, entryError(err, "Token account")
		}
		result["token_account"] = tokenAccountJSON(addr, &acct)
	}
	return result, nil
}

func tokenAccountJSON(addr sle.AccountID, acct *sle.TokenAccount) map[string]interface{} {
	return map[string]interface{}{
		"address": addr.String(),
		"mint":    acct.Mint.String(),
		"owner":   acct.Owner.String(),
		"amount":  acct.Amount,
	}
}
