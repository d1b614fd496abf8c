package rpc

import (
	"encoding/json"
	"errors"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/amm"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

// loadPool reads the market of creator and its vault balances
func loadPool(ctx *RpcContext, l StateReader, creator sle.AccountID) (amm.Pool, *RpcError) {
	var market sle.MarketState
	if err := readEntry(ctx, l, keylet.MarketState(creator).Keylet, &market); err != nil {
		return amm.Pool{}, entryError(err, "Market")
	}
	tokens, err := tokenBalance(ctx, l, market.TokenVault)
	if err != nil {
		return amm.Pool{}, entryError(err, "Token vault")
	}
	sol, err := tokenBalance(ctx, l, market.SolVault)
	if err != nil {
		return amm.Pool{}, entryError(err, "Sol vault")
	}
	return amm.Pool{Market: &market, TokenBalance: tokens, SolBalance: sol}, nil
}

// MarketInfoMethod reports a market and its vault balances
type MarketInfoMethod struct {
	svc *Services
}

func (m *MarketInfoMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Creator sle.AccountID `json:"Creator"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if err := requireAccount("Creator", request.Creator); err != nil {
		return nil, err
	}

	pool, rpcErr := loadPool(ctx, m.svc.Ledger, request.Creator)
	if rpcErr != nil {
		return nil, rpcErr
	}
	market := pool.Market
	return map[string]interface{}{
		"market": map[string]interface{}{
			"address":         amm.MarketAddress(market.Creator).String(),
			"creator":         market.Creator.String(),
			"token_mint":      market.TokenMint.String(),
			"sol_mint":        market.SolMint.String(),
			"fee_numerator":   market.FeeNumerator,
			"fee_denominator": market.FeeDenominator,
			"token_vault":     market.TokenVault.String(),
			"sol_vault":       market.SolVault.String(),
			"token_balance":   pool.TokenBalance,
			"sol_balance":     pool.SolBalance,
			"product":         amount.Product(pool.TokenBalance, pool.SolBalance).Dec(),
		},
	}, nil
}

// AMMQuoteMethod prices a swap without applying it
type AMMQuoteMethod struct {
	svc *Services
}

func (m *AMMQuoteMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Creator   sle.AccountID `json:"Creator"`
		AmountIn  uint64        `json:"AmountIn"`
		Direction amm.Direction `json:"Direction"`
	}
	if err := parseParams(params, &request); err != nil {
		return nil, err
	}
	if err := requireAccount("Creator", request.Creator); err != nil {
		return nil, err
	}
	if request.AmountIn == 0 {
		return nil, RpcErrorInvalidParams("AmountIn must be positive")
	}

	pool, rpcErr := loadPool(ctx, m.svc.Ledger, request.Creator)
	if rpcErr != nil {
		return nil, rpcErr
	}

	q, err := amm.Quote(pool, request.AmountIn, request.Direction)
	switch {
	case errors.Is(err, amm.ErrInvalidDirection):
		return nil, RpcErrorInvalidParams(err.Error())
	case err != nil:
		return nil, NewRpcError(RpcUNKNOWN, "noQuote", err.Error())
	}
	return map[string]interface{}{
		"quote":   q,
		"product": q.ProductBefore().Dec(),
	}, nil
}
