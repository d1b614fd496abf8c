package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/crypto/algorithms/ed25519"
	"github.com/LeJamon/goCustody/internal/di"
	"github.com/LeJamon/goCustody/internal/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Flags shared by every command that submits an operation
var (
	keySeeds []string
	nonce    uint64
)

// addSigningFlags registers --key and --nonce on cmd. The first key is the
// submitting account.
func addSigningFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&keySeeds, "key", nil, "seed phrase of a signing key (repeatable, first one submits)")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "nonce distinguishing an otherwise identical operation (default: clock)")
}

// session is one in-process instance of the node services
type session struct {
	container *di.Container
	provider  *di.Provider
	services  *rpc.Services
	registry  *rpc.MethodRegistry
}

// openSession builds the services from the loaded configuration.
func openSession() (*session, error) {
	container := di.New()
	provider := di.NewProvider(container, cfg)
	if err := provider.RegisterAll(); err != nil {
		return nil, err
	}
	s := &session{container: container, provider: provider}

	svc, err := s.buildServices()
	if err != nil {
		_ = container.Close()
		return nil, err
	}
	s.services = svc
	s.registry = rpc.NewMethodRegistry()
	rpc.RegisterAllMethods(s.registry, svc)
	return s, nil
}

func (s *session) buildServices() (*rpc.Services, error) {
	logger, err := s.provider.GetLogger()
	if err != nil {
		return nil, err
	}
	engine, err := s.provider.GetEngine()
	if err != nil {
		return nil, err
	}
	l, err := s.provider.GetLedger()
	if err != nil {
		return nil, err
	}
	sink, err := s.provider.GetJournal()
	if err != nil {
		return nil, err
	}

	svc := &rpc.Services{
		Engine:  engine,
		Ledger:  l,
		Journal: sink,
		Logger:  logger,
		Started: time.Now(),
	}
	// The feed is absent when the journal is disabled
	if feed, err := s.provider.GetFeed(); err == nil {
		svc.Feed = feed
	}
	return svc, nil
}

func (s *session) Close() error {
	return s.container.Close()
}

// withSession runs fn against a fresh session and closes it afterwards.
func withSession(fn func(s *session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			s.services.Logger.Warn("closing services", zap.Error(err))
		}
	}()
	return fn(s)
}

// executeMethod calls an RPC method handler directly and prints its result
func (s *session) executeMethod(method string, params interface{}) error {
	handler, exists := s.registry.Get(method)
	if !exists {
		return fmt.Errorf("unknown method: %s", method)
	}

	rpcCtx := &rpc.RpcContext{
		Context:  context.Background(),
		ClientIP: "127.0.0.1", // Local CLI
	}

	var paramBytes json.RawMessage
	if params != nil {
		bytes, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal parameters: %w", err)
		}
		paramBytes = json.RawMessage(bytes)
	}

	result, rpcErr := handler.Handle(rpcCtx, paramBytes)
	if rpcErr != nil {
		return fmt.Errorf("RPC error [%d] %s: %s", rpcErr.Code, rpcErr.ErrorString, rpcErr.Message)
	}
	return printJSON(result)
}

// submit signs op with every --key and applies it through the submit method.
// Without --nonce the operation is stamped with the clock, so repeating a
// command is a new operation rather than a replay.
func (s *session) submit(op tx.Transaction) error {
	keys := signingKeys()
	op.GetCommon().Nonce = nonce
	if nonce == 0 {
		op.GetCommon().Nonce = uint64(time.Now().UnixNano())
	}
	for _, kp := range keys {
		if err := tx.Sign(op, kp); err != nil {
			return fmt.Errorf("sign %s: %w", op.TxType(), err)
		}
	}
	raw, err := tx.ToJSON(op)
	if err != nil {
		return err
	}
	return s.executeMethod("submit", map[string]interface{}{"tx_json": json.RawMessage(raw)})
}

func signingKeys() []*ed25519.Keypair {
	keys := make([]*ed25519.Keypair, len(keySeeds))
	for i, seed := range keySeeds {
		keys[i] = ed25519.GenerateKeypair([]byte(seed))
	}
	return keys
}

// submitter returns the identity of the first --key.
func submitter() (tx.AccountID, error) {
	if len(keySeeds) == 0 {
		return tx.AccountID{}, fmt.Errorf("at least one --key is required")
	}
	return tx.AccountID(ed25519.GenerateKeypair([]byte(keySeeds[0])).Public), nil
}

// submitOp builds an operation submitted by the first --key and applies it.
func submitOp(build func(account tx.AccountID) (tx.Transaction, error)) error {
	account, err := submitter()
	if err != nil {
		return err
	}
	op, err := build(account)
	if err != nil {
		return err
	}
	return withSession(func(s *session) error { return s.submit(op) })
}

// queryMethod runs one read method in a fresh session.
func queryMethod(method string, params interface{}) error {
	return withSession(func(s *session) error { return s.executeMethod(method, params) })
}

func parseAddress(name, s string) (tx.AccountID, error) {
	id, err := sle.DecodeAccountID(s)
	if err != nil {
		return tx.AccountID{}, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return id, nil
}

func parseAmount(name, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return n, nil
}

func printJSON(v interface{}) error {
	if v == nil {
		return nil
	}
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", v)
		return nil
	}
	fmt.Println(string(prettyJSON))
	return nil
}
