package grpc_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/LeJamon/goCustody/internal/core/tx"
	custodygrpc "github.com/LeJamon/goCustody/internal/grpc"
	"github.com/LeJamon/goCustody/internal/rpc"
	jtx "github.com/LeJamon/goCustody/internal/testing"
	"github.com/LeJamon/goCustody/internal/testing/escrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fixture struct {
	env    *jtx.TestEnv
	client *custodygrpc.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := jtx.NewTestEnv(t)
	svc := &rpc.Services{
		Engine:  env.Engine(),
		Ledger:  env.Ledger(),
		Journal: env.Journal(),
		Logger:  zaptest.NewLogger(t),
		Started: time.Now(),
	}

	server, err := custodygrpc.NewServer(nil, rpc.NewServer(svc, 5*time.Second), zaptest.NewLogger(t))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	done := make(chan error, 1)
	go func() { done <- server.Serve(lis) }()
	t.Cleanup(func() {
		server.Stop(context.Background())
		require.NoError(t, <-done)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fixture{env: env, client: custodygrpc.NewClient(conn)}
}

func requireCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, status.Code(err), "error: %v", err)
}

func TestCallServerInfo(t *testing.T) {
	f := newFixture(t)

	var out struct {
		Info struct {
			EntryReserve uint64   `json:"entry_reserve"`
			Methods      []string `json:"methods"`
			Streaming    bool     `json:"streaming"`
		} `json:"info"`
	}
	require.NoError(t, f.client.Call(context.Background(), "server_info", nil, &out))
	assert.Equal(t, tx.DefaultEntryReserve, out.Info.EntryReserve)
	assert.Contains(t, out.Info.Methods, "submit")
	assert.False(t, out.Info.Streaming)
}

func TestCallSubmit(t *testing.T) {
	f := newFixture(t)
	player, beneficiary := jtx.NewAccount("player"), jtx.NewAccount("beneficiary")
	f.env.Fund(player, beneficiary)
	mint := f.env.CreateMint(f.env.Authority(), "usd")

	op := f.env.Sign(escrow.Setup(player, beneficiary, mint).Build(), player)
	raw, err := tx.ToJSON(op)
	require.NoError(t, err)

	var out map[string]interface{}
	params := map[string]interface{}{"tx_json": json.RawMessage(raw)}
	require.NoError(t, f.client.Call(context.Background(), "submit", params, &out))
	assert.Equal(t, "tesSUCCESS", out["engine_result"])
	assert.Equal(t, true, out["applied"])

	// A replay is an engine result, not a transport error
	require.NoError(t, f.client.Call(context.Background(), "submit", params, &out))
	assert.Equal(t, "tefALREADY", out["engine_result"])
}

func TestCallErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	requireCode(t, f.client.Call(ctx, "", nil, nil), codes.InvalidArgument)
	requireCode(t, f.client.Call(ctx, "ledger_accept", nil, nil), codes.Unimplemented)
	requireCode(t, f.client.Call(ctx, "account_info", map[string]string{"account": "not-base58!"}, nil), codes.InvalidArgument)

	err := f.client.Call(ctx, "account_info", map[string]string{"account": jtx.NewAccount("nobody").Address()}, nil)
	requireCode(t, err, codes.NotFound)
	assert.Contains(t, status.Convert(err).Message(), "actNotFound")
}

func TestServerConfigValidate(t *testing.T) {
	require.NoError(t, custodygrpc.DefaultServerConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*custodygrpc.ServerConfig)
	}{
		{"empty address", func(c *custodygrpc.ServerConfig) { c.Address = "" }},
		{"no port", func(c *custodygrpc.ServerConfig) { c.Address = "localhost" }},
		{"no host", func(c *custodygrpc.ServerConfig) { c.Address = ":50051" }},
		{"zero recv", func(c *custodygrpc.ServerConfig) { c.MaxRecvMsgSize = 0 }},
		{"zero send", func(c *custodygrpc.ServerConfig) { c.MaxSendMsgSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := custodygrpc.DefaultServerConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	_, err := custodygrpc.NewServer(&custodygrpc.ServerConfig{}, nil, nil)
	assert.Error(t, err)
}
