package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	custodygrpc "github.com/LeJamon/goCustody/internal/grpc"
	"github.com/LeJamon/goCustody/internal/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long in-flight requests may take to finish
const shutdownTimeout = 10 * time.Second

// Server flags
var listenAddr string

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the custodyd server",
	Long: `Start the custodyd server which provides:
- HTTP JSON-RPC API endpoint on /
- WebSocket endpoint on /ws for commands and journal subscriptions
- Prometheus metrics on /metrics
- Health check endpoint on /health
- gRPC custody service on grpc.listen, unless it is empty

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return serverCmd.RunE(cmd, args)
	}

	serverCmd.Flags().StringVar(&listenAddr, "listen", "", "address to listen on (default: rpc.listen from the config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	logger := s.services.Logger

	gatherer, err := s.provider.GetRegistry()
	if err != nil {
		return err
	}

	addr := cfg.RPC.Listen
	if listenAddr != "" {
		addr = listenAddr
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           rpc.Handler(s.services, cfg.RPC.ReadTimeout, gatherer),
		ReadHeaderTimeout: cfg.RPC.ReadTimeout,
	}

	var grpcServer *custodygrpc.Server
	if cfg.GRPC.Listen != "" {
		grpcServer, err = custodygrpc.NewServer(&custodygrpc.ServerConfig{
			Address:        cfg.GRPC.Listen,
			MaxRecvMsgSize: cfg.GRPC.MaxRecvMsgSize,
			MaxSendMsgSize: cfg.GRPC.MaxSendMsgSize,
		}, rpc.NewServer(s.services, cfg.RPC.ReadTimeout), logger)
		if err != nil {
			return err
		}
	}

	if !quiet {
		fmt.Println("Starting custodyd")
		fmt.Println("=================")
		fmt.Printf("  - Ledger backend: %s\n", cfg.Ledger.Backend)
		fmt.Printf("  - Journal:        %s\n", cfg.Journal.Driver)
		fmt.Printf("  - HTTP JSON-RPC:  http://%s/\n", addr)
		fmt.Printf("  - WebSocket:      ws://%s/ws\n", addr)
		fmt.Printf("  - Metrics:        http://%s/metrics\n", addr)
		fmt.Printf("  - Health Check:   http://%s/health\n", addr)
		if cfg.GRPC.Listen != "" {
			fmt.Printf("  - gRPC:           %s\n", cfg.GRPC.Listen)
		}
		fmt.Println()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("rpc server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()
	if grpcServer != nil {
		go func() { errCh <- grpcServer.Start() }()
	}

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		} else if err != nil {
			err = fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if grpcServer != nil {
		grpcServer.Stop(shutdownCtx)
	}
	if shutdownErr := httpServer.Shutdown(shutdownCtx); err == nil {
		err = shutdownErr
	}
	return err
}
