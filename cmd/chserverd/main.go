// Command chserverd is a demonstration host for the chserver library:
// it wires a TCP (optionally TLS) listener to the in-memory memexec
// Executor. The process entry point, flag/config handling, logging
// setup, and TLS certificate loading are all out of scope for the
// library itself — this binary is where they live.
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nativeproto/chserver/internal/memexec"
	"github.com/nativeproto/chserver/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "chserverd",
		Short: "Demo ClickHouse native-protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", "127.0.0.1:9000", "TCP address to listen on")
	flags.String("tls-cert", "", "TLS certificate file (enables TLS when set with --tls-key)")
	flags.String("tls-key", "", "TLS private key file")
	flags.String("display-name", "chserver-demo", "server display name advertised in the handshake")
	flags.String("log-level", "info", "log level: debug, info, warn, error")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("CHSERVERD")
	v.AutomaticEnv()

	return cmd
}

func run(v *viper.Viper) error {
	lg, err := newLogger(v.GetString("log-level"))
	if err != nil {
		return err
	}
	defer lg.Sync()

	cfg := memexec.DefaultConfig()
	cfg.DisplayName = v.GetString("display-name")
	executor := memexec.New(cfg)

	nc, err := net.Listen("tcp", v.GetString("listen"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	var tlsConfig *tls.Config
	if certFile, keyFile := v.GetString("tls-cert"), v.GetString("tls-key"); certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("load TLS keypair: %w", err)
		}
		tlsConfig = &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	}

	var l *server.Listener
	if tlsConfig != nil {
		l = server.NewTLSListener(nc, tlsConfig, executor, server.WithLogger(lg))
	} else {
		l = server.NewListener(nc, executor, server.WithLogger(lg))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	lg.Info("listening", zap.String("addr", nc.Addr().String()), zap.Bool("tls", tlsConfig != nil))
	return l.Serve(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("bad --log-level %q: %w", level, err)
	}
	return cfg.Build()
}
