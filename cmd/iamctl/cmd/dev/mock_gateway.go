package dev

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/terraconstructs/iamctl/internal/logging"
	"github.com/terraconstructs/iamctl/internal/mockgateway"
	"go.uber.org/zap"
)

var (
	listenAddr     string
	basePath       string
	secret         string
	accessTTL      time.Duration
	rotateRefresh  bool
	allowedOrigins []string
)

var mockGatewayCmd = &cobra.Command{
	Use:   "mock-gateway",
	Short: "Serve an in-memory IAM gateway for local development",
	Long: `Starts an in-memory implementation of the IAM gateway REST API, seeded with
the roles viewer, editor and admin and an administrator account.

State lives in memory only and is lost on exit. CORS is enabled for common
local dev server origins so a browser console can talk to it directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.FromContext(cmd.Context())

		corsOpts := mockgateway.DefaultCORSOptions()
		if len(allowedOrigins) > 0 {
			corsOpts.AllowedOrigins = allowedOrigins
		}
		gw, err := mockgateway.New(mockgateway.Options{
			BasePath:            basePath,
			Secret:              []byte(secret),
			AccessTTL:           accessTTL,
			Logger:              logger,
			CORSOptions:         &corsOpts,
			RotateRefreshTokens: rotateRefresh,
		})
		if err != nil {
			return fmt.Errorf("failed to create mock gateway: %w", err)
		}

		listener, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
		}

		srv := &http.Server{
			Handler:           gw.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- srv.Serve(listener)
		}()

		out := cmd.OutOrStdout()
		pterm.DefaultSection.WithWriter(out).Println("Mock IAM gateway")
		fmt.Fprintf(out, "Base URL: http://%s%s\n", listener.Addr(), basePath)
		fmt.Fprintf(out, "Admin:    %s / %s\n", mockgateway.DefaultAdminEmail, mockgateway.DefaultAdminPassword)
		fmt.Fprintln(out, "Press Ctrl+C to stop")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down mock gateway")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("mock gateway stopped", zap.String("addr", listener.Addr().String()))
		return nil
	},
}

func init() {
	f := mockGatewayCmd.Flags()
	f.StringVar(&listenAddr, "addr", "localhost:8080", "Listen address")
	f.StringVar(&basePath, "base-path", mockgateway.DefaultBasePath, "Path the API is mounted under")
	f.StringVar(&secret, "secret", "", "HS256 signing secret for access tokens (built-in development secret when empty)")
	f.DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "Access token lifetime")
	f.BoolVar(&rotateRefresh, "rotate-refresh-tokens", false, "Issue a new refresh token on every refresh")
	f.StringSliceVar(&allowedOrigins, "allowed-origin", nil, "CORS allowed origin (repeatable, replaces the defaults)")
}
