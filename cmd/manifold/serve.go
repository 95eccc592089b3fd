// Copyright 2026 Manifold Works
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/manifold-works/manifold/pkg/config"
	"github.com/manifold-works/manifold/pkg/rest"
	"github.com/manifold-works/manifold/pkg/server"
	"github.com/manifold-works/manifold/pkg/socket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Manifold server",
	Long: `Start the Manifold server.

The server exposes the registered capability set over:
- REST routes (/tools, /resources, /resource-templates, /prompts)
- MCP JSON-RPC on POST /mcp
- WebSocket tool calls on /ws

Press Ctrl+C to gracefully shutdown.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	serveCmd.Flags().Bool("cors", false, "enable CORS")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	registry := capability.NewRegistry()
	if err := registerCapabilities(registry); err != nil {
		return fmt.Errorf("failed to register capabilities: %w", err)
	}
	engine := capability.NewEngine(logger)

	tools, resources, prompts, templates := registry.Counts()
	logger.Info("capability registry ready",
		zap.Int("tools", tools),
		zap.Int("resources", resources),
		zap.Int("prompts", prompts),
		zap.Int("templates", templates),
	)

	mcpServer := server.New(cfg.Name, cfg.Version, registry, engine, logger)
	mcpTransport := server.NewHTTPTransport(server.HTTPTransportConfig{
		Server:     mcpServer,
		Logger:     logger,
		SessionTTL: server.DefaultSessionTTL,
	})
	defer mcpTransport.Close()

	api := rest.New(rest.Config{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Registry:    registry,
		Engine:      engine,
		Logger:      logger,
		MCPEndpoint: cfg.MCPEndpoint,
		WSEndpoint:  cfg.WSEndpoint,
	})

	ws := socket.NewHandler(socket.Config{
		Registry: registry,
		Engine:   engine,
		Logger:   logger,
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	if cfg.CORSEnabled {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Mcp-Session-Id"},
			ExposedHeaders: []string{"Mcp-Session-Id"},
			MaxAge:         86400,
		}))
	}

	api.Register(router)
	router.Handle(cfg.MCPEndpoint, mcpTransport)
	router.Handle(cfg.WSEndpoint, ws)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr()),
			zap.String("mcp_endpoint", cfg.MCPEndpoint),
			zap.String("ws_endpoint", cfg.WSEndpoint),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("cors") {
		cfg.CORSEnabled, _ = cmd.Flags().GetBool("cors")
	}
}

// buildLogger creates a production zap logger writing JSON to stderr.
func buildLogger(logLevel string) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		parseLogLevel(logLevel),
	)

	return zap.New(core), nil
}

// parseLogLevel converts a string log level to a zapcore.Level.
func parseLogLevel(logLevel string) zapcore.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
