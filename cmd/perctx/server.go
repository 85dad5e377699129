package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/perctx/perctx/internal/api"
	"github.com/perctx/perctx/internal/config"
	"github.com/perctx/perctx/internal/foodpref"
	"github.com/perctx/perctx/internal/location"
	"github.com/perctx/perctx/internal/maintenance"
	"github.com/perctx/perctx/internal/mcp"
	"github.com/perctx/perctx/internal/preference"
	"github.com/perctx/perctx/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the perctx server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running perctx server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show perctx system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "perctx.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration, using default", "value", value, "default", fallback, "error", err)
		return fallback
	}
	return d
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "perctx version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure API token exists in platform secret store.
	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("perctx is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("perctx is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	st, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build services.
	locations := location.NewRegistry(st)
	food := foodpref.NewResolver(st, locations)
	prefs := preference.NewService(st)
	stats := api.NewStats()

	// Build MCP gateway.
	gateway, err := mcp.NewGateway(mcp.Deps{
		Locations:  locations,
		Food:       food,
		Prefs:      prefs,
		GatewayURL: cfg.Downstream.GatewayURL,
		GraphQLURL: cfg.Downstream.GraphQLURL,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("building MCP gateway: %w", err)
	}

	// Compose top-level router: management REST routes + MCP JSON-RPC.
	appHandler := api.NewAppHandler(api.AppDeps{
		Store:     st,
		Locations: locations,
		Food:      food,
		Prefs:     prefs,
		Token:     apiToken,
		Stats:     stats,
		Version:   version,
	})
	topRouter := chi.NewRouter()
	topRouter.Mount("/", appHandler)
	topRouter.Post("/mcp", gateway.ServeHTTP)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
	}

	// Start background maintenance.
	sweepInterval := parseDurationOr(cfg.Maintenance.SweepInterval, 10*time.Minute)
	sweeper := maintenance.NewSweeper(st, locations, sweepInterval)
	go sweeper.Run(ctx)

	statsMaxAge := parseDurationOr(cfg.Maintenance.StatsMaxAge, 24*time.Hour)
	go stats.Run(ctx, statsMaxAge/4, statsMaxAge)

	// Start MCP server (stdio transport in a goroutine).
	stdioSrv := mcpserver.NewStdioServer(mcp.NewStdioServer(gateway))
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "perctx listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("perctx is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop perctx (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to perctx (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Gateway URL", "%s", cfg.Downstream.GatewayURL)
	printStatus("GraphQL URL", "%s", cfg.Downstream.GraphQLURL)

	// Show request totals if server is running.
	if resp != nil && resp.StatusCode == 200 {
		if apiClient, err := newAPIClient(); err == nil {
			if snap, err := apiClient.stats(context.Background()); err == nil {
				printStatus("Requests", "%d since start", snap.TotalRequests)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
