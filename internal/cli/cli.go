// ============================================================================
// widgetsync CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra based command line for the widget sync server
//
// Command Structure:
//   widgets                        # Root command
//   ├── run                        # Start HTTP + gRPC transports and the watchdog
//   │   └── --config, -c          # Specify config file
//   ├── status                     # Show configuration and probe a running server
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// Configuration Management:
//   Uses YAML format config file (default: configs/default.yaml)
//   A missing file means built-in defaults. Configuration items include:
//   - server: HTTP and gRPC ports (port 0 picks a free port, grpc_port -1 disables gRPC)
//   - client: lifetime of an idle client
//   - watchdog: sweep interval and action report interval
//   - metrics: Prometheus endpoint
//   - store: directory of the page data file
//   - log: level (debug, info, warn, error)
//
// run Command:
//   1. Load config file
//   2. Open the store and build the demo pages (/ counter, /form)
//   3. Start the Application watchdog
//   4. Serve HTTP (actions, /healthz, /metrics) and gRPC
//   5. On SIGINT/SIGTERM: stop transports, destroy every client, close the store
//
//   Examples:
//     ./widgets run
//     ./widgets run -c custom-config.yaml
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	"github.com/ChuLiYu/widgetsync/internal/application"
	"github.com/ChuLiYu/widgetsync/internal/demo"
	"github.com/ChuLiYu/widgetsync/internal/metrics"
	"github.com/ChuLiYu/widgetsync/internal/server"
	"github.com/ChuLiYu/widgetsync/internal/store"
)

// Config represents the complete system configuration structure
// Maps config file fields through YAML tags
type Config struct {
	Server struct {
		HTTPPort int `yaml:"http_port"`
		GRPCPort int `yaml:"grpc_port"`
	} `yaml:"server"`

	Client struct {
		Lifetime time.Duration `yaml:"lifetime"`
	} `yaml:"client"`

	Watchdog struct {
		Interval       time.Duration `yaml:"interval"`
		ReportInterval time.Duration `yaml:"report_interval"`
	} `yaml:"watchdog"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	Store struct {
		Dir string `yaml:"dir"`
	} `yaml:"store"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

const storeFile = "widgets.json"

var configFile string

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.HTTPPort = 8080
	cfg.Server.GRPCPort = 50051
	cfg.Client.Lifetime = 3 * time.Minute
	cfg.Watchdog.Interval = 100 * time.Millisecond
	cfg.Watchdog.ReportInterval = time.Minute
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.Store.Dir = "./data"
	cfg.Log.Level = "info"
	return cfg
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Client.Lifetime <= 0 {
		return fmt.Errorf("client.lifetime must be positive, got %s", c.Client.Lifetime)
	}
	if c.Watchdog.Interval <= 0 {
		return fmt.Errorf("watchdog.interval must be positive, got %s", c.Watchdog.Interval)
	}
	if c.Watchdog.ReportInterval <= 0 {
		return fmt.Errorf("watchdog.report_interval must be positive, got %s", c.Watchdog.ReportInterval)
	}
	if c.Server.HTTPPort < 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port out of range: %d", c.Server.HTTPPort)
	}
	if c.Server.GRPCPort < -1 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "widgets",
		Short: "widgets: server-side widget UI synchronization",
		Long: `widgets keeps a widget tree per browser client and synchronizes it with:
- ordered, acknowledged update streams
- at-most-once event handling
- watchdog expiry of idle clients
- Prometheus metrics`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the widget sync server",
		Long:  "Serve the demo pages over HTTP and gRPC until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
	return cmd
}

func runServer(ctx context.Context, cfg *Config) error {
	logger, err := newLogger(os.Stderr, cfg.Log.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	sys, err := newSystem(cfg, logger)
	if err != nil {
		return err
	}
	if err := sys.Start(ctx); err != nil {
		sys.Stop()
		return err
	}

	logger.Info("System started successfully", "http", sys.HTTPAddr(), "grpc", sys.GRPCAddr())
	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, stopping gracefully...")
	case serveErr = <-sys.serveErr:
		logger.Error("Transport stopped unexpectedly, shutting down", "error", serveErr)
	}

	sys.Stop()
	logger.Info("System stopped. Goodbye!")
	return serveErr
}

// ============================================================================
// system
// ============================================================================

// system is everything run starts, wired together.
type system struct {
	cfg       *Config
	log       *slog.Logger
	store     *store.Store
	collector *metrics.Collector
	app       *application.Application

	httpLis  net.Listener
	httpSrv  *http.Server
	grpcLis  net.Listener
	grpcSrv  *grpc.Server
	serveErr chan error
}

func newSystem(cfg *Config, logger *slog.Logger) (*system, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storePath := ""
	if cfg.Store.Dir != "" {
		storePath = filepath.Join(cfg.Store.Dir, storeFile)
	}
	st, err := store.Open(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.NewCollector(reg)
	}

	app := application.New(demo.NewCounter(st, logger), application.Config{
		ClientLifetime:   cfg.Client.Lifetime,
		WatchdogInterval: cfg.Watchdog.Interval,
		ReportInterval:   cfg.Watchdog.ReportInterval,
		Logger:           logger,
		Metrics:          collector,
	})
	app.AddPage("/form", demo.Form)

	return &system{
		cfg:       cfg,
		log:       logger,
		store:     st,
		collector: collector,
		app:       app,
		serveErr:  make(chan error, 2),
	}, nil
}

// Start opens the listeners and serves in the background.
func (s *system) Start(ctx context.Context) error {
	dispatcher := server.NewDispatcher(s.app)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.HTTPPort))
	if err != nil {
		return fmt.Errorf("failed to listen on HTTP port %d: %w", s.cfg.Server.HTTPPort, err)
	}
	s.httpLis = lis
	s.httpSrv = &http.Server{
		Handler: server.NewHTTPHandler(dispatcher, server.HTTPConfig{
			Logger:      s.log,
			Metrics:     s.collector,
			MetricsPath: s.cfg.Metrics.Path,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpSrv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", "error", err)
			s.serveErr <- err
		}
	}()

	if s.cfg.Server.GRPCPort >= 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port %d: %w", s.cfg.Server.GRPCPort, err)
		}
		s.grpcLis = lis
		s.grpcSrv = grpc.NewServer()
		server.RegisterSessionServer(s.grpcSrv, server.NewServer(dispatcher, s.log))
		go func() {
			if err := s.grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				s.log.Error("gRPC server failed", "error", err)
				s.serveErr <- err
			}
		}()
	}

	s.app.Start(ctx)
	return nil
}

// Stop shuts the transports down, destroys every client and closes the store.
func (s *system) Stop() {
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.log.Warn("HTTP shutdown incomplete", "error", err)
		}
		cancel()
	}
	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}
	s.app.Shutdown()
	if err := s.store.Close(); err != nil {
		s.log.Warn("Failed to close store", "error", err)
	}
}

func (s *system) HTTPAddr() string {
	if s.httpLis == nil {
		return ""
	}
	return s.httpLis.Addr().String()
}

func (s *system) GRPCAddr() string {
	if s.grpcLis == nil {
		return ""
	}
	return s.grpcLis.Addr().String()
}

// ============================================================================
// status
// ============================================================================

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		Long:  "Display the configuration and probe the server it describes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return showStatus(cmd.OutOrStdout(), cfg, fmt.Sprintf("http://localhost:%d", cfg.Server.HTTPPort))
		},
	}
	return cmd
}

func showStatus(out io.Writer, cfg *Config, baseURL string) error {
	fmt.Fprintln(out, "\n╔═══════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║           widgets System Status                           ║")
	fmt.Fprintln(out, "╚═══════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "📋 Configuration:")
	fmt.Fprintf(out, "  ├─ Config File:      %s\n", configFile)
	fmt.Fprintf(out, "  ├─ HTTP Port:        %d\n", cfg.Server.HTTPPort)
	fmt.Fprintf(out, "  ├─ gRPC Port:        %d\n", cfg.Server.GRPCPort)
	fmt.Fprintf(out, "  ├─ Client Lifetime:  %s\n", cfg.Client.Lifetime)
	fmt.Fprintf(out, "  ├─ Watchdog Every:   %s\n", cfg.Watchdog.Interval)
	fmt.Fprintf(out, "  ├─ Report Every:     %s\n", cfg.Watchdog.ReportInterval)
	fmt.Fprintf(out, "  ├─ Store Directory:  %s\n", cfg.Store.Dir)
	fmt.Fprintf(out, "  └─ Log Level:        %s\n", cfg.Log.Level)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "🩺 Server:")
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		fmt.Fprintf(out, "  └─ Status: ❌ Not reachable at %s (run 'widgets run' to start)\n", baseURL)
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			fmt.Fprintf(out, "  └─ Status: ✅ Healthy at %s\n", baseURL)
		} else {
			fmt.Fprintf(out, "  └─ Status: ⚠️  %s at %s\n", resp.Status, baseURL)
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "📡 Metrics:")
	if cfg.Metrics.Enabled {
		fmt.Fprintf(out, "  └─ Status: ✅ Enabled on %s%s\n", baseURL, cfg.Metrics.Path)
	} else {
		fmt.Fprintln(out, "  └─ Status: ⚠️  Disabled")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
	return nil
}

// ============================================================================
// config & logging
// ============================================================================

func loadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
