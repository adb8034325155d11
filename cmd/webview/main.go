package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/webview/internal/bridge"
	"github.com/standardbeagle/webview/internal/config"
	"github.com/standardbeagle/webview/internal/host"
	"github.com/standardbeagle/webview/internal/logging"
	"github.com/standardbeagle/webview/internal/store"
	"github.com/standardbeagle/webview/internal/tui"
	"github.com/standardbeagle/webview/internal/userdata"
	"github.com/standardbeagle/webview/pkg/ports"
)

var (
	// Version is set at build time
	Version = "dev"

	configPath   string
	userID       string
	username     string
	logLevel     string
	dataDir      string
	hostURL      string
	demoMode     bool
	showVersion  bool
	showSettings bool

	listenAddr   string
	portFallback bool
)

var rootCmd = &cobra.Command{
	Use:   "webview",
	Short: "A terminal user data screen driven over a message bridge",
	Long: `webview renders the user data screen in the terminal. The screen talks to a
host over a message bridge: it asks for the session user's profiles, shows them,
and sends back edits to the favorite color.

Basic Usage:
  webview                       # Connect to the host at ws://127.0.0.1:7788/bridge
  webview --demo                # Run with an in-process host and local storage
  webview --url ws://host/bridge --user t2_abc
  webview host                  # Run the development host
  webview --settings            # Show effective configuration and its sources

Keys:
  f                             # Fetch user info
  e / tab                       # Edit favorite color
  enter                         # Save while editing
  s                             # Save
  q                             # Quit`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runApp,
}

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the development host that answers bridge requests",
	Long: `The development host accepts bridge connections on /bridge, answers fetch and
save requests from local storage, and reports liveness on /health.`,
	Args: cobra.NoArgs,
	RunE: runHost,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Read settings from this file only")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "Session user id")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Session username")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding stored profiles")

	rootCmd.Flags().StringVar(&hostURL, "url", "", "Bridge URL of the host")
	rootCmd.Flags().BoolVar(&demoMode, "demo", false, "Use an in-process host instead of connecting")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	rootCmd.Flags().BoolVar(&showSettings, "settings", false, "Show current configuration settings with sources")

	hostCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Address the host listens on")
	hostCmd.Flags().BoolVar(&portFallback, "port-fallback", false, "Pick a nearby free port when the listen port is taken")

	rootCmd.AddCommand(hostCmd)
	rootCmd.Version = Version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if showVersion {
		fmt.Fprintf(out, "webview version %s\n", Version)
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if showSettings {
		fmt.Fprint(out, cfg.DisplaySettings())
		return nil
	}

	// The TUI owns the terminal, so logs go to the rotating file.
	logger, closer, err := logging.New(logging.Options{
		File:  cfg.GetLogFile(),
		Level: cfg.GetLogLevel(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, cleanup, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	model := tui.NewModel(client, cfg.Session(), tui.WithLogger(logger), tui.WithContext(ctx))
	defer model.Close()

	sigChan := make(chan os.Signal, 1)
	setupSignalHandling(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen())

	// Run TUI in goroutine so we can handle signals
	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
	case <-sigChan:
		logger.Info("received signal, shutting down")
		p.Quit()
		<-done
	}
	return nil
}

// connect returns the bridge the screen talks through and a cleanup func.
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (bridge.Client, func(), error) {
	session := cfg.Session()

	if demoMode {
		handler, err := newHandler(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		loopback := bridge.NewLoopback(session, handler,
			bridge.WithAsyncDelivery(),
			bridge.WithLoopbackLogger(logger),
		)
		logger.Info("running with in-process host", "user", session.UserID, "data_dir", cfg.GetDataDir())
		return loopback, func() { loopback.Close() }, nil
	}

	client, err := bridge.Dial(ctx, cfg.GetHostURL(), session, bridge.WithWSLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return client, func() { client.Close() }, nil
}

// newHandler wires the profile store and identity directory behind a host
// handler. The store watches its directory until ctx is done.
func newHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*host.Handler, error) {
	st, err := store.NewFileStore(cfg.GetDataDir(), store.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := st.Watch(ctx, func(userID string) {
		logger.Debug("stored profile changed", "user", userID)
	}); err != nil {
		logger.Warn("profile changes on disk will not be picked up", "error", err)
	}

	directory := host.NewDirectory(cfg.RemoteProfiles()...)
	session := cfg.Session()
	if _, ok := directory.Lookup(session.UserID); !ok && session.Username != "" {
		directory.Register(userdata.RemoteProfile{Username: session.Username, UserID: session.UserID})
	}
	return host.NewHandler(st, directory, logger), nil
}

func runHost(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		File:  hostLogFile(cfg),
		Level: cfg.GetLogLevel(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closer.Close()

	addr := cfg.GetListenAddr()
	if portFallback {
		resolved, err := ports.Resolve(addr, ports.DefaultSpan)
		if err != nil {
			return err
		}
		if resolved != addr {
			logger.Warn("listen address in use, using another port", "requested", addr, "addr", resolved)
		}
		addr = resolved
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler, err := newHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	server := host.NewServer(addr, handler, nil, logger)
	if err := server.Start(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "webview host listening on ws://%s/bridge\n", server.Addr())

	sigChan := make(chan os.Signal, 1)
	setupSignalHandling(sigChan)
	<-sigChan

	logger.Info("shutting down host")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Stop(shutdownCtx)
}

// hostLogFile keeps host logs on stderr unless a file is configured.
func hostLogFile(cfg *config.Config) string {
	if cfg.LogFile == nil {
		return ""
	}
	return *cfg.LogFile
}

// loadConfig reads the config chain, or only --config when given, and lays
// explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	applyFlags(cmd, cfg)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string, dst **string, value string) {
		if flags.Changed(name) {
			*dst = &value
		}
	}

	set("user", &cfg.UserID, userID)
	set("username", &cfg.Username, username)
	set("log-level", &cfg.LogLevel, logLevel)
	set("data-dir", &cfg.DataDir, dataDir)
	set("url", &cfg.HostURL, hostURL)
	set("listen", &cfg.ListenAddr, listenAddr)
}
