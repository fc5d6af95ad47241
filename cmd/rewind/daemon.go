package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rewindhq/rewind/internal/browser"
	"github.com/rewindhq/rewind/internal/config"
	"github.com/rewindhq/rewind/internal/controlplane"
	"github.com/rewindhq/rewind/internal/coordinator"
	"github.com/rewindhq/rewind/internal/notify"
	"github.com/rewindhq/rewind/internal/store"
	"github.com/rewindhq/rewind/internal/update"
)

var (
	configPath string
	listenAddr string
	dbPath     string
	headful    bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the Rewind daemon",
	Long:  `Starts the Rewind daemon: the HTTP API, the schedule timers, and the browser session tasks replay into.`,
	RunE:  runDaemon,
}

func defaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".rewind", "rewind.yaml")
}

func init() {
	daemonCmd.Flags().StringVar(&configPath, "config", defaultConfigPath(), "Path to YAML config file")
	daemonCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	daemonCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	daemonCmd.Flags().BoolVar(&headful, "headful", false, "Run Chrome with a visible window")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if headful {
		cfg.Headless = false
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting daemon",
		zap.String("version", update.Version),
		zap.String("listen", cfg.Listen),
		zap.String("db", cfg.DBPath))

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	s, err := store.New(cfg.DBPath, cfg.MaxLogs)
	if err != nil {
		return err
	}

	session, err := browser.NewSession(browser.Config{
		Headless: cfg.Headless,
		ExecPath: cfg.BrowserPath,
	}, logger)
	if err != nil {
		s.Close()
		return err
	}

	var notifier notify.Notifier
	if cfg.DesktopNotifications {
		notifier = notify.NewDesktop(logger)
	} else {
		notifier = notify.NewLog(logger)
	}

	coord := coordinator.New(s, pageOpener{session}, notifier, coordinatorConfig(cfg), logger)
	service := controlplane.NewService(s, coord, logger)
	server := controlplane.NewServer(service, cfg.Listen, logger)

	if err := service.ResumeSchedules(); err != nil {
		logger.Warn("schedule resume failed", zap.Error(err))
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			service.Close()
			session.Close()
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	service.Close()
	session.Close()
	if err := s.Close(); err != nil {
		logger.Warn("database close error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// pageOpener narrows *browser.Session to the coordinator's Browser interface.
type pageOpener struct {
	session *browser.Session
}

func (o pageOpener) OpenAndActivate(ctx context.Context, url string) (coordinator.PageSession, error) {
	return o.session.OpenAndActivate(ctx, url)
}

func coordinatorConfig(cfg *config.Config) coordinator.Config {
	c := coordinator.DefaultConfig()
	if cfg.StepTimeoutMs > 0 {
		c.Replay.StepTimeout = time.Duration(cfg.StepTimeoutMs) * time.Millisecond
	}
	if cfg.StepDelayMs > 0 {
		c.Replay.StepDelay = time.Duration(cfg.StepDelayMs) * time.Millisecond
	}
	if cfg.PageLoadTimeoutMs > 0 {
		c.PageLoadTimeout = time.Duration(cfg.PageLoadTimeoutMs) * time.Millisecond
	}
	return c
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
