package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/google/shlex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesm/queryview/internal/config"
	"github.com/wesm/queryview/internal/metrics"
	"github.com/wesm/queryview/internal/server"
	"github.com/wesm/queryview/internal/source"
	"github.com/wesm/queryview/internal/viewcache"
	"github.com/wesm/queryview/internal/watch"
)

const (
	browserPollInterval = 100 * time.Millisecond
	browserPollAttempts = 60
	shutdownTimeout     = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard server (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}
	config.RegisterServeFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	e, err := setup(cmd, m)
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx, stop := signal.NotifyContext(
		cmd.Context(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	// A failed first load still serves; the page reports no
	// data and the reload button or watcher can recover.
	if _, err := e.load(ctx); err != nil {
		e.log.Error("initial load failed", zap.Error(err))
	}

	cache := viewcache.New(e.cfg.CacheSize, m)
	reload := func() {
		if _, err := e.store.Reload(ctx); err == nil {
			cache.Invalidate()
		}
	}

	stopWatcher := startFileWatcher(e, reload)
	defer stopWatcher()
	if e.cfg.RefreshInterval > 0 {
		go startPeriodicRefresh(ctx, e.cfg.RefreshInterval, e.log, reload)
	}

	cfg := e.cfg
	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		e.log.Info("port in use, picking another",
			zap.Int("requested", cfg.Port), zap.Int("port", port))
	}
	cfg.Port = port

	srv, err := server.New(cfg, e.store, cache,
		server.WithLogger(e.log),
		server.WithGatherer(reg),
		server.WithVersion(server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		}),
	)
	if err != nil {
		return err
	}

	url := "http://" + cfg.Host + ":" + strconv.Itoa(cfg.Port)
	fmt.Fprintf(cmd.OutOrStdout(), "queryview %s listening at %s\n", version, url)
	if !cfg.NoBrowser {
		go openBrowser(url, cfg.BrowserCmd, e.log)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		e.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// startFileWatcher reloads when the data file changes. Only file
// sources are watched; a missing watcher is not fatal.
func startFileWatcher(e *env, reload func()) func() {
	if !e.cfg.Watch || e.cfg.Source == source.KindSnowflake {
		return func() {}
	}
	w, err := watch.New(e.cfg.DataPath, watch.DefaultDebounce, e.log, reload)
	if err != nil {
		e.log.Warn("file watcher unavailable", zap.Error(err))
		return func() {}
	}
	w.Start()
	return w.Stop
}

func startPeriodicRefresh(
	ctx context.Context, every time.Duration,
	log *zap.Logger, reload func(),
) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info("running scheduled reload")
			reload()
		}
	}
}

// browserCommand returns the command that opens url. browserCmd,
// when set, is split shell-style and url is appended.
func browserCommand(url, browserCmd string) (*exec.Cmd, error) {
	if browserCmd != "" {
		args, err := shlex.Split(browserCmd)
		if err != nil {
			return nil, fmt.Errorf("parsing browser_cmd: %w", err)
		}
		if len(args) == 0 {
			return nil, errors.New("browser_cmd is empty")
		}
		return exec.Command(args[0], append(args[1:], url)...), nil
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32",
			"url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("no browser opener for %s", runtime.GOOS)
	}
}

func openBrowser(url, browserCmd string, log *zap.Logger) {
	for range browserPollAttempts {
		time.Sleep(browserPollInterval)
		resp, err := http.Get(url + "/api/v1/version")
		if err == nil {
			resp.Body.Close()
			break
		}
	}
	cmd, err := browserCommand(url, browserCmd)
	if err != nil {
		log.Warn("not opening browser", zap.Error(err))
		return
	}
	if err := cmd.Run(); err != nil {
		log.Warn("opening browser", zap.Error(err))
	}
}
