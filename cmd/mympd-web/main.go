package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/mympd-webserver/internal/config"
	"github.com/rickgao/mympd-webserver/internal/connection"
	"github.com/rickgao/mympd-webserver/internal/database"
	"github.com/rickgao/mympd-webserver/internal/dispatcher"
	"github.com/rickgao/mympd-webserver/internal/journal"
	"github.com/rickgao/mympd-webserver/internal/model"
	"github.com/rickgao/mympd-webserver/internal/queue"
	"github.com/rickgao/mympd-webserver/internal/router"
	"github.com/rickgao/mympd-webserver/internal/server"
	"github.com/rickgao/mympd-webserver/internal/sweeper"
	"github.com/rickgao/mympd-webserver/internal/version"
	"github.com/rickgao/mympd-webserver/internal/webconf"
	"github.com/rickgao/mympd-webserver/internal/worker"
)

func main() {
	configPath := flag.String("config", "configs/mympd-web.local.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting mympd-web",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("mympd-web failed", "error", err)
		os.Exit(1)
	}
	logger.Info("mympd-web stopped")
}

func run(cfg *config.ServerConfig, logger *slog.Logger) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	var recorder journal.Recorder = journal.Nop{}
	if cfg.Journal.Enabled {
		writer, closeDB, err := startJournal(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeDB()
		defer stopWithTimeout(cfg, writer.Stop)
		recorder = writer
	}

	// Queues
	queues := router.NewQueues()
	responses := queue.New[model.WorkResult]()
	// Deferred first so they close after every consumer has stopped.
	defer responses.Close()
	defer queues.Close()

	// Connection Registry
	registry := connection.NewRegistry(connection.RegistryConfig{MaxID: cfg.Identity.MaxConnID}, logger)

	// Network-owned settings
	var dirs webconf.EmptyDirs
	if !cfg.Web.ReadOnly {
		dirs = webconf.FSEmptyDirs{Root: filepath.Join(cfg.Web.VarLibDir, "empty")}
	}
	settings := webconf.NewStore(webconf.Options{
		VarLibDir:      cfg.Web.VarLibDir,
		Publish:        cfg.Web.Publish,
		Smartpls:       cfg.Web.Smartpls,
		ReadOnly:       cfg.Web.ReadOnly,
		CoverImageName: cfg.Web.CoverImageName,
	}, dirs, logger)

	// Command Router
	rt := router.NewRouter(router.RouterConfig{
		MaxRequestSize:       cfg.Web.MaxRequestSize,
		MaxScriptRequestSize: cfg.Web.MaxScriptRequestSize,
	}, queues, recorder, logger)

	// Response Dispatcher
	disp := dispatcher.NewDispatcher(dispatcher.Config{
		PollTimeout:  cfg.Queues.PollTimeout,
		NotifyWindow: cfg.Dispatcher.NotifyWindow,
	}, responses, registry, settings, recorder, logger)

	// Workers
	api := worker.NewMux()
	api.RegisterFunc("MYMPD_API_PING", worker.Ping)

	pool := worker.NewPool(responses, logger)
	if err := assignWorkers(pool, cfg.Workers, queues, api); err != nil {
		return err
	}

	// Expiry sweeper
	sweep := sweeper.New(sweeper.Config{
		Interval: cfg.Queues.ExpireInterval,
		MaxAge:   cfg.Queues.ExpireMaxAge,
	}, recorder, logger)
	sweep.Add("api", queues.API)
	sweep.Add("worker", queues.Worker)
	sweep.Add("client", queues.Client)
	sweep.Add("response", responses)

	if err := disp.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}
	defer stopWithTimeout(cfg, disp.Stop)

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	defer stopWithTimeout(cfg, pool.Stop)

	if err := sweep.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer stopWithTimeout(cfg, sweep.Stop)

	if err := publishInitialSettings(pool, cfg.Web); err != nil {
		logger.Warn("failed to publish initial settings", "error", err)
	}

	srv := server.New(server.Config{
		ReplyTimeout:         cfg.HTTP.ReplyTimeout,
		ACL:                  cfg.ACL.ACL,
		ScriptACL:            cfg.ACL.ScriptACL,
		RemoteScripting:      cfg.ACL.RemoteScripting,
		MaxRequestSize:       int64(cfg.Web.MaxRequestSize),
		MaxScriptRequestSize: int64(cfg.Web.MaxScriptRequestSize),
		Session: connection.SessionConfig{
			WriteTimeout:   cfg.WebSocket.WriteTimeout,
			PingInterval:   cfg.WebSocket.PingInterval,
			PongTimeout:    cfg.WebSocket.PongTimeout,
			SendBufferSize: cfg.WebSocket.SendBufferSize,
			ReadLimit:      connection.DefaultSessionConfig().ReadLimit,
		},
	}, rt, registry, settings, logger)

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("mympd-web running",
		"addr", httpServer.Addr,
		"publish", cfg.Web.Publish,
		"remote_scripting", cfg.ACL.RemoteScripting,
		"journal", cfg.Journal.Enabled,
	)

	return g.Wait()
}

// startJournal connects to the database and starts the journal writer.
func startJournal(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (*journal.Writer, func(), error) {
	db := cfg.Journal.Database
	logger.Info("connecting to journal database",
		"host", db.Host,
		"port", db.Port,
		"database", db.Name,
	)

	pool, err := database.Connect(ctx, db)
	if err != nil {
		return nil, nil, fmt.Errorf("connect journal database: %w", err)
	}
	if err := journal.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	writer := journal.NewWriter(journal.WriterConfig{
		InstanceID:    cfg.Instance.ID,
		BatchSize:     cfg.Journal.BatchSize,
		FlushInterval: cfg.Journal.FlushInterval,
	}, pool, logger)
	if err := writer.Start(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("start journal writer: %w", err)
	}

	logger.Info("journal enabled")
	return writer, pool.Close, nil
}

func assignWorkers(pool *worker.Pool, counts config.WorkersConfig, queues router.Queues, api *worker.Mux) error {
	if err := pool.Assign("api", queues.API, api, counts.API); err != nil {
		return err
	}
	if err := pool.Assign("worker", queues.Worker, worker.NewMux(), counts.Worker); err != nil {
		return err
	}
	return pool.Assign("client", queues.Client, worker.NewMux(), counts.Client)
}

// publishInitialSettings seeds the network-owned settings until the backend sends its own.
func publishInitialSettings(pool *worker.Pool, web config.WebConfig) error {
	data, err := json.Marshal(map[string]any{
		"playlistDirectory": "",
		"musicDirectory":    "",
		"coverimageName":    web.CoverImageName,
		"featLibrary":       false,
		"featMpdAlbumart":   false,
	})
	if err != nil {
		return err
	}
	return pool.Publish(model.ConnInternal, "settings", data)
}

func stopWithTimeout(cfg *config.ServerConfig, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	stop(ctx)
}
