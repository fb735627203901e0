package main

import (
	"context"
	"fmt"
	"log/slog"
	"messenger/auth"
	"messenger/errors"
	"messenger/infrastructure/blob"
	"messenger/infrastructure/grpcapi"
	"messenger/infrastructure/httpapi"
	"messenger/infrastructure/storage"
	"messenger/infrastructure/ws"
	"messenger/internal"
	"messenger/observability"
	"messenger/runtime"
	"messenger/runtime/workers"
	"messenger/services"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const (
	debugPort       = 8081
	debugEndpoint   = "/inspect"
	shutdownTimeout = 10 * time.Second
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Messenger terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, serves until a signal or a failure, then shuts
// down in reverse order. Returning instead of exiting lets the defers run.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig(".env")
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		url := fmt.Sprintf("http://localhost:%d%s", debugPort, debugEndpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(db, debugPort, debugEndpoint, storage.InspectMapper)
	}

	// 3. Repositories
	userRepository := storage.NewUserRepository(db)
	messageRepository, err := storage.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = messageRepository.Close() }()
	groupRepository, err := storage.NewGroupRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = groupRepository.Close() }()
	friendRepository, err := storage.NewFriendRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = friendRepository.Close() }()

	if config.DirectorySeedFile != "" {
		if _, err := storage.SeedDirectoryFromFile(ctx, userRepository, config.DirectorySeedFile, logger); err != nil {
			return exitConfig, fmt.Errorf("directory seed failed: %w", err)
		}
	}

	// 4. Core: sessions, dispatcher and services
	stats := observability.NewDeliveryStats()
	sessions := runtime.NewSessionRegistry()
	supervisor := workers.NewSupervisor(logger, config.RestartInterval).
		OnRestart(func(string) { stats.IncrWorkerRestarted() })
	messages := services.NewMessageStore(logger, userRepository, messageRepository, config.HistoryLimit)
	dispatcher := runtime.NewDispatcher(logger, supervisor, sessions, groupRepository, userRepository,
		messages, stats, config.NumberOfWorkers, config.BufferSize, config.SinkTimeout)
	groups := services.NewGroupRegistry(logger, userRepository, groupRepository, dispatcher)
	friends := services.NewFriendGraph(logger, userRepository, friendRepository)
	conversations := services.NewConversationIndex(userRepository, messageRepository, groupRepository)

	// 5. Blob storage
	deps := httpapi.Deps{
		Log:            logger,
		Issuer:         auth.NewTokenIssuer(config.JWTSecret),
		Directory:      userRepository,
		Friends:        friends,
		Groups:         groups,
		Messages:       messages,
		Conversations:  conversations,
		Dispatcher:     dispatcher,
		MaxUploadBytes: config.MaxUploadBytes,
	}
	switch config.Backend() {
	case internal.BlobMinio:
		store, err := blob.NewMinioStore(ctx, logger, config.MinioEndpoint, config.MinioAccessKey,
			config.MinioSecretKey, config.MinioBucket, config.MinioUseSSL, config.MaxUploadBytes)
		if err != nil {
			return exitRuntime, fmt.Errorf("minio init failed: %w", err)
		}
		deps.Blobs = store
	default:
		store, err := blob.NewDiskStore(logger, config.UploadDir, config.MaxUploadBytes)
		if err != nil {
			return exitRuntime, fmt.Errorf("upload dir init failed: %w", err)
		}
		deps.Blobs = store
		deps.Uploads = store.Handler()
	}

	// 6. Edges: websocket, HTTP, gRPC
	gateway := ws.NewGateway(logger, sessions, config.ConnectionBufferSize)
	deps.Websocket = gateway
	deps.Stats = func() observability.StatsSnapshot {
		return stats.Snapshot(gateway.Open(), dispatcher.QueueSize(), dispatcher.QueueCapacity())
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", config.HTTPPort),
		Handler:           httpapi.NewServer(deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcAddress := fmt.Sprintf("0.0.0.0:%d", config.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	grpcServer := grpcapi.NewServer(logger, deps.Issuer, sessions, dispatcher, config.ConnectionBufferSize)

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := dispatcher.Start(gctx); err != nil {
			return fmt.Errorf("dispatcher error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Serve(listener); err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})
	// 8. Wait for Stop or Error, then drain the edges before the core
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP shutdown incomplete", "error", err)
		}
		gateway.Shutdown()
		grpcServer.Stop(shutdownTimeout)
		dispatcher.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
