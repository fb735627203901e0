package main

import (
	"context"
	"fmt"
	"log"
	"messenger/infrastructure/storage"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
)

// ViewerConfig only needs the database path, unlike the server config.
type ViewerConfig struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081"`
}

func main() {
	_ = godotenv.Load()
	var config ViewerConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard lets the viewer open the store while the server holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Viewer started at http://localhost:%d/inspect (read-only)\n", config.DebugPort)
	database.StartDebugServer(db, config.DebugPort, "/inspect", storage.InspectMapper)
	<-ctx.Done()
}
