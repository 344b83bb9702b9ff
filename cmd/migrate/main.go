package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/tidewatch/internal/log"
	"github.com/chrissnell/tidewatch/internal/storage/sqlite"
	"github.com/chrissnell/tidewatch/pkg/migrate"
	_ "modernc.org/sqlite" // SQLite driver
)

func main() {
	var (
		dbPath       = flag.String("db", "", "Path to the tidewatch SQLite state database")
		migrationDir = flag.String("dir", "", "Migration directory (defaults to the built-in schema)")
		command      = flag.String("command", "up", "Migration command: up, version, status")
		helpFlag     = flag.Bool("help", false, "Show help")
	)

	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -db flag is required\n")
		showHelp()
		os.Exit(1)
	}

	if err := log.Init(false); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := sql.Open("sqlite", "file:"+*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	var migrator *migrate.Migrator
	if *migrationDir != "" {
		migrator = migrate.NewMigrator(db, migrate.NewFSProvider(os.DirFS(*migrationDir), sqlite.MigrationTable, "sqlite"))
	} else {
		migrator, err = sqlite.NewMigrator(db)
		if err != nil {
			log.Fatalf("Failed to load built-in migrations: %v", err)
		}
	}

	switch *command {
	case "up":
		err = migrator.MigrateUp(ctx)
	case "version":
		var version int
		version, err = migrator.GetCurrentVersion(ctx)
		if err == nil {
			fmt.Printf("Current version: %d\n", version)
		}
	case "status":
		err = showStatus(ctx, migrator)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

func showStatus(ctx context.Context, m *migrate.Migrator) error {
	version, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return err
	}
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Current version: %d\n", version)
	if len(pending) == 0 {
		fmt.Println("Database is up to date")
		return nil
	}
	fmt.Printf("Pending migrations (%d):\n", len(pending))
	for _, p := range pending {
		fmt.Printf("  %03d %s\n", p.Version, p.Name)
	}
	return nil
}

func showHelp() {
	fmt.Println(`tidewatch SQLite state migration tool

Usage:
  migrate -db <path> [-command up|version|status] [-dir <migrations>]

Examples:
  migrate -db data/tidewatch.db
  migrate -db data/tidewatch.db -command status`)
}
