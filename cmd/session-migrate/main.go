// Package main inspects and migrates the schema of a SQLite session store.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/chrissnell/swimstroke/internal/log"
	"github.com/chrissnell/swimstroke/internal/storage/sqlite"
	"github.com/chrissnell/swimstroke/pkg/migrate"
)

func main() {
	var (
		dbPath        = flag.String("db", "", "Path to the SQLite session database")
		command       = flag.String("command", "status", "Migration command: up, down, to, version, status")
		targetVersion = flag.Int("target", -1, "Target version for down/to commands")
		debug         = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Usage = showHelp
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -db flag is required\n")
		showHelp()
		os.Exit(1)
	}

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	migrator, err := sqlite.Migrator(db, log.Named("migrate"))
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}
	ctx := context.Background()

	switch *command {
	case "up":
		var applied int
		applied, err = migrator.Up(ctx)
		if err == nil && applied == 0 {
			fmt.Println("Schema is already up to date")
			return
		}
	case "down", "to":
		if *targetVersion < 0 {
			fmt.Fprintf(os.Stderr, "Error: -target flag is required for %s command\n", *command)
			os.Exit(1)
		}
		if *command == "down" {
			err = migrator.Down(ctx, *targetVersion)
		} else {
			err = migrator.To(ctx, *targetVersion)
		}
	case "version":
		version, err := migrator.Version(ctx)
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		return
	case "status":
		st, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		showStatus(os.Stdout, st)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}
	fmt.Println("Migration completed successfully")
}

func showStatus(w io.Writer, st migrate.Status) {
	fmt.Fprintf(w, "Current version: %d (latest %d)\n", st.Current, st.Latest)
	for _, a := range st.Applied {
		fmt.Fprintf(w, "  applied  %3d  %-30s %s\n", a.Version, a.Name, a.AppliedAt.Format(time.RFC3339))
	}
	for _, p := range st.Pending {
		fmt.Fprintf(w, "  pending  %3d  %s\n", p.Version, p.Name)
	}
	if st.UpToDate() {
		fmt.Fprintln(w, "Schema is up to date")
	}
}

func showHelp() {
	fmt.Println("Session store migration tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  session-migrate -db sessions.db [-command status|up|down|to|version] [-target N]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Apply all pending migrations")
	fmt.Println("  down               Roll back to target version")
	fmt.Println("  to                 Migrate to specific version (up or down)")
	fmt.Println("  version            Show current migration version")
	fmt.Println("  status             Show migration status (default)")
}
