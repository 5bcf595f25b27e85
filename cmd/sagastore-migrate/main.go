package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/akriventsev/sagastore/migrations"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	dbURL := flag.String("database-url", "", "PostgreSQL connection string")
	migrationsDir := flag.String("migrations-dir", "", "Path to migrations directory (default: embedded migrations)")
	flag.CommandLine.Parse(os.Args[2:])

	if command == "create" {
		if len(flag.Args()) == 0 {
			fmt.Fprintln(os.Stderr, "Error: migration name is required")
			os.Exit(1)
		}
		dir := *migrationsDir
		if dir == "" {
			dir = "./migrations/sql"
		}
		path, err := migrations.CreateMigration(dir, flag.Args()[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created migration: %s\n", path)
		return
	}

	if *dbURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --database-url is required")
		os.Exit(1)
	}

	if err := migrations.SetDialect("postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	dir := *migrationsDir
	if dir == "" {
		migrations.UseEmbedded()
		dir = migrations.EmbeddedDir
	} else {
		migrations.UseFilesystem()
	}

	db, err := sql.Open("pgx", *dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch command {
	case "up":
		steps := argInt(flag.Args(), 0)
		if err := migrations.RunMigrationsLimited(db, dir, int64(steps)); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		steps := argInt(flag.Args(), 1)
		if err := migrations.RollbackMigrations(db, dir, int64(steps)); err != nil {
			fmt.Fprintf(os.Stderr, "Error rolling back migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Rolled back %d migration(s)\n", steps)
	case "status":
		statuses, err := migrations.GetMigrationStatus(db, dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting status: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migration Status:")
		fmt.Println("================")
		for _, status := range statuses {
			marker := "[PENDING]"
			if status.Status == "applied" {
				marker = "[APPLIED]"
			}
			fmt.Printf("%s %d - %s", marker, status.Version, status.Name)
			if status.AppliedAt != nil {
				fmt.Printf(" (applied at %s)", status.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Println()
		}
	case "version":
		version, err := migrations.GetCurrentVersion(db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting version: %v\n", err)
			os.Exit(1)
		}
		if version == 0 {
			fmt.Println("No migrations applied")
		} else {
			fmt.Println(version)
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func argInt(args []string, fallback int) int {
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			return n
		}
	}
	return fallback
}

func printUsage() {
	fmt.Println("Sagastore Migration Tool")
	fmt.Println()
	fmt.Println("Usage: sagastore-migrate <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up [N]        - Apply all pending migrations (or N migrations)")
	fmt.Println("  down [N]      - Rollback N migrations (default: 1)")
	fmt.Println("  status        - Show status of all migrations")
	fmt.Println("  version       - Show current migration version")
	fmt.Println("  create <name> - Create a new migration file")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --database-url    - PostgreSQL connection string (required)")
	fmt.Println("  --migrations-dir  - Migrations directory (default: embedded)")
	fmt.Println()
}
