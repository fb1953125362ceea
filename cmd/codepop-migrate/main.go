package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/akriventsev/codepop/internal/migrations"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	dbURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "Database connection string (postgres://)")
	migrationsDir := flag.String("migrations-dir", "./migrations", "Path to migrations directory")
	flag.CommandLine.Parse(os.Args[2:])

	if *dbURL == "" {
		fmt.Fprintf(os.Stderr, "Error: --database-url or DATABASE_URL is required\n")
		os.Exit(1)
	}

	db, err := sql.Open("pgx", *dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.SetDialect("postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case "up":
		if err := migrations.RunMigrations(db, *migrationsDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error applying migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := migrations.RollbackMigration(db, *migrationsDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error rolling back migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Rolled back 1 migration")
	case "version":
		version, err := migrations.GetCurrentVersion(db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting version: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(version)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Codepop Migration Tool")
	fmt.Println()
	fmt.Println("Usage: codepop-migrate <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up      - Apply all pending migrations")
	fmt.Println("  down    - Rollback the last migration")
	fmt.Println("  version - Show current migration version")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --database-url    - Database connection string (default: $DATABASE_URL)")
	fmt.Println("  --migrations-dir  - Path to migrations directory (default: ./migrations)")
}
