package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/AAreesha/Cross-Reference-Database-System/internal/database"
	"github.com/AAreesha/Cross-Reference-Database-System/internal/migration"
)

// =============================================================================
// Database Migration Commands
// =============================================================================

// runMigrate handles the migrate command and its subcommands
func runMigrate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printMigrateUsage(stderr)
		return errUsage
	}

	action := args[0]
	switch action {
	case "help", "-h", "--help":
		printMigrateUsage(stdout)
		return nil
	case "up", "down", "steps", "force", "version", "status":
	default:
		fmt.Fprintf(stderr, "Unknown migrate subcommand: %s\n", action)
		printMigrateUsage(stderr)
		return errUsage
	}

	fs, configPath := newFlagSet("migrate "+action, stderr)
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")

	// steps/force 的数字参数可能是负数，需在解析 flag 前取出
	rest := args[1:]
	var positional []string
	if len(rest) > 0 && (action == "steps" || action == "force") {
		if _, err := strconv.Atoi(rest[0]); err == nil {
			positional, rest = rest[:1], rest[1:]
		}
	}
	if err := fs.Parse(rest); err != nil {
		return err
	}
	positional = append(positional, fs.Args()...)

	migrator, err := createMigrator(*configPath, *dbType, *dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	return migration.NewCLI(migrator, stdout).Run(ctx, action, positional...)
}

// createMigrator 命令行参数优先，其余取自配置文件与环境变量
func createMigrator(configPath, dbType, dbURL string) (*migration.DefaultMigrator, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if cfg.Database.Driver == "memory" {
		return nil, fmt.Errorf("the memory driver has no schema to migrate")
	}

	logger := initLogger(cfg.Log)
	return migration.NewMigratorFromDatabaseConfig(database.ConfigFrom(cfg.Database), logger)
}

// printMigrateUsage prints the usage information for migrate command
func printMigrateUsage(w io.Writer) {
	fmt.Fprintln(w, `Database Migration Commands

Usage:
  crossref migrate <subcommand> [options] [args]

Subcommands:
  up          Apply all pending migrations
  down        Rollback the last migration
  steps <n>   Apply (n > 0) or rollback (n < 0) n migrations
  force <v>   Force set migration version (use with caution)
  version     Show current migration version
  status      Show migration status
  help        Show this help message

Options:
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  crossref migrate up
  crossref migrate up --config /etc/crossref/crossref.yaml
  crossref migrate steps -1
  crossref migrate status --db-type sqlite --db-url ./crossref.db`)
}
