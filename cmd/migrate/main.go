package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"echolink/config"
	"echolink/internal/domain/call"
	"echolink/internal/domain/user"
	"echolink/pkg/database"
)

const usage = `
EchoLink - Database CLI Tool

Usage:
  migrate [command] [flags]

Commands:
  up          Run all migrations (SQL + GORM)
  status      Show database connection status
  reset       Drop all tables and re-run migrations (DANGEROUS)

Flags:
  -migrations string   Path to migrations directory (default "migrations")

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go reset
`

var tables = []interface{}{
	&user.User{},
	&call.Call{},
	&call.CallParticipant{},
}

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	database.Connect(cfg)

	switch command {
	case "up":
		migrateUp(*migrationsDir)
	case "status":
		status()
	case "reset":
		reset(*migrationsDir)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func migrateUp(migrationsDir string) {
	if err := database.ApplyRawMigrations(migrationsDir); err != nil {
		log.Fatalf("Failed to apply raw migrations: %v", err)
	}
	if err := database.DB.AutoMigrate(tables...); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}
	if err := database.ApplyRawMigrations(migrationsDir + "/post"); err != nil {
		log.Fatalf("Failed to apply index migrations: %v", err)
	}
	log.Println("Migrations applied")
}

func status() {
	if err := database.HealthCheck(); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}
	for _, table := range tables {
		exists := database.DB.Migrator().HasTable(table)
		fmt.Printf("%T: exists=%v\n", table, exists)
	}
}

func reset(migrationsDir string) {
	log.Println("Dropping all tables...")
	if err := database.DB.Migrator().DropTable(tables...); err != nil {
		log.Fatalf("Failed to drop tables: %v", err)
	}
	migrateUp(migrationsDir)
}
