package main

import (
	"flag"
	"log"

	"github.com/hkbharti77/AI-Counsellor/config"
	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"gorm.io/gorm/schema"
)

// seed migrates the schema and loads the sample university catalog.
// With -migrate-only it stops after the migration.
func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply migrations without seeding the catalog")
	flag.Parse()

	if err := config.LoadENV(); err != nil {
		log.Println("Warning: .env file could not be loaded, using system environment variables")
	}

	getEnv, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(getEnv.LOG_MODE)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	store, err := database.StartGORM()
	if err != nil {
		zlog.Fatal("failed to connect to database", "host", getEnv.DB_HOST, "error", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		zlog.Fatal("failed to run migrations", "error", err)
	}

	tables := make([]string, 0, len(database.Models()))
	for _, m := range database.Models() {
		if t, ok := m.(schema.Tabler); ok {
			tables = append(tables, t.TableName())
		}
	}
	zlog.Info("migrations applied", "tables", tables)

	if *migrateOnly {
		return
	}

	if err := database.RunSeeds(store.GetDB()); err != nil {
		zlog.Fatal("seeding failed", "error", err)
	}
	zlog.Info("seeding completed", "universities", len(database.SampleUniversities()))
}
