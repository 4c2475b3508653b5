package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/hkbharti77/AI-Counsellor/app"
	"github.com/hkbharti77/AI-Counsellor/config"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
)

// dispatch runs one outbox sweep outside the API process, e.g. after an
// outage of the task generator. It uses the same code path as the cron job.
func main() {
	purge := flag.Bool("purge", false, "also purge delivered events older than the retention window")
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

	components, err := app.Build(getEnv, zlog)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer components.Close()

	message, err := components.Cron.DispatchSelectionEvents()
	if err != nil {
		zlog.Error("dispatch failed", "error", err)
		return
	}
	fmt.Println(message)

	if *purge {
		message, err := components.Cron.CleanupOldData()
		if err != nil {
			zlog.Error("cleanup failed", "error", err)
			return
		}
		fmt.Println(message)
	}
}
