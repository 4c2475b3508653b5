package main

import (
	"log"

	"github.com/hkbharti77/AI-Counsellor/app"
)

func main() {
	if err := app.SetupAndRunServer(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
