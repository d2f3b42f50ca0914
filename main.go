package main

import (
	"embed"
	"log"

	"densiview/internal/bootstrap"
	"densiview/internal/logger"
)

//go:embed all:frontend
var appAssets embed.FS

func main() {
	logger.Setup()

	app, err := bootstrap.NewWithAssets(appAssets)
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
