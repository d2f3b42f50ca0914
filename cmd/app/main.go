package main

import (
	"log"

	"densiview/internal/bootstrap"
	"densiview/internal/logger"
)

func main() {
	logger.Setup()

	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("run app: %v", err)
	}
}
