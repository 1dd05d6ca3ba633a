package main

import (
	"bank-api/internal/metrics"
	"bank-api/internal/pkg/components"
	"bank-api/internal/pkg/logging"
	"log"
	"time"
)

func main() {
	metrics.SetStartTime(time.Now())

	container, err := components.New()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	logging.Info("Bank API initialized successfully", map[string]interface{}{
		"version": "1.0.0",
		"port":    container.GetConfig().Server.Port,
	})

	if err := container.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
