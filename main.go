package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"speakerid/ai"
	"speakerid/attribute"
	"speakerid/internal/api"
	"speakerid/internal/config"
	"speakerid/internal/service"
	"speakerid/morph"
	"speakerid/refine"
)

func main() {
	log.Println("speakerid backend starting...")

	cfg := config.Load()
	log.Printf("Model path: %s (backend=%s)", cfg.ModelPath, cfg.Backend)
	log.Printf("Enrollment root: %s", cfg.EnrollDir)

	if _, err := os.Stat(cfg.EnrollDir); err != nil {
		log.Printf("Warning: enrollment root is not accessible: %v", err)
	}

	// Модель загружается до старта listener'а: сервис без модели
	// не должен принимать запросы
	scorer, err := ai.NewManager(ai.ManagerConfig{
		Backend:    ai.BackendType(cfg.Backend),
		ModelPath:  cfg.ModelPath,
		NumThreads: cfg.Threads,
		Provider:   cfg.Provider,
	})
	if err != nil {
		log.Fatalf("Failed to load embedding model: %v", err)
	}
	defer scorer.Close()

	refiner := refine.NewRefiner(morph.NewSuffixTagger(), refine.DefaultConfig())

	attrConfig := attribute.DefaultConfig()
	attrConfig.DefaultThreshold = cfg.Threshold
	attrConfig.TempDir = cfg.TempDir
	if cfg.Workers > 0 {
		attrConfig.Workers = cfg.Workers
	}

	recognition := service.NewRecognitionService(
		refiner,
		scorer,
		attrConfig,
		cfg.EnrollDir,
		cfg.Threshold,
	)

	server := api.NewServer(cfg, recognition)

	// Graceful shutdown по сигналу
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %v, shutting down", sig)
		scorer.Close()
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
