package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"InvestCore/internal/di"
	"InvestCore/pkg/config"
)

func main() {
	// .env is optional, env vars win over YAML either way
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s storage=%s queue=%s instruments=%v",
		cfg.Environment, cfg.Storage.Type, cfg.Queue.Type, cfg.Instruments)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
