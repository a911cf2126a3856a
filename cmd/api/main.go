package main

import (
	"flag"
	"log"

	"gormi/adapters/api"
	"gormi/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	server := api.NewServer(api.Config{
		Port:     appConfig.Server.Port,
		Analysis: appConfig.Analysis,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
