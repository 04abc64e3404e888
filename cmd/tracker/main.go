package main

import (
	"log"
	"net/http"

	"github.com/rs/cors"

	"github.com/just-nibble/pr-tracker/internal/config"
	"github.com/just-nibble/pr-tracker/internal/data"
	"github.com/just-nibble/pr-tracker/internal/engine"
	"github.com/just-nibble/pr-tracker/internal/gh"
	"github.com/just-nibble/pr-tracker/internal/routes"
	"github.com/just-nibble/pr-tracker/internal/scoring"
)

func main() {
	// Load configuration from the environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the database
	db := data.InitDB(cfg.Database)
	store := data.NewGormStore(db)

	// Initialize the GitHub client
	client := gh.NewClient(cfg.GitHub.Token)

	// Create the ingestion engine with the event scoring rubric
	eng := engine.New(store, client, scoring.DefaultEventConfig())

	// Set up HTTP routes
	router := routes.NewRouter(eng, client, store)
	handler := cors.Default().Handler(router)

	// Start the HTTP server
	log.Printf("Server is running on port %s", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, handler); err != nil {
		log.Fatalf("Could not start server: %s", err)
	}
}
