package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/vrsandeep/antenna-go/internal/api"
	"github.com/vrsandeep/antenna-go/internal/core"
	"github.com/vrsandeep/antenna-go/internal/jobs"
	"github.com/vrsandeep/antenna-go/internal/strm"
)

func main() {
	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// Setup the API server and the domain services it wires together
	server := api.NewServer(app)

	// Sweep finished jobs out of memory periodically
	stopSweeper := make(chan struct{})
	defer close(stopSweeper)
	go app.Jobs.StartSweeper(10*time.Minute, stopSweeper)

	// Watch the movie library for external changes to .strm files
	watcher := strm.NewWatcher(server.StrmService())
	if err := watcher.Start(); err != nil {
		log.Printf("Warning: could not start filesystem watcher: %v", err)
	} else {
		defer watcher.Stop()
	}

	// Periodic EPG guide refresh
	scheduler := jobs.StartScheduler(app, server.EpgService())
	defer scheduler.Stop()

	addr := fmt.Sprintf(":%d", app.Config.Port)
	log.Printf("Starting web server on %s", addr)

	// Start the HTTP server
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
