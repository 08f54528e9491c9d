// The central application struct, holding shared resources like the database
// handle, configuration and the background job queue. It is passed to the
// subsystems that need them.

package core

import (
	"database/sql"
	"fmt"

	antenna "github.com/vrsandeep/antenna-go"
	"github.com/vrsandeep/antenna-go/internal/config"
	"github.com/vrsandeep/antenna-go/internal/db"
	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/websocket"
)

const Version = "1.0.0"

// App holds the application's shared, long-lived resources.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	WsHub   *websocket.Hub
	Jobs    *jobqueue.Queue
	Version string
}

// New loads configuration, opens the database, applies migrations and wires
// the shared services.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	if err := db.RunMigrations(database, antenna.MigrationsFS); err != nil {
		database.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	return &App{
		Config:  cfg,
		DB:      database,
		WsHub:   hub,
		Jobs:    jobqueue.New(hub),
		Version: Version,
	}, nil
}

// Close releases the application's resources.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
