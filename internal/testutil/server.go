// A shared test server setup utility, which simplifies all API tests.

package testutil

import (
	"database/sql"
	"testing"

	"github.com/vrsandeep/antenna-go/internal/api"
	"github.com/vrsandeep/antenna-go/internal/config"
	"github.com/vrsandeep/antenna-go/internal/core"
	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/websocket"
)

// SetupTestApp builds a core.App over an in-memory database. Output paths
// point into a per-test temporary directory.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	db := SetupTestDB(t)

	tmp := t.TempDir()
	cfg := &config.Config{}
	cfg.Output.Path = tmp
	cfg.Movies.Path = tmp
	cfg.EPG.DataPath = tmp
	cfg.EPG.SitesPath = tmp

	hub := websocket.NewHub()
	go hub.Run()

	return &core.App{
		Config:  cfg,
		DB:      db,
		WsHub:   hub,
		Jobs:    jobqueue.New(hub),
		Version: "test",
	}
}

// SetupTestServer initializes a full core.App and api.Server for integration
// testing.
func SetupTestServer(t *testing.T) (*api.Server, *sql.DB) {
	t.Helper()
	app := SetupTestApp(t)
	return api.NewServer(app), app.DB
}
