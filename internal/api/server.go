// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"database/sql"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vrsandeep/antenna-go/internal/cleanup"
	"github.com/vrsandeep/antenna-go/internal/core"
	"github.com/vrsandeep/antenna-go/internal/epg"
	"github.com/vrsandeep/antenna-go/internal/export"
	"github.com/vrsandeep/antenna-go/internal/importer"
	"github.com/vrsandeep/antenna-go/internal/matching"
	"github.com/vrsandeep/antenna-go/internal/store"
	"github.com/vrsandeep/antenna-go/internal/strm"
)

// Server holds the dependencies for our API.
type Server struct {
	app      *core.App
	db       *sql.DB
	store    *store.Store
	matcher  *matching.Service
	importer *importer.Service
	strm     *strm.Service
	epg      *epg.Service
	export   *export.Service
	cleanup  *cleanup.Service

	exportMu sync.Mutex
}

// NewServer creates a new Server instance and wires the domain services.
func NewServer(app *core.App) *Server {
	st := store.New(app.DB)
	fetchTimeout := time.Duration(app.Config.FetchTimeout) * time.Second
	strmSvc := strm.NewService(st, app.Jobs, app.Config.Movies.Path)
	return &Server{
		app:      app,
		db:       app.DB,
		store:    st,
		matcher:  matching.NewService(st),
		importer: importer.NewService(st, app.Jobs, strmSvc, fetchTimeout),
		strm:     strmSvc,
		epg:      epg.NewService(st, app.Jobs, app.Config.EPG.DataPath, app.Config.EPG.SitesPath, fetchTimeout),
		export:   export.NewService(st, app.Config.Output.Path, app.Config.BaseURL),
		cleanup:  cleanup.NewService(st, strmSvc),
	}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// EpgService returns the guide service, for main to hand to the scheduler.
func (s *Server) EpgService() *epg.Service {
	return s.epg
}

// StrmService returns the STRM service, for main to wire the watcher.
func (s *Server) StrmService() *strm.Service {
	return s.strm
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/health", s.handleHealthCheck)
	r.Get("/api/version", s.handleGetVersion)
	r.Get("/api/stats", s.handleGetStats)

	r.Route("/api", func(r chi.Router) {
		// Group Routes
		r.Get("/groups", s.handleListGroups)
		r.Post("/groups", s.handleCreateGroup)
		r.Put("/groups/{groupID}", s.handleUpdateGroup)
		r.Delete("/groups/{groupID}", s.handleDeleteGroup)
		r.Post("/groups/reorder", s.handleReorderGroups)

		// Channel Routes
		r.Get("/channels", s.handleListChannels)
		r.Delete("/channels", s.handleDeleteAllChannels)
		r.Get("/channels/{channelID}", s.handleGetChannel)
		r.Put("/channels/{channelID}", s.handleUpdateChannel)
		r.Delete("/channels/{channelID}", s.handleDeleteChannel)
		r.Post("/channels/reorder", s.handleReorderChannels)
		r.Post("/channels/{channelID}/mapping", s.handleSetMapping)
		r.Delete("/channels/{channelID}/mapping", s.handleDeleteMapping)
		r.Get("/channels/{channelID}/alternatives", s.handleGetAlternatives)

		// Playlist Import Routes
		r.Post("/import/analyze", s.handleAnalyzeImport)
		r.Post("/import/channels", s.handleImportChannels)
		r.Post("/import/movies", s.handleImportMovies)

		// Movie and STRM Routes
		r.Get("/movies", s.handleListMovies)
		r.Get("/movies/duplicates", s.handleListDuplicateMovies)
		r.Delete("/movies/{movieID}", s.handleDeleteMovie)
		r.Post("/strm/generate", s.handleGenerateStrm)
		r.Post("/strm/delete", s.handleDeleteStrm)
		r.Post("/strm/sync", s.handleSyncStrm)

		// Year Library Routes
		r.Get("/year-libraries", s.handleListYearLibraries)
		r.Post("/year-libraries", s.handleCreateYearLibrary)
		r.Post("/year-libraries/reorder", s.handleReorderYearLibraries)
		r.Put("/year-libraries/{libraryID}", s.handleUpdateYearLibrary)
		r.Delete("/year-libraries/{libraryID}", s.handleDeleteYearLibrary)

		// Cleanup Routes
		r.Get("/cleanup/patterns", s.handleListCleanupPatterns)
		r.Post("/cleanup/patterns", s.handleCreateCleanupPattern)
		r.Put("/cleanup/patterns/{patternID}", s.handleUpdateCleanupPattern)
		r.Delete("/cleanup/patterns/{patternID}", s.handleDeleteCleanupPattern)
		r.Post("/cleanup/analyze", s.handleAnalyzeCleanup)
		r.Post("/cleanup/apply", s.handleApplyCleanup)
		r.Get("/cleanup/history", s.handleListCleanupHistory)
		r.Get("/cleanup/stats", s.handleGetCleanupStats)

		// EPG Source and Matching Routes
		r.Get("/epg/sources", s.handleListEpgSources)
		r.Post("/epg/sources", s.handleCreateEpgSource)
		r.Put("/epg/sources/{sourceID}", s.handleUpdateEpgSource)
		r.Delete("/epg/sources/{sourceID}", s.handleDeleteEpgSource)
		r.Post("/epg/sources/{sourceID}/sync", s.handleSyncEpgSource)
		r.Get("/epg/sources/{sourceID}/channels", s.handleListEpgSourceChannels)
		r.Post("/epg/match/auto", s.handleAutoMatch)
		r.Get("/epg/mappings", s.handleListMappings)
		r.Delete("/epg/mappings", s.handleDeleteAllMappings)
		r.Get("/epg/mappings/stats", s.handleGetMappingStats)
		r.Post("/epg/refresh", s.handleRefreshGuide)
		r.Get("/epg/logs", s.handleListRefreshLogs)

		// Export Routes
		r.Get("/export/stats", s.handleGetExportStats)
		r.Get("/export/preview", s.handleGetExportPreview)
		r.Post("/export/generate", s.handleGenerateExport)

		// Job Routes
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Post("/jobs/{jobID}/cancel", s.handleCancelJob)

		// Settings Routes
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
	})

	// Generated artifacts served to players.
	r.Get("/export/playlist.m3u", s.handleServePlaylist)
	r.Get("/epg/guide.xml", s.handleServeGuide)
	r.Get("/epg/channels.xml", s.handleServeChannelsXML)

	// WebSocket for job progress updates.
	r.Get("/ws/progress", s.app.WsHub.ServeWs)

	return r
}

// regenerateExport rewrites the export playlist after a mutation that changes
// it, before the response goes out. Concurrent mutations serialize on
// exportMu so two handlers never write the file at once. Failures are logged,
// not surfaced: the mutating request already succeeded.
func (s *Server) regenerateExport() {
	s.exportMu.Lock()
	defer s.exportMu.Unlock()
	if err := s.export.Generate(); err != nil {
		log.Printf("Failed to regenerate export playlist: %v", err)
	}
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetStats returns the dashboard summary.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	totalChannels, exported, err := s.store.CountChannels()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to count channels")
		return
	}
	totalMovies, materialized, err := s.store.CountMovies()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to count movies")
		return
	}
	mappingStats, err := s.store.GetMappingStats()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to compute mapping stats")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"channels": map[string]int{
			"total":    totalChannels,
			"exported": exported,
		},
		"movies": map[string]int{
			"total":        totalMovies,
			"materialized": materialized,
		},
		"mappings": mappingStats,
	})
}
