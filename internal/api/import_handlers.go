package api

import (
	"net/http"
	"strings"

	"github.com/vrsandeep/antenna-go/internal/m3u"
)

// loadPlaylist resolves the playlist for an import request: either a `url`
// query parameter pointing at a provider, or the raw M3U document as the
// request body.
func (s *Server) loadPlaylist(r *http.Request) (*m3u.Playlist, error) {
	if url := r.URL.Query().Get("url"); url != "" {
		return s.importer.FetchPlaylist(url)
	}
	return s.importer.ParsePlaylist(r.Body)
}

// handleAnalyzeImport previews an import without writing anything.
func (s *Server) handleAnalyzeImport(w http.ResponseWriter, r *http.Request) {
	pl, err := s.loadPlaylist(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to load playlist: "+err.Error())
		return
	}
	analysis, err := s.importer.AnalyzeChannels(pl)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to analyze playlist")
		return
	}
	RespondWithJSON(w, http.StatusOK, analysis)
}

// handleImportChannels starts a channel import job and returns its id.
func (s *Server) handleImportChannels(w http.ResponseWriter, r *http.Request) {
	strategy := strings.ToLower(r.URL.Query().Get("strategy"))
	if strategy == "" {
		strategy = "skip"
	}
	pl, err := s.loadPlaylist(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to load playlist: "+err.Error())
		return
	}
	jobID, err := s.importer.ImportChannelsJob(pl, strategy)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// handleImportMovies starts a movie import job and returns its id.
func (s *Server) handleImportMovies(w http.ResponseWriter, r *http.Request) {
	pl, err := s.loadPlaylist(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to load playlist: "+err.Error())
		return
	}
	jobID, err := s.importer.ImportMoviesJob(pl)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}
