package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetExportStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.export.GetStats()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to compute export stats")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetExportPreview(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 25
	}
	entries, err := s.export.Preview(limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to build preview")
		return
	}
	RespondWithJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGenerateExport(w http.ResponseWriter, r *http.Request) {
	if err := s.export.Generate(); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate playlist: "+err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "generated", "path": s.export.PlaylistPath()})
}

// handleServePlaylist serves the exported M3U, generating it on first request.
func (s *Server) handleServePlaylist(w http.ResponseWriter, r *http.Request) {
	path := s.export.PlaylistPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.export.Generate(); err != nil {
			RespondWithError(w, http.StatusInternalServerError, "Failed to generate playlist")
			return
		}
	}
	w.Header().Set("Content-Type", "audio/x-mpegurl")
	http.ServeFile(w, r, path)
}

func (s *Server) handleServeGuide(w http.ResponseWriter, r *http.Request) {
	path := s.epg.GuidePath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		RespondWithError(w, http.StatusNotFound, "No guide has been generated yet")
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	http.ServeFile(w, r, path)
}

// handleServeChannelsXML emits the playlist's channel lineup as XMLTV.
func (s *Server) handleServeChannelsXML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml")
	if err := s.epg.GenerateChannelsXML(w); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate channels.xml")
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Jobs.All())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.app.Jobs.Get(chi.URLParam(r, "jobID"))
	if job == nil {
		RespondWithError(w, http.StatusNotFound, "Job not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if s.app.Jobs.Get(id) == nil {
		RespondWithError(w, http.StatusNotFound, "Job not found")
		return
	}
	s.app.Jobs.Cancel(id)
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.AllSettings()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	RespondWithJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload map[string]string
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	for key, value := range payload {
		if key == "" {
			RespondWithError(w, http.StatusBadRequest, "Setting keys must not be empty")
			return
		}
		if err := s.store.SetSetting(key, value); err != nil {
			RespondWithError(w, http.StatusInternalServerError, "Failed to save setting "+key)
			return
		}
	}
	settings, err := s.store.AllSettings()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload settings")
		return
	}
	RespondWithJSON(w, http.StatusOK, settings)
}
