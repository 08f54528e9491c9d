package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/antenna-go/internal/matching"
	"github.com/vrsandeep/antenna-go/internal/store"
)

func (s *Server) handleListEpgSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListEpgSources()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list EPG sources")
		return
	}
	RespondWithJSON(w, http.StatusOK, sources)
}

func (s *Server) handleCreateEpgSource(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SiteName string `json:"site_name"`
		SiteURL  string `json:"site_url"`
		Priority int    `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.SiteName == "" {
		RespondWithError(w, http.StatusBadRequest, "site_name is required")
		return
	}
	if payload.Priority == 0 {
		payload.Priority = 1
	}
	source, err := s.store.CreateEpgSource(payload.SiteName, payload.SiteURL, payload.Priority)
	if err == store.ErrNameConflict {
		RespondWithError(w, http.StatusConflict, "A source with that name already exists")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create EPG source")
		return
	}
	RespondWithJSON(w, http.StatusCreated, source)
}

func (s *Server) handleUpdateEpgSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid source ID")
		return
	}
	var payload struct {
		SiteURL  string `json:"site_url"`
		Priority int    `json:"priority"`
		Enabled  bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Priority == 0 {
		payload.Priority = 1
	}
	switch err := s.store.UpdateEpgSource(id, payload.SiteURL, payload.Priority, payload.Enabled); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "EPG source not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to update EPG source")
		return
	}
	source, err := s.store.GetEpgSource(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload EPG source")
		return
	}
	RespondWithJSON(w, http.StatusOK, source)
}

func (s *Server) handleDeleteEpgSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid source ID")
		return
	}
	switch err := s.store.DeleteEpgSource(id); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "EPG source not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete EPG source")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleSyncEpgSource reloads a source's channel catalog.
func (s *Server) handleSyncEpgSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid source ID")
		return
	}
	count, err := s.epg.SyncSourceChannels(id)
	if err == store.ErrNotFound {
		RespondWithError(w, http.StatusNotFound, "EPG source not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Failed to sync catalog: "+err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]int{"channels": count})
}

func (s *Server) handleListEpgSourceChannels(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sourceID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid source ID")
		return
	}
	channels, err := s.store.ListSourceChannels(id, r.URL.Query().Get("search"))
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list catalog")
		return
	}
	RespondWithJSON(w, http.StatusOK, channels)
}

// handleAutoMatch runs the auto-matcher over every channel.
func (s *Server) handleAutoMatch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UseFuzzy        bool `json:"use_fuzzy"`
		OverwriteManual bool `json:"overwrite_manual"`
	}
	if r.Body != nil {
		// An empty body means default options.
		json.NewDecoder(r.Body).Decode(&payload)
	}
	result, err := s.matcher.AutoMatchAll(matching.AutoMatchOptions{
		UseFuzzy:        payload.UseFuzzy,
		OverwriteManual: payload.OverwriteManual,
	})
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Auto-match failed: "+err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.store.ListMappings()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list mappings")
		return
	}
	RespondWithJSON(w, http.StatusOK, mappings)
}

func (s *Server) handleDeleteAllMappings(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteAllMappings()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete mappings")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) handleGetMappingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetMappingStats()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to compute mapping stats")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

// handleRefreshGuide starts a guide refresh job.
func (s *Server) handleRefreshGuide(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.epg.RefreshGuideJob()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleListRefreshLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := s.store.ListRefreshLogs(limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list refresh logs")
		return
	}
	RespondWithJSON(w, http.StatusOK, logs)
}
