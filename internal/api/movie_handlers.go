package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/antenna-go/internal/store"
)

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	movies, err := s.store.ListMovies(q.Get("search"), limit, offset)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list movies")
		return
	}
	RespondWithJSON(w, http.StatusOK, movies)
}

// handleListDuplicateMovies reports movies that share a stream URL.
func (s *Server) handleListDuplicateMovies(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.FindDuplicateMovies()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to find duplicates")
		return
	}
	RespondWithJSON(w, http.StatusOK, groups)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "movieID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	movie, err := s.store.GetMovie(id)
	if err == store.ErrNotFound {
		RespondWithError(w, http.StatusNotFound, "Movie not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load movie")
		return
	}
	if movie.StrmFilePath != nil {
		if err := s.strm.RemoveFiles(movie); err != nil {
			RespondWithError(w, http.StatusInternalServerError, "Failed to remove movie files")
			return
		}
	}
	if err := s.store.DeleteMovie(id); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete movie")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleGenerateStrm starts a job materializing every movie as an STRM file.
func (s *Server) handleGenerateStrm(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.strm.GenerateAllJob()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// handleDeleteStrm starts a job removing every materialized STRM file.
func (s *Server) handleDeleteStrm(w http.ResponseWriter, r *http.Request) {
	jobID, err := s.strm.DeleteAllJob()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// handleSyncStrm reconciles the on-disk library with the database. With
// ?dry_run=true it only reports.
func (s *Server) handleSyncStrm(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"
	report, err := s.strm.SyncFilesystem(dryRun)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, report)
}

func (s *Server) handleListYearLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := s.store.ListYearLibraries(false)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list year libraries")
		return
	}
	RespondWithJSON(w, http.StatusOK, libs)
}

type yearLibraryPayload struct {
	Name      string `json:"name"`
	YearFrom  *int   `json:"year_from"`
	YearTo    *int   `json:"year_to"`
	Directory string `json:"directory"`
	Enabled   *bool  `json:"enabled"`
}

func (s *Server) handleCreateYearLibrary(w http.ResponseWriter, r *http.Request) {
	var payload yearLibraryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" || payload.Directory == "" {
		RespondWithError(w, http.StatusBadRequest, "name and directory are required")
		return
	}
	lib, err := s.store.CreateYearLibrary(payload.Name, payload.YearFrom, payload.YearTo, payload.Directory)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create year library")
		return
	}
	RespondWithJSON(w, http.StatusCreated, lib)
}

func (s *Server) handleUpdateYearLibrary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "libraryID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid library ID")
		return
	}
	var payload yearLibraryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" || payload.Directory == "" {
		RespondWithError(w, http.StatusBadRequest, "name and directory are required")
		return
	}
	enabled := true
	if payload.Enabled != nil {
		enabled = *payload.Enabled
	}
	switch err := s.store.UpdateYearLibrary(id, payload.Name, payload.YearFrom, payload.YearTo, payload.Directory, enabled); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Year library not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to update year library")
		return
	}
	lib, err := s.store.GetYearLibrary(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload year library")
		return
	}
	RespondWithJSON(w, http.StatusOK, lib)
}

func (s *Server) handleReorderYearLibraries(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LibraryIDs []int64 `json:"library_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.LibraryIDs) == 0 {
		RespondWithError(w, http.StatusBadRequest, "library_ids is required")
		return
	}
	if err := s.store.ReorderYearLibraries(payload.LibraryIDs); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reorder year libraries")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

func (s *Server) handleDeleteYearLibrary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "libraryID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid library ID")
		return
	}
	switch err := s.store.DeleteYearLibrary(id); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Year library not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete year library")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListCleanupPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := s.store.ListCleanupPatterns(false)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list patterns")
		return
	}
	RespondWithJSON(w, http.StatusOK, patterns)
}

func (s *Server) handleCreateCleanupPattern(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Type        string `json:"type"`
		Value       string `json:"value"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Value == "" {
		RespondWithError(w, http.StatusBadRequest, "A pattern value is required")
		return
	}
	if payload.Type == "" {
		payload.Type = "actor"
	}
	pattern, err := s.store.CreateCleanupPattern(payload.Type, payload.Value, payload.Description)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create pattern")
		return
	}
	RespondWithJSON(w, http.StatusCreated, pattern)
}

func (s *Server) handleUpdateCleanupPattern(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patternID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid pattern ID")
		return
	}
	var payload struct {
		Value       string `json:"value"`
		Description string `json:"description"`
		Enabled     bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Value == "" {
		RespondWithError(w, http.StatusBadRequest, "A pattern value is required")
		return
	}
	switch err := s.store.UpdateCleanupPattern(id, payload.Value, payload.Description, payload.Enabled); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Pattern not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to update pattern")
		return
	}
	pattern, err := s.store.GetCleanupPattern(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload pattern")
		return
	}
	RespondWithJSON(w, http.StatusOK, pattern)
}

func (s *Server) handleDeleteCleanupPattern(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patternID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid pattern ID")
		return
	}
	switch err := s.store.DeleteCleanupPattern(id); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Pattern not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete pattern")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAnalyzeCleanup(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.cleanup.Analyze()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to analyze movie names")
		return
	}
	RespondWithJSON(w, http.StatusOK, proposals)
}

func (s *Server) handleApplyCleanup(w http.ResponseWriter, r *http.Request) {
	result, err := s.cleanup.Apply()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to apply cleanup")
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleListCleanupHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := s.store.ListCleanupHistory(limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list history")
		return
	}
	RespondWithJSON(w, http.StatusOK, history)
}

func (s *Server) handleGetCleanupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetCleanupStats()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to compute cleanup stats")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}
