package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/antenna-go/internal/store"
)

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list groups")
		return
	}
	RespondWithJSON(w, http.StatusOK, groups)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" {
		RespondWithError(w, http.StatusBadRequest, "A group name is required")
		return
	}
	group, err := s.store.CreateGroup(payload.Name)
	if err == store.ErrNameConflict {
		RespondWithError(w, http.StatusConflict, "A group with that name already exists")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create group")
		return
	}
	s.regenerateExport()
	RespondWithJSON(w, http.StatusCreated, group)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}
	var payload struct {
		Name       string `json:"name"`
		IsExported bool   `json:"is_exported"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Name == "" {
		RespondWithError(w, http.StatusBadRequest, "A group name is required")
		return
	}
	switch err := s.store.UpdateGroup(id, payload.Name, payload.IsExported); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Group not found")
		return
	case store.ErrNameConflict:
		RespondWithError(w, http.StatusConflict, "A group with that name already exists")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to update group")
		return
	}
	s.regenerateExport()
	group, err := s.store.GetGroup(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload group")
		return
	}
	RespondWithJSON(w, http.StatusOK, group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid group ID")
		return
	}
	switch err := s.store.DeleteGroup(id); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Group not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete group")
		return
	}
	s.regenerateExport()
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleReorderGroups(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GroupIDs []int64 `json:"group_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.GroupIDs) == 0 {
		RespondWithError(w, http.StatusBadRequest, "group_ids is required")
		return
	}
	if err := s.store.ReorderGroups(payload.GroupIDs); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reorder groups")
		return
	}
	s.regenerateExport()
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}
