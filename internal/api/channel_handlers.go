package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/store"
)

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	var filter store.ChannelFilter
	if g := r.URL.Query().Get("group_id"); g != "" {
		id, err := strconv.ParseInt(g, 10, 64)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid group_id")
			return
		}
		filter.GroupID = &id
	}
	filter.Search = r.URL.Query().Get("search")
	filter.ExportedOnly = r.URL.Query().Get("exported") == "true"

	channels, err := s.store.ListChannels(filter)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list channels")
		return
	}
	RespondWithJSON(w, http.StatusOK, channels)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid channel ID")
		return
	}
	channel, err := s.store.GetChannel(id)
	if err == store.ErrNotFound {
		RespondWithError(w, http.StatusNotFound, "Channel not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load channel")
		return
	}

	// Attach the mapping when one exists.
	response := map[string]interface{}{"channel": channel}
	if mapping, err := s.store.GetMapping(id); err == nil {
		response["mapping"] = mapping
	}
	RespondWithJSON(w, http.StatusOK, response)
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid channel ID")
		return
	}
	var payload struct {
		TvgID       *string `json:"tvg_id"`
		CustomName  *string `json:"custom_name"`
		CustomLogo  *string `json:"custom_logo"`
		GroupID     *int64  `json:"group_id"`
		ClearGroup  bool    `json:"clear_group"`
		IsExported  *bool   `json:"is_exported"`
		ChannelType *string `json:"channel_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.TvgID != nil && *payload.TvgID == "" {
		RespondWithError(w, http.StatusBadRequest, "tvg_id cannot be empty")
		return
	}

	update := store.ChannelUpdate{
		TvgID:       payload.TvgID,
		CustomName:  payload.CustomName,
		CustomLogo:  payload.CustomLogo,
		GroupID:     payload.GroupID,
		ClearGroup:  payload.ClearGroup,
		IsExported:  payload.IsExported,
		ChannelType: payload.ChannelType,
	}
	switch err := s.store.UpdateChannel(id, update); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Channel not found")
		return
	case store.ErrTvgIDConflict:
		RespondWithError(w, http.StatusConflict, "Another channel already uses that tvg-id")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to update channel")
		return
	}
	s.regenerateExport()
	channel, err := s.store.GetChannel(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload channel")
		return
	}
	RespondWithJSON(w, http.StatusOK, channel)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid channel ID")
		return
	}
	switch err := s.store.DeleteChannel(id); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Channel not found")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete channel")
		return
	}
	s.regenerateExport()
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDeleteAllChannels(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteAllChannels()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete channels")
		return
	}
	s.regenerateExport()
	RespondWithJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) handleReorderChannels(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		GroupID    int64   `json:"group_id"`
		ChannelIDs []int64 `json:"channel_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.ChannelIDs) == 0 {
		RespondWithError(w, http.StatusBadRequest, "group_id and channel_ids are required")
		return
	}
	if err := s.store.ReorderChannels(payload.GroupID, payload.ChannelIDs); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reorder channels")
		return
	}
	s.regenerateExport()
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}

// handleSetMapping manually assigns an EPG source channel to a channel.
func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid channel ID")
		return
	}
	var payload struct {
		EpgSourceChannelID int64 `json:"epg_source_channel_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.EpgSourceChannelID == 0 {
		RespondWithError(w, http.StatusBadRequest, "epg_source_channel_id is required")
		return
	}
	if _, err := s.store.GetChannel(id); err == store.ErrNotFound {
		RespondWithError(w, http.StatusNotFound, "Channel not found")
		return
	}
	if err := s.matcher.Map(id, payload.EpgSourceChannelID, models.MatchManual, true); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Failed to set mapping: "+err.Error())
		return
	}
	mapping, err := s.store.GetMapping(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload mapping")
		return
	}
	RespondWithJSON(w, http.StatusOK, mapping)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid channel ID")
		return
	}
	switch err := s.store.DeleteMapping(id); err {
	case nil:
	case store.ErrNotFound:
		RespondWithError(w, http.StatusNotFound, "Channel has no mapping")
		return
	default:
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete mapping")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleGetAlternatives lists every catalog entry the channel's tvg-id could
// map to, for the manual-mapping picker.
func (s *Server) handleGetAlternatives(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid channel ID")
		return
	}
	channel, err := s.store.GetChannel(id)
	if err == store.ErrNotFound {
		RespondWithError(w, http.StatusNotFound, "Channel not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load channel")
		return
	}
	alternatives, err := s.matcher.Alternatives(channel.TvgID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to find alternatives")
		return
	}
	RespondWithJSON(w, http.StatusOK, alternatives)
}
