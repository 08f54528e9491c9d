package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
)

// FindSourceChannelByXmltvIDs finds the best catalog entry whose xmltv id
// matches any of the given candidates, case-insensitively, across enabled
// sources only. Ties are broken deterministically: lowest source priority
// wins, then source name, then display name.
func (s *Store) FindSourceChannelByXmltvIDs(ids []string) (*models.EpgSourceChannel, error) {
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = strings.ToLower(id)
	}

	var ch models.EpgSourceChannel
	err := s.db.QueryRow(`
		SELECT sc.id, sc.epg_source_id, sc.site, sc.lang, sc.xmltv_id, sc.site_id, sc.display_name,
		       es.site_name, es.priority
		FROM epg_source_channels sc
		JOIN epg_sources es ON es.id = sc.epg_source_id
		WHERE es.enabled = 1 AND lower(sc.xmltv_id) IN (`+placeholders+`)
		ORDER BY es.priority, es.site_name, sc.display_name COLLATE NOCASE
		LIMIT 1`, args...).
		Scan(&ch.ID, &ch.EpgSourceID, &ch.Site, &ch.Lang, &ch.XmltvID, &ch.SiteID,
			&ch.DisplayName, &ch.SourceName, &ch.SourcePriority)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// FindSourceChannelsByXmltvIDs returns every enabled-source catalog entry
// matching any of the candidate ids, best first. Used for listing the
// alternatives of a channel's identifier.
func (s *Store) FindSourceChannelsByXmltvIDs(ids []string) ([]*models.EpgSourceChannel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = strings.ToLower(id)
	}

	rows, err := s.db.Query(`
		SELECT sc.id, sc.epg_source_id, sc.site, sc.lang, sc.xmltv_id, sc.site_id, sc.display_name,
		       es.site_name, es.priority
		FROM epg_source_channels sc
		JOIN epg_sources es ON es.id = sc.epg_source_id
		WHERE es.enabled = 1 AND lower(sc.xmltv_id) IN (`+placeholders+`)
		ORDER BY es.priority, es.site_name, sc.display_name COLLATE NOCASE`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*models.EpgSourceChannel
	for rows.Next() {
		var ch models.EpgSourceChannel
		if err := rows.Scan(&ch.ID, &ch.EpgSourceID, &ch.Site, &ch.Lang, &ch.XmltvID,
			&ch.SiteID, &ch.DisplayName, &ch.SourceName, &ch.SourcePriority); err != nil {
			return nil, err
		}
		channels = append(channels, &ch)
	}
	return channels, rows.Err()
}

// GetMapping returns the mapping for a channel, or ErrNotFound.
func (s *Store) GetMapping(channelID int64) (*models.ChannelEpgMapping, error) {
	var m models.ChannelEpgMapping
	err := s.db.QueryRow(`
		SELECT m.id, m.channel_id, m.epg_source_channel_id, m.priority, m.match_quality,
		       m.is_manual, m.updated_at, sc.xmltv_id, sc.display_name, es.site_name, es.priority
		FROM channel_epg_mappings m
		JOIN epg_source_channels sc ON sc.id = m.epg_source_channel_id
		JOIN epg_sources es ON es.id = sc.epg_source_id
		WHERE m.channel_id = ?`, channelID).
		Scan(&m.ID, &m.ChannelID, &m.EpgSourceChannelID, &m.Priority, &m.MatchQuality,
			&m.IsManual, &m.UpdatedAt, &m.XmltvID, &m.EpgDisplayName, &m.SourceName, &m.SourcePriority)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMappings returns all mappings with their joined channel and source
// details, ordered by channel.
func (s *Store) ListMappings() ([]*models.ChannelEpgMapping, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.channel_id, m.epg_source_channel_id, m.priority, m.match_quality,
		       m.is_manual, m.updated_at, sc.xmltv_id, sc.display_name, es.site_name, es.priority
		FROM channel_epg_mappings m
		JOIN epg_source_channels sc ON sc.id = m.epg_source_channel_id
		JOIN epg_sources es ON es.id = sc.epg_source_id
		ORDER BY m.channel_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*models.ChannelEpgMapping
	for rows.Next() {
		var m models.ChannelEpgMapping
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.EpgSourceChannelID, &m.Priority, &m.MatchQuality,
			&m.IsManual, &m.UpdatedAt, &m.XmltvID, &m.EpgDisplayName, &m.SourceName, &m.SourcePriority); err != nil {
			return nil, err
		}
		mappings = append(mappings, &m)
	}
	return mappings, rows.Err()
}

// ReplaceMapping sets the mapping for a channel, replacing any existing one.
// Delete-then-insert inside a transaction keeps the one-mapping-per-channel
// invariant without relying on upsert semantics.
func (s *Store) ReplaceMapping(channelID, sourceChannelID int64, priority int, quality string, manual bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM channel_epg_mappings WHERE channel_id = ?", channelID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO channel_epg_mappings (channel_id, epg_source_channel_id, priority, match_quality, is_manual, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		channelID, sourceChannelID, priority, quality, manual, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

// MappedChannel pairs a playlist channel with the catalog entry its guide
// data comes from. Used when building guide output.
type MappedChannel struct {
	ChannelID   int64
	TvgID       string
	Name        string
	Logo        string
	XmltvID     string
	SiteID      string
	Site        string
	SourceID    int64
	DisplayName string
}

// ListMappedChannels returns every exported channel with a mapping, joined
// with its catalog entry, optionally restricted to one source.
func (s *Store) ListMappedChannels(sourceID *int64) ([]*MappedChannel, error) {
	query := `
		SELECT c.id, c.tvg_id,
		       COALESCE(NULLIF(c.custom_name, ''), c.imported_name),
		       COALESCE(NULLIF(c.custom_logo, ''), c.imported_logo),
		       sc.xmltv_id, sc.site_id, sc.site, sc.epg_source_id, sc.display_name
		FROM channel_epg_mappings m
		JOIN channels c ON c.id = m.channel_id
		JOIN epg_source_channels sc ON sc.id = m.epg_source_channel_id
		JOIN epg_sources es ON es.id = sc.epg_source_id
		WHERE c.is_exported = 1 AND es.enabled = 1`
	var args []any
	if sourceID != nil {
		query += " AND sc.epg_source_id = ?"
		args = append(args, *sourceID)
	}
	query += " ORDER BY c.tvg_id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mapped []*MappedChannel
	for rows.Next() {
		var mc MappedChannel
		if err := rows.Scan(&mc.ChannelID, &mc.TvgID, &mc.Name, &mc.Logo, &mc.XmltvID,
			&mc.SiteID, &mc.Site, &mc.SourceID, &mc.DisplayName); err != nil {
			return nil, err
		}
		mapped = append(mapped, &mc)
	}
	return mapped, rows.Err()
}

// DeleteMapping removes a channel's mapping.
func (s *Store) DeleteMapping(channelID int64) error {
	res, err := s.db.Exec("DELETE FROM channel_epg_mappings WHERE channel_id = ?", channelID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllMappings wipes every mapping, returning how many were removed.
func (s *Store) DeleteAllMappings() (int64, error) {
	res, err := s.db.Exec("DELETE FROM channel_epg_mappings")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HasManualMapping reports whether a channel's mapping was set by hand.
func (s *Store) HasManualMapping(channelID int64) (bool, error) {
	var manual bool
	err := s.db.QueryRow(
		"SELECT is_manual FROM channel_epg_mappings WHERE channel_id = ?", channelID).Scan(&manual)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return manual, nil
}

// MappingStats summarizes mapping coverage over the channel table.
type MappingStats struct {
	TotalChannels int `json:"total_channels"`
	Mapped        int `json:"mapped"`
	Unmapped      int `json:"unmapped"`
	Exact         int `json:"exact"`
	Fuzzy         int `json:"fuzzy"`
	Manual        int `json:"manual"`
}

// GetMappingStats computes mapping coverage counts. TotalChannels counts
// only channels eligible for matching: non-empty tvg-id and flagged for
// export.
func (s *Store) GetMappingStats() (*MappingStats, error) {
	var st MappingStats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM channels WHERE tvg_id != '' AND is_exported = 1),
			COUNT(m.id),
			COALESCE(SUM(CASE WHEN m.match_quality = 'exact' AND m.is_manual = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.match_quality = 'fuzzy' AND m.is_manual = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN m.is_manual = 1 THEN 1 ELSE 0 END), 0)
		FROM channel_epg_mappings m`).
		Scan(&st.TotalChannels, &st.Mapped, &st.Exact, &st.Fuzzy, &st.Manual)
	if err != nil {
		return nil, err
	}
	st.Unmapped = st.TotalChannels - st.Mapped
	return &st, nil
}
