package store

import (
	"database/sql"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
)

// ListEpgSources returns all configured guide sources ordered by priority.
func (s *Store) ListEpgSources() ([]*models.EpgSource, error) {
	rows, err := s.db.Query(`
		SELECT id, site_name, site_url, enabled, priority, last_refresh_status,
		       last_refresh_at, channels_count, error_log, created_at, updated_at
		FROM epg_sources ORDER BY priority, site_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*models.EpgSource
	for rows.Next() {
		var src models.EpgSource
		if err := rows.Scan(&src.ID, &src.SiteName, &src.SiteURL, &src.Enabled, &src.Priority,
			&src.LastRefreshStatus, &src.LastRefreshAt, &src.ChannelsCount, &src.ErrorLog,
			&src.CreatedAt, &src.UpdatedAt); err != nil {
			return nil, err
		}
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// GetEpgSource retrieves a single guide source by ID.
func (s *Store) GetEpgSource(id int64) (*models.EpgSource, error) {
	var src models.EpgSource
	err := s.db.QueryRow(`
		SELECT id, site_name, site_url, enabled, priority, last_refresh_status,
		       last_refresh_at, channels_count, error_log, created_at, updated_at
		FROM epg_sources WHERE id = ?`, id).
		Scan(&src.ID, &src.SiteName, &src.SiteURL, &src.Enabled, &src.Priority,
			&src.LastRefreshStatus, &src.LastRefreshAt, &src.ChannelsCount, &src.ErrorLog,
			&src.CreatedAt, &src.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// CreateEpgSource registers a new guide source.
func (s *Store) CreateEpgSource(siteName, siteURL string, priority int) (*models.EpgSource, error) {
	res, err := s.db.Exec(
		"INSERT INTO epg_sources (site_name, site_url, priority, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		siteName, siteURL, priority, time.Now(), time.Now())
	if isUniqueViolation(err) {
		return nil, ErrNameConflict
	}
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetEpgSource(id)
}

// UpdateEpgSource changes a source's URL, priority and enabled flag.
func (s *Store) UpdateEpgSource(id int64, siteURL string, priority int, enabled bool) error {
	res, err := s.db.Exec(
		"UPDATE epg_sources SET site_url = ?, priority = ?, enabled = ?, updated_at = ? WHERE id = ?",
		siteURL, priority, enabled, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEpgSource removes a source; its catalog cascades, and mappings that
// pointed into the catalog cascade with it.
func (s *Store) DeleteEpgSource(id int64) error {
	res, err := s.db.Exec("DELETE FROM epg_sources WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSourceRefreshResult records the outcome of a guide refresh on the source
// row itself.
func (s *Store) SetSourceRefreshResult(id int64, status string, errorLog *string) error {
	_, err := s.db.Exec(
		"UPDATE epg_sources SET last_refresh_status = ?, last_refresh_at = ?, error_log = ?, updated_at = ? WHERE id = ?",
		status, time.Now(), errorLog, time.Now(), id)
	return err
}

// ReplaceSourceChannels swaps a source's channel catalog for a new one inside
// a single transaction, so readers never observe a half-synced catalog.
// Existing mappings into the old catalog rows are dropped by the cascade.
func (s *Store) ReplaceSourceChannels(sourceID int64, channels []*models.EpgSourceChannel) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM epg_source_channels WHERE epg_source_id = ?", sourceID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		"INSERT INTO epg_source_channels (epg_source_id, site, lang, xmltv_id, site_id, display_name) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ch := range channels {
		if _, err := stmt.Exec(sourceID, ch.Site, ch.Lang, ch.XmltvID, ch.SiteID, ch.DisplayName); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"UPDATE epg_sources SET channels_count = ?, updated_at = ? WHERE id = ?",
		len(channels), time.Now(), sourceID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListSourceChannels returns a source's catalog, optionally filtered by a
// case-insensitive substring of the xmltv id or display name.
func (s *Store) ListSourceChannels(sourceID int64, search string) ([]*models.EpgSourceChannel, error) {
	query := `
		SELECT id, epg_source_id, site, lang, xmltv_id, site_id, display_name
		FROM epg_source_channels WHERE epg_source_id = ?`
	args := []any{sourceID}
	if search != "" {
		query += " AND (xmltv_id LIKE ? OR display_name LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += " ORDER BY display_name COLLATE NOCASE"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSourceChannels(rows)
}

// ListEnabledSourceChannels returns the full catalog of every enabled source,
// joined with source name and priority. This is the corpus fuzzy matching
// runs over.
func (s *Store) ListEnabledSourceChannels() ([]*models.EpgSourceChannel, error) {
	rows, err := s.db.Query(`
		SELECT sc.id, sc.epg_source_id, sc.site, sc.lang, sc.xmltv_id, sc.site_id, sc.display_name,
		       es.site_name, es.priority
		FROM epg_source_channels sc
		JOIN epg_sources es ON es.id = sc.epg_source_id
		WHERE es.enabled = 1
		ORDER BY es.priority, es.site_name, sc.display_name COLLATE NOCASE`)
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

// GetSourceChannel retrieves a single catalog entry, with source details.
func (s *Store) GetSourceChannel(id int64) (*models.EpgSourceChannel, error) {
	var ch models.EpgSourceChannel
	err := s.db.QueryRow(`
		SELECT sc.id, sc.epg_source_id, sc.site, sc.lang, sc.xmltv_id, sc.site_id, sc.display_name,
		       es.site_name, es.priority
		FROM epg_source_channels sc
		JOIN epg_sources es ON es.id = sc.epg_source_id
		WHERE sc.id = ?`, id).
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

func scanSourceChannels(rows *sql.Rows) ([]*models.EpgSourceChannel, error) {
	var channels []*models.EpgSourceChannel
	for rows.Next() {
		var ch models.EpgSourceChannel
		if err := rows.Scan(&ch.ID, &ch.EpgSourceID, &ch.Site, &ch.Lang, &ch.XmltvID,
			&ch.SiteID, &ch.DisplayName); err != nil {
			return nil, err
		}
		channels = append(channels, &ch)
	}
	return channels, rows.Err()
}

// StartRefreshLog opens a refresh-log row and returns its ID.
func (s *Store) StartRefreshLog(sourceID *int64) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO epg_refresh_logs (source_id, status, started_at) VALUES (?, 'running', ?)",
		sourceID, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishRefreshLog closes a refresh-log row with its outcome.
func (s *Store) FinishRefreshLog(id int64, status string, channelsCount int, errMsg *string) error {
	now := time.Now()
	_, err := s.db.Exec(`
		UPDATE epg_refresh_logs
		SET status = ?, completed_at = ?, channels_count = ?, error_message = ?,
		    duration_ms = CAST((julianday(?) - julianday(started_at)) * 86400000 AS INTEGER)
		WHERE id = ?`,
		status, now, channelsCount, errMsg, now, id)
	return err
}

// ListRefreshLogs returns the most recent refresh runs, newest first.
func (s *Store) ListRefreshLogs(limit int) ([]*models.EpgRefreshLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT l.id, l.source_id, COALESCE(es.site_name, ''), l.status, l.started_at,
		       l.completed_at, l.duration_ms, l.channels_count, l.error_message
		FROM epg_refresh_logs l
		LEFT JOIN epg_sources es ON es.id = l.source_id
		ORDER BY l.started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.EpgRefreshLog
	for rows.Next() {
		var l models.EpgRefreshLog
		if err := rows.Scan(&l.ID, &l.SourceID, &l.SourceName, &l.Status, &l.StartedAt,
			&l.CompletedAt, &l.DurationMs, &l.ChannelsCount, &l.ErrorMessage); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
