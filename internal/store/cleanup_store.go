package store

import (
	"database/sql"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
)

// ListCleanupPatterns returns all cleanup patterns, optionally only enabled
// ones.
func (s *Store) ListCleanupPatterns(enabledOnly bool) ([]*models.CleanupPattern, error) {
	query := `
		SELECT id, type, value, description, enabled, is_default, created_at, updated_at
		FROM cleanup_patterns`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY value COLLATE NOCASE"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []*models.CleanupPattern
	for rows.Next() {
		var p models.CleanupPattern
		if err := rows.Scan(&p.ID, &p.Type, &p.Value, &p.Description, &p.Enabled,
			&p.IsDefault, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		patterns = append(patterns, &p)
	}
	return patterns, rows.Err()
}

// GetCleanupPattern retrieves one pattern by ID.
func (s *Store) GetCleanupPattern(id int64) (*models.CleanupPattern, error) {
	var p models.CleanupPattern
	err := s.db.QueryRow(`
		SELECT id, type, value, description, enabled, is_default, created_at, updated_at
		FROM cleanup_patterns WHERE id = ?`, id).
		Scan(&p.ID, &p.Type, &p.Value, &p.Description, &p.Enabled, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateCleanupPattern adds a new cleanup rule.
func (s *Store) CreateCleanupPattern(patternType, value, description string) (*models.CleanupPattern, error) {
	res, err := s.db.Exec(
		"INSERT INTO cleanup_patterns (type, value, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		patternType, value, description, time.Now(), time.Now())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetCleanupPattern(id)
}

// UpdateCleanupPattern changes a rule's value, description and enabled flag.
func (s *Store) UpdateCleanupPattern(id int64, value, description string, enabled bool) error {
	res, err := s.db.Exec(
		"UPDATE cleanup_patterns SET value = ?, description = ?, enabled = ?, updated_at = ? WHERE id = ?",
		value, description, enabled, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCleanupPattern removes a rule.
func (s *Store) DeleteCleanupPattern(id int64) error {
	res, err := s.db.Exec("DELETE FROM cleanup_patterns WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordCleanup renames a movie and writes the audit entry in one
// transaction, so history never references a rename that did not happen.
func (s *Store) RecordCleanup(movieID int64, originalName, cleanedName string, patternID *int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE movies SET name = ?, updated_at = ? WHERE id = ?", cleanedName, time.Now(), movieID)
	if isUniqueViolation(err) {
		return ErrNameConflict
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(
		"INSERT INTO cleanup_history (movie_id, original_name, cleaned_name, pattern_id, applied_at) VALUES (?, ?, ?, ?, ?)",
		movieID, originalName, cleanedName, patternID, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

// ListCleanupHistory returns recent cleanup renames, newest first.
func (s *Store) ListCleanupHistory(limit int) ([]*models.CleanupHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT h.id, h.movie_id, h.original_name, h.cleaned_name, h.pattern_id,
		       COALESCE(p.value, ''), h.applied_at
		FROM cleanup_history h
		LEFT JOIN cleanup_patterns p ON p.id = h.pattern_id
		ORDER BY h.applied_at DESC, h.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CleanupHistoryEntry
	for rows.Next() {
		var e models.CleanupHistoryEntry
		if err := rows.Scan(&e.ID, &e.MovieID, &e.OriginalName, &e.CleanedName,
			&e.PatternID, &e.PatternValue, &e.AppliedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CleanupStats summarizes the pattern inventory and applied renames.
type CleanupStats struct {
	Patterns        int `json:"patterns"`
	EnabledPatterns int `json:"enabled_patterns"`
	RenamesApplied  int `json:"renames_applied"`
}

// GetCleanupStats counts patterns and recorded renames.
func (s *Store) GetCleanupStats() (*CleanupStats, error) {
	var stats CleanupStats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM cleanup_patterns),
			(SELECT COUNT(*) FROM cleanup_patterns WHERE enabled = 1),
			(SELECT COUNT(*) FROM cleanup_history)`).
		Scan(&stats.Patterns, &stats.EnabledPatterns, &stats.RenamesApplied)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
