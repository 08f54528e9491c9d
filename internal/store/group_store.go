package store

import (
	"database/sql"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
)

// ListGroups returns all groups ordered for display, with channel counts.
func (s *Store) ListGroups() ([]*models.Group, error) {
	rows, err := s.db.Query(`
		SELECT g.id, g.name, g.sort_order, g.is_exported, g.created_at, g.updated_at,
		       COUNT(c.id)
		FROM groups g
		LEFT JOIN channels c ON c.group_id = g.id
		GROUP BY g.id
		ORDER BY g.sort_order, g.name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.SortOrder, &g.IsExported, &g.CreatedAt, &g.UpdatedAt, &g.ChannelCount); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// GetGroup retrieves a single group by its ID.
func (s *Store) GetGroup(id int64) (*models.Group, error) {
	var g models.Group
	err := s.db.QueryRow(`
		SELECT id, name, sort_order, is_exported, created_at, updated_at
		FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.SortOrder, &g.IsExported, &g.CreatedAt, &g.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup inserts a new group at the end of the display order.
func (s *Store) CreateGroup(name string) (*models.Group, error) {
	var next int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(sort_order), 0) + 1 FROM groups").Scan(&next); err != nil {
		return nil, err
	}
	res, err := s.db.Exec(
		"INSERT INTO groups (name, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, next, time.Now(), time.Now())
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
	return s.GetGroup(id)
}

// UpdateGroup changes a group's name and export flag.
func (s *Store) UpdateGroup(id int64, name string, isExported bool) error {
	res, err := s.db.Exec(
		"UPDATE groups SET name = ?, is_exported = ?, updated_at = ? WHERE id = ?",
		name, isExported, time.Now(), id)
	if isUniqueViolation(err) {
		return ErrNameConflict
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group. Channels that referenced it keep existing with
// a NULL group (the schema uses ON DELETE SET NULL).
func (s *Store) DeleteGroup(id int64) error {
	res, err := s.db.Exec("DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderGroups rewrites sort_order to match the given ID sequence.
func (s *Store) ReorderGroups(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec("UPDATE groups SET sort_order = ?, updated_at = ? WHERE id = ?", i+1, time.Now(), id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FindOrCreateGroup returns the ID of the group with the given name, creating
// it when missing. Used inside an import transaction.
func (s *Store) FindOrCreateGroup(tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM groups WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		var next int
		if err := tx.QueryRow("SELECT COALESCE(MAX(sort_order), 0) + 1 FROM groups").Scan(&next); err != nil {
			return 0, err
		}
		res, err := tx.Exec(
			"INSERT INTO groups (name, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?)",
			name, next, time.Now(), time.Now())
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
