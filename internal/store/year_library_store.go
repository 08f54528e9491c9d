package store

import (
	"database/sql"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
)

// ListYearLibraries returns year libraries in routing order. Only enabled
// libraries take part in STRM routing, but all are listed for management.
func (s *Store) ListYearLibraries(enabledOnly bool) ([]*models.YearLibrary, error) {
	query := `
		SELECT id, name, year_from, year_to, directory, enabled, sort_order, created_at, updated_at
		FROM year_libraries`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY sort_order, id"

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libs []*models.YearLibrary
	for rows.Next() {
		var l models.YearLibrary
		if err := rows.Scan(&l.ID, &l.Name, &l.YearFrom, &l.YearTo, &l.Directory,
			&l.Enabled, &l.SortOrder, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		libs = append(libs, &l)
	}
	return libs, rows.Err()
}

// GetYearLibrary retrieves one year library by ID.
func (s *Store) GetYearLibrary(id int64) (*models.YearLibrary, error) {
	var l models.YearLibrary
	err := s.db.QueryRow(`
		SELECT id, name, year_from, year_to, directory, enabled, sort_order, created_at, updated_at
		FROM year_libraries WHERE id = ?`, id).
		Scan(&l.ID, &l.Name, &l.YearFrom, &l.YearTo, &l.Directory, &l.Enabled,
			&l.SortOrder, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateYearLibrary adds a year library at the end of the routing order.
func (s *Store) CreateYearLibrary(name string, yearFrom, yearTo *int, directory string) (*models.YearLibrary, error) {
	var next int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(sort_order), 0) + 1 FROM year_libraries").Scan(&next); err != nil {
		return nil, err
	}
	res, err := s.db.Exec(
		"INSERT INTO year_libraries (name, year_from, year_to, directory, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		name, yearFrom, yearTo, directory, next, time.Now(), time.Now())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetYearLibrary(id)
}

// UpdateYearLibrary changes a year library's routing fields.
func (s *Store) UpdateYearLibrary(id int64, name string, yearFrom, yearTo *int, directory string, enabled bool) error {
	res, err := s.db.Exec(
		"UPDATE year_libraries SET name = ?, year_from = ?, year_to = ?, directory = ?, enabled = ?, updated_at = ? WHERE id = ?",
		name, yearFrom, yearTo, directory, enabled, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderYearLibraries rewrites sort_order to match the given ID sequence.
func (s *Store) ReorderYearLibraries(ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec("UPDATE year_libraries SET sort_order = ?, updated_at = ? WHERE id = ?", i+1, time.Now(), id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteYearLibrary removes a year library.
func (s *Store) DeleteYearLibrary(id int64) error {
	res, err := s.db.Exec("DELETE FROM year_libraries WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
