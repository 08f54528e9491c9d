package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
)

const movieColumns = `id, name, logo, group_title, url, folder_path, strm_file_path,
	last_seen_at, created_at, updated_at`

func scanMovie(row interface{ Scan(...any) error }) (*models.Movie, error) {
	var m models.Movie
	err := row.Scan(&m.ID, &m.Name, &m.Logo, &m.GroupTitle, &m.URL, &m.FolderPath,
		&m.StrmFilePath, &m.LastSeenAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMovies returns movies matching an optional case-insensitive name
// search, paginated.
func (s *Store) ListMovies(search string, limit, offset int) ([]*models.Movie, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT " + movieColumns + " FROM movies"
	var args []any
	if search != "" {
		query += " WHERE name LIKE ?"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY name COLLATE NOCASE LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// AllMovies returns the whole movie table ordered by name. Used by the STRM
// generation and reconciliation jobs.
func (s *Store) AllMovies() ([]*models.Movie, error) {
	rows, err := s.db.Query("SELECT " + movieColumns + " FROM movies ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// GetMovie retrieves a single movie by its ID.
func (s *Store) GetMovie(id int64) (*models.Movie, error) {
	m, err := scanMovie(s.db.QueryRow("SELECT "+movieColumns+" FROM movies WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

// GetMovieByName retrieves a single movie by its exact name.
func (s *Store) GetMovieByName(name string) (*models.Movie, error) {
	m, err := scanMovie(s.db.QueryRow("SELECT "+movieColumns+" FROM movies WHERE name = ?", name))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return m, err
}

// UpsertMovie inserts a movie or, when the name already exists, refreshes its
// feed fields and last-seen timestamp. Returns the movie ID and whether a new
// row was created.
func (s *Store) UpsertMovie(tx *sql.Tx, name, logo, groupTitle, url string, seenAt time.Time) (int64, bool, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM movies WHERE name = ?", name).Scan(&id)
	if err == sql.ErrNoRows {
		res, err := tx.Exec(
			"INSERT INTO movies (name, logo, group_title, url, last_seen_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			name, logo, groupTitle, url, seenAt, time.Now(), time.Now())
		if err != nil {
			return 0, false, err
		}
		id, err = res.LastInsertId()
		return id, true, err
	}
	if err != nil {
		return 0, false, err
	}
	_, err = tx.Exec(
		"UPDATE movies SET logo = ?, group_title = ?, url = ?, last_seen_at = ?, updated_at = ? WHERE id = ?",
		logo, groupTitle, url, seenAt, time.Now(), id)
	return id, false, err
}

// DeleteMoviesNotSeenSince removes movies whose feed entry disappeared: any
// row not touched by an import since the given cutoff. The removed movies
// are returned so their STRM files can be cleaned up.
func (s *Store) DeleteMoviesNotSeenSince(cutoff time.Time) ([]*models.Movie, error) {
	rows, err := s.db.Query(
		"SELECT "+movieColumns+" FROM movies WHERE last_seen_at IS NULL OR last_seen_at < ?", cutoff)
	if err != nil {
		return nil, err
	}
	var stale []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, m := range stale {
		if _, err := s.db.Exec("DELETE FROM movies WHERE id = ?", m.ID); err != nil {
			return nil, err
		}
	}
	return stale, nil
}

// RenameMovie changes a movie's name, failing on a name collision.
func (s *Store) RenameMovie(id int64, name string) error {
	res, err := s.db.Exec("UPDATE movies SET name = ?, updated_at = ? WHERE id = ?", name, time.Now(), id)
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

// SetMoviePaths records where a movie was materialized on disk. Nil clears
// the paths after the file is removed.
func (s *Store) SetMoviePaths(id int64, folderPath, strmFilePath *string) error {
	_, err := s.db.Exec(
		"UPDATE movies SET folder_path = ?, strm_file_path = ?, updated_at = ? WHERE id = ?",
		folderPath, strmFilePath, time.Now(), id)
	return err
}

// DeleteMovie removes a movie row.
func (s *Store) DeleteMovie(id int64) error {
	res, err := s.db.Exec("DELETE FROM movies WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMovies returns the movie total and how many have an STRM file on disk.
func (s *Store) CountMovies() (total, materialized int, err error) {
	err = s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(strm_file_path IS NOT NULL), 0) FROM movies").Scan(&total, &materialized)
	return total, materialized, err
}

// FindUniqueMovieName returns name if it is free, otherwise the first
// "name [2]", "name [3]"... that is.
func (s *Store) FindUniqueMovieName(name string, excludeID int64) (string, error) {
	candidate := name
	for i := 2; ; i++ {
		var id int64
		err := s.db.QueryRow("SELECT id FROM movies WHERE name = ? AND id != ?", candidate, excludeID).Scan(&id)
		if err == sql.ErrNoRows {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s [%d]", name, i)
	}
}

// DuplicateMovieGroup is a set of differently named movies pointing at the
// same stream URL.
type DuplicateMovieGroup struct {
	URL    string          `json:"url"`
	Movies []*models.Movie `json:"movies"`
}

// FindDuplicateMovies groups movies that share a stream URL. Providers often
// list the same file under several names; the library only needs one.
func (s *Store) FindDuplicateMovies() ([]*DuplicateMovieGroup, error) {
	rows, err := s.db.Query(`
		SELECT ` + movieColumns + `
		FROM movies
		WHERE url IN (SELECT url FROM movies GROUP BY url HAVING COUNT(*) > 1)
		ORDER BY url, name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*DuplicateMovieGroup
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		if len(groups) == 0 || groups[len(groups)-1].URL != m.URL {
			groups = append(groups, &DuplicateMovieGroup{URL: m.URL})
		}
		last := groups[len(groups)-1]
		last.Movies = append(last.Movies, m)
	}
	return groups, rows.Err()
}
