package models

import "time"

// Movie represents a VOD entry imported from an M3U playlist. Movies are
// materialized on disk as STRM files ({dir}/{name}/{name}.strm containing
// the stream URL); FolderPath and StrmFilePath are nil until the file has
// been created.
type Movie struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Logo         string     `json:"logo"`
	GroupTitle   string     `json:"group_title"`
	URL          string     `json:"url"`
	FolderPath   *string    `json:"folder_path,omitempty"`
	StrmFilePath *string    `json:"strm_file_path,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CleanupPattern is a movie-name cleanup rule. Patterns of type "actor"
// strip a leading or trailing actor name from the title.
type CleanupPattern struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CleanupHistoryEntry records one applied rename so it can be audited later.
type CleanupHistoryEntry struct {
	ID           int64     `json:"id"`
	MovieID      int64     `json:"movie_id"`
	OriginalName string    `json:"original_name"`
	CleanedName  string    `json:"cleaned_name"`
	PatternID    *int64    `json:"pattern_id,omitempty"`
	PatternValue string    `json:"pattern_value,omitempty"`
	AppliedAt    time.Time `json:"applied_at"`
}

// YearLibrary routes movies into a subdirectory based on their release year.
// A library with both bounds nil catches movies without a recognizable year.
type YearLibrary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	YearFrom  *int      `json:"year_from,omitempty"`
	YearTo    *int      `json:"year_to,omitempty"`
	Directory string    `json:"directory"`
	Enabled   bool      `json:"enabled"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
