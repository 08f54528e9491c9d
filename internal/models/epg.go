package models

import "time"

// Match qualities recorded on a channel to EPG mapping.
const (
	MatchExact  = "exact"
	MatchFuzzy  = "fuzzy"
	MatchManual = "manual"
)

// EpgSource is a configured guide-data provider. Priority resolves conflicts
// when several sources carry the same xmltv id: lower number wins.
type EpgSource struct {
	ID                int64      `json:"id"`
	SiteName          string     `json:"site_name"`
	SiteURL           string     `json:"site_url"`
	Enabled           bool       `json:"enabled"`
	Priority          int        `json:"priority"`
	LastRefreshStatus string     `json:"last_refresh_status"`
	LastRefreshAt     *time.Time `json:"last_refresh_at,omitempty"`
	ChannelsCount     int        `json:"channels_count"`
	ErrorLog          *string    `json:"error_log,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EpgSourceChannel is one entry of a source's channel catalog. The whole
// catalog is replaced whenever the source is resynced.
type EpgSourceChannel struct {
	ID          int64  `json:"id"`
	EpgSourceID int64  `json:"epg_source_id"`
	Site        string `json:"site"`
	Lang        string `json:"lang"`
	XmltvID     string `json:"xmltv_id"`
	SiteID      string `json:"site_id"`
	DisplayName string `json:"display_name"`

	// Joined from epg_sources when queried through the matching paths.
	SourceName     string `json:"source_name,omitempty"`
	SourcePriority int    `json:"source_priority,omitempty"`
}

// ChannelEpgMapping associates a channel with exactly one EPG source channel.
type ChannelEpgMapping struct {
	ID                 int64     `json:"id"`
	ChannelID          int64     `json:"channel_id"`
	EpgSourceChannelID int64     `json:"epg_source_channel_id"`
	Priority           int       `json:"priority"`
	MatchQuality       string    `json:"match_quality"`
	IsManual           bool      `json:"is_manual"`
	UpdatedAt          time.Time `json:"updated_at"`

	// Joined details for API responses.
	XmltvID        string `json:"xmltv_id,omitempty"`
	EpgDisplayName string `json:"epg_display_name,omitempty"`
	SourceName     string `json:"source_name,omitempty"`
	SourcePriority int    `json:"source_priority,omitempty"`
}

// EpgRefreshLog records one guide refresh run, either for a single source or
// for all enabled sources (SourceID nil).
type EpgRefreshLog struct {
	ID            int64      `json:"id"`
	SourceID      *int64     `json:"source_id,omitempty"`
	SourceName    string     `json:"source_name,omitempty"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DurationMs    *int64     `json:"duration_ms,omitempty"`
	ChannelsCount int        `json:"channels_count"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
}
