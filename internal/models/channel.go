// This file defines the core data structures (models) for our application.
// These structs represent the playlist channels and their grouping.

package models

import "time"

// Group represents a playlist group (the group-title of an M3U entry).
type Group struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	SortOrder    int       `json:"sort_order"`
	IsExported   bool      `json:"is_exported"`
	ChannelCount int       `json:"channel_count,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Channel represents a single TV channel imported from an M3U playlist.
// Imported values are refreshed on every import; custom values are operator
// overrides and survive re-imports.
type Channel struct {
	ID            int64      `json:"id"`
	TvgID         string     `json:"tvg_id"`
	OriginalTvgID *string    `json:"original_tvg_id,omitempty"` // set when the tvg-id was auto-renamed on collision
	ImportedName  string     `json:"imported_name"`
	ImportedLogo  string     `json:"imported_logo"`
	ImportedGroup string     `json:"imported_group"`
	ImportedURL   string     `json:"imported_url"`
	CustomName    *string    `json:"custom_name,omitempty"`
	CustomLogo    *string    `json:"custom_logo,omitempty"`
	GroupID       *int64     `json:"group_id,omitempty"`
	SortOrder     int        `json:"sort_order"`
	IsExported    bool       `json:"is_exported"`
	ChannelType   string     `json:"channel_type"`
	LastImportAt  *time.Time `json:"last_import_at,omitempty"`
	CreatedAt     time.Time  `json:"-"`
	UpdatedAt     time.Time  `json:"-"`
}

// DisplayName returns the name that should be exported for the channel:
// the custom override when set, otherwise the imported name.
func (c *Channel) DisplayName() string {
	if c.CustomName != nil && *c.CustomName != "" {
		return *c.CustomName
	}
	return c.ImportedName
}

// DisplayLogo returns the logo URL that should be exported for the channel.
func (c *Channel) DisplayLogo() string {
	if c.CustomLogo != nil && *c.CustomLogo != "" {
		return *c.CustomLogo
	}
	return c.ImportedLogo
}
