package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
)

const channelColumns = `id, tvg_id, original_tvg_id, imported_name, imported_logo,
	imported_group, imported_url, custom_name, custom_logo, group_id, sort_order,
	is_exported, channel_type, last_import_at, created_at, updated_at`

func scanChannel(row interface{ Scan(...any) error }) (*models.Channel, error) {
	var c models.Channel
	err := row.Scan(&c.ID, &c.TvgID, &c.OriginalTvgID, &c.ImportedName, &c.ImportedLogo,
		&c.ImportedGroup, &c.ImportedURL, &c.CustomName, &c.CustomLogo, &c.GroupID,
		&c.SortOrder, &c.IsExported, &c.ChannelType, &c.LastImportAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ChannelFilter narrows ListChannels. Zero values mean "no filter".
type ChannelFilter struct {
	GroupID      *int64
	Search       string
	ExportedOnly bool
	WithTvgID    bool
}

// ListChannels returns channels ordered by group and sort order.
func (s *Store) ListChannels(f ChannelFilter) ([]*models.Channel, error) {
	query := "SELECT " + channelColumns + " FROM channels"
	var conds []string
	var args []any
	if f.GroupID != nil {
		conds = append(conds, "group_id = ?")
		args = append(args, *f.GroupID)
	}
	if f.Search != "" {
		conds = append(conds, "(imported_name LIKE ? OR custom_name LIKE ? OR tvg_id LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}
	if f.ExportedOnly {
		conds = append(conds, "is_exported = 1")
	}
	if f.WithTvgID {
		conds = append(conds, "tvg_id != ''")
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY group_id, sort_order, imported_name COLLATE NOCASE"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// GetChannel retrieves a single channel by its ID.
func (s *Store) GetChannel(id int64) (*models.Channel, error) {
	c, err := scanChannel(s.db.QueryRow("SELECT "+channelColumns+" FROM channels WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// GetChannelByTvgID retrieves a channel by its tvg-id.
func (s *Store) GetChannelByTvgID(tvgID string) (*models.Channel, error) {
	c, err := scanChannel(s.db.QueryRow("SELECT "+channelColumns+" FROM channels WHERE tvg_id = ?", tvgID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// ChannelUpdate carries the operator-editable fields of a channel. Nil
// pointer fields are left untouched; an empty custom value clears the
// override.
type ChannelUpdate struct {
	TvgID       *string
	CustomName  *string
	CustomLogo  *string
	GroupID     *int64
	ClearGroup  bool
	IsExported  *bool
	ChannelType *string
}

// UpdateChannel applies the given field changes to a channel.
func (s *Store) UpdateChannel(id int64, u ChannelUpdate) error {
	var sets []string
	var args []any
	if u.TvgID != nil {
		sets = append(sets, "tvg_id = ?")
		args = append(args, *u.TvgID)
	}
	if u.CustomName != nil {
		sets = append(sets, "custom_name = ?")
		args = append(args, nullIfEmpty(*u.CustomName))
	}
	if u.CustomLogo != nil {
		sets = append(sets, "custom_logo = ?")
		args = append(args, nullIfEmpty(*u.CustomLogo))
	}
	if u.ClearGroup {
		sets = append(sets, "group_id = NULL")
	} else if u.GroupID != nil {
		sets = append(sets, "group_id = ?")
		args = append(args, *u.GroupID)
	}
	if u.IsExported != nil {
		sets = append(sets, "is_exported = ?")
		args = append(args, *u.IsExported)
	}
	if u.ChannelType != nil {
		sets = append(sets, "channel_type = ?")
		args = append(args, *u.ChannelType)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now(), id)

	res, err := s.db.Exec(fmt.Sprintf("UPDATE channels SET %s WHERE id = ?", strings.Join(sets, ", ")), args...)
	if isUniqueViolation(err) {
		return ErrTvgIDConflict
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChannel removes a channel; its EPG mapping goes with it via cascade.
func (s *Store) DeleteChannel(id int64) error {
	res, err := s.db.Exec("DELETE FROM channels WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllChannels wipes the channel table. Mappings cascade.
func (s *Store) DeleteAllChannels() (int64, error) {
	res, err := s.db.Exec("DELETE FROM channels")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReorderChannels rewrites sort_order within a group to match the given
// ID sequence.
func (s *Store) ReorderChannels(groupID int64, ids []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.Exec(
			"UPDATE channels SET sort_order = ?, updated_at = ? WHERE id = ? AND group_id = ?",
			i+1, time.Now(), id, groupID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ExportedChannel is one playlist line of the generated export: resolved
// display fields in final output order.
type ExportedChannel struct {
	TvgID     string
	Name      string
	Logo      string
	GroupName string
	URL       string
}

// ListExportedChannels returns the channels that belong in the generated
// playlist: exported channels of exported groups, in group then channel
// order. Ungrouped channels keep their imported group title.
func (s *Store) ListExportedChannels() ([]*ExportedChannel, error) {
	rows, err := s.db.Query(`
		SELECT c.tvg_id,
		       COALESCE(NULLIF(c.custom_name, ''), c.imported_name),
		       COALESCE(NULLIF(c.custom_logo, ''), c.imported_logo),
		       COALESCE(g.name, c.imported_group),
		       c.imported_url
		FROM channels c
		LEFT JOIN groups g ON g.id = c.group_id
		WHERE c.is_exported = 1 AND (c.group_id IS NULL OR g.is_exported = 1)
		ORDER BY COALESCE(g.sort_order, 999999), c.sort_order, c.imported_name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*ExportedChannel
	for rows.Next() {
		var ec ExportedChannel
		if err := rows.Scan(&ec.TvgID, &ec.Name, &ec.Logo, &ec.GroupName, &ec.URL); err != nil {
			return nil, err
		}
		channels = append(channels, &ec)
	}
	return channels, rows.Err()
}

// CountChannels returns the number of channels, total and exported.
func (s *Store) CountChannels() (total, exported int, err error) {
	err = s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(is_exported), 0) FROM channels").Scan(&total, &exported)
	return total, exported, err
}

// FindChannelIDByTvgID looks a channel up by tvg-id inside an import
// transaction. Returns 0 when absent.
func (s *Store) FindChannelIDByTvgID(tx *sql.Tx, tvgID string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM channels WHERE tvg_id = ?", tvgID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return id, err
}

// InsertImportedChannel creates a channel row from a playlist entry inside an
// import transaction. The new channel goes to the end of its group.
func (s *Store) InsertImportedChannel(tx *sql.Tx, tvgID string, originalTvgID *string, name, logo, group, url, channelType string, groupID int64) (int64, error) {
	var next int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(sort_order), 0) + 1 FROM channels WHERE group_id = ?", groupID).Scan(&next); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`
		INSERT INTO channels (tvg_id, original_tvg_id, imported_name, imported_logo, imported_group,
			imported_url, group_id, sort_order, channel_type, last_import_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tvgID, originalTvgID, name, logo, group, url, groupID, next, channelType,
		time.Now(), time.Now(), time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RefreshImportedChannel overwrites a channel's imported fields on
// re-import. Custom overrides, export flag and ordering are untouched.
func (s *Store) RefreshImportedChannel(tx *sql.Tx, id int64, name, logo, group, url, channelType string, groupID int64) error {
	_, err := tx.Exec(`
		UPDATE channels
		SET imported_name = ?, imported_logo = ?, imported_group = ?, imported_url = ?,
		    channel_type = ?, group_id = ?, last_import_at = ?, updated_at = ?
		WHERE id = ?`,
		name, logo, group, url, channelType, groupID, time.Now(), time.Now(), id)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
