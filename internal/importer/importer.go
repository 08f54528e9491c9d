// Package importer loads M3U playlists into the channel and movie tables.
// Imports run as background jobs: large provider playlists carry six-figure
// entry counts and take longer than an HTTP request should.
package importer

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/m3u"
	"github.com/vrsandeep/antenna-go/internal/store"
	"github.com/vrsandeep/antenna-go/internal/strm"
)

// batchSize is how many entries are committed per transaction. Cancellation
// is checked between batches, so a cancelled import keeps its committed
// batches.
const batchSize = 500

// Duplicate strategies for channels whose tvg-id already exists in the
// database. Duplicates within one playlist are always renamed regardless of
// strategy, because two rows cannot share a tvg-id.
const (
	StrategyReplace = "replace"
	StrategySkip    = "skip"
	StrategyRename  = "rename"
)

// Service runs playlist imports.
type Service struct {
	st     *store.Store
	jobs   *jobqueue.Queue
	strm   *strm.Service
	client *http.Client
}

func NewService(st *store.Store, jobs *jobqueue.Queue, strmSvc *strm.Service, fetchTimeout time.Duration) *Service {
	return &Service{
		st:   st,
		jobs: jobs,
		strm: strmSvc,
		client: &http.Client{
			Timeout: fetchTimeout,
		},
	}
}

// FetchPlaylist downloads and parses an M3U playlist from a URL.
func (s *Service) FetchPlaylist(url string) (*m3u.Playlist, error) {
	resp, err := s.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch playlist: server returned %s", resp.Status)
	}
	return m3u.Parse(resp.Body)
}

// ParsePlaylist parses an uploaded M3U document.
func (s *Service) ParsePlaylist(r io.Reader) (*m3u.Playlist, error) {
	return m3u.Parse(r)
}

// Analysis previews what a channel import would do.
type Analysis struct {
	Total          int `json:"total"`
	New            int `json:"new"`
	Existing       int `json:"existing"`
	FileDuplicates int `json:"file_duplicates"`
	Movies         int `json:"movies"`
	SeriesSkipped  int `json:"series_skipped"`
}

// AnalyzeChannels reports, without writing anything, how many playlist
// entries are new, collide with existing channels, or repeat a tvg-id within
// the playlist itself.
func (s *Service) AnalyzeChannels(pl *m3u.Playlist) (*Analysis, error) {
	a := &Analysis{SeriesSkipped: pl.SeriesSkipped}
	seen := make(map[string]bool)
	for _, e := range pl.Entries {
		if e.Type == m3u.TypeMovie {
			a.Movies++
			continue
		}
		a.Total++
		if seen[e.TvgID] {
			a.FileDuplicates++
			continue
		}
		seen[e.TvgID] = true
		_, err := s.st.GetChannelByTvgID(e.TvgID)
		switch err {
		case nil:
			a.Existing++
		case store.ErrNotFound:
			a.New++
		default:
			return nil, err
		}
	}
	return a, nil
}

// ImportChannelsJob imports the playlist's TV entries in the background and
// returns the job id.
func (s *Service) ImportChannelsJob(pl *m3u.Playlist, strategy string) (string, error) {
	switch strategy {
	case StrategyReplace, StrategySkip, StrategyRename:
	default:
		return "", fmt.Errorf("unknown duplicate strategy %q", strategy)
	}

	var entries []m3u.Entry
	for _, e := range pl.Entries {
		if e.Type == m3u.TypeTV {
			entries = append(entries, e)
		}
	}

	jobID := s.jobs.CreateJob("channel_import",
		fmt.Sprintf("Importing %d channels (%s)", len(entries), strategy), len(entries))
	err := s.jobs.StartJob(jobID, func(id string, q *jobqueue.Queue) error {
		return s.importChannels(id, q, entries, strategy)
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *Service) importChannels(jobID string, q *jobqueue.Queue, entries []m3u.Entry, strategy string) error {
	// Within-playlist duplicate tracking spans batches.
	seen := make(map[string]bool)

	for start := 0; start < len(entries); start += batchSize {
		if q.IsCancelled(jobID) {
			return nil
		}
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		tx, err := s.st.DB().Begin()
		if err != nil {
			return err
		}
		for _, e := range entries[start:end] {
			groupName := e.GroupTitle
			if groupName == "" {
				groupName = "Uncategorized"
			}
			groupID, err := s.st.FindOrCreateGroup(tx, groupName)
			if err != nil {
				tx.Rollback()
				return err
			}

			tvgID := e.TvgID
			var originalID *string
			if seen[tvgID] {
				// A playlist repeating a tvg-id always gets the repeat
				// renamed; two channels cannot share an identifier.
				renamed, err := s.uniqueTvgID(tx, tvgID, seen)
				if err != nil {
					tx.Rollback()
					return err
				}
				orig := tvgID
				originalID = &orig
				tvgID = renamed
			}
			seen[tvgID] = true

			existingID, err := s.st.FindChannelIDByTvgID(tx, tvgID)
			if err != nil {
				tx.Rollback()
				return err
			}

			switch {
			case existingID == 0:
				if _, err := s.st.InsertImportedChannel(tx, tvgID, originalID, e.Name, e.TvgLogo, e.GroupTitle, e.URL, e.Type, groupID); err != nil {
					tx.Rollback()
					return err
				}
				q.Update(jobID, func(j *jobqueue.Job) { j.Created++ })
			case strategy == StrategyReplace:
				if err := s.st.RefreshImportedChannel(tx, existingID, e.Name, e.TvgLogo, e.GroupTitle, e.URL, e.Type, groupID); err != nil {
					tx.Rollback()
					return err
				}
				q.Update(jobID, func(j *jobqueue.Job) { j.Updated++ })
			case strategy == StrategySkip:
				q.Update(jobID, func(j *jobqueue.Job) { j.Skipped++ })
			case strategy == StrategyRename:
				renamed, err := s.uniqueTvgID(tx, tvgID, seen)
				if err != nil {
					tx.Rollback()
					return err
				}
				orig := tvgID
				seen[renamed] = true
				if _, err := s.st.InsertImportedChannel(tx, renamed, &orig, e.Name, e.TvgLogo, e.GroupTitle, e.URL, e.Type, groupID); err != nil {
					tx.Rollback()
					return err
				}
				q.Update(jobID, func(j *jobqueue.Job) { j.Created++ })
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		processed := end
		q.Update(jobID, func(j *jobqueue.Job) { j.Processed = processed })
	}
	return nil
}

// uniqueTvgID finds the first "id-2", "id-3"... free both in the database
// and in the current playlist.
func (s *Service) uniqueTvgID(tx *sql.Tx, tvgID string, seen map[string]bool) (string, error) {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", tvgID, i)
		if seen[candidate] {
			continue
		}
		existing, err := s.st.FindChannelIDByTvgID(tx, candidate)
		if err != nil {
			return "", err
		}
		if existing == 0 {
			return candidate, nil
		}
	}
}

// ImportMoviesJob upserts the playlist's movie entries and prunes movies
// that vanished from the feed, removing their STRM files.
func (s *Service) ImportMoviesJob(pl *m3u.Playlist) (string, error) {
	var entries []m3u.Entry
	for _, e := range pl.Entries {
		if e.Type == m3u.TypeMovie {
			entries = append(entries, e)
		}
	}

	jobID := s.jobs.CreateJob("movie_import",
		fmt.Sprintf("Importing %d movies", len(entries)), len(entries))
	err := s.jobs.StartJob(jobID, func(id string, q *jobqueue.Queue) error {
		return s.importMovies(id, q, entries)
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *Service) importMovies(jobID string, q *jobqueue.Queue, entries []m3u.Entry) error {
	importStart := time.Now()

	for start := 0; start < len(entries); start += batchSize {
		if q.IsCancelled(jobID) {
			return nil
		}
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		tx, err := s.st.DB().Begin()
		if err != nil {
			return err
		}
		for _, e := range entries[start:end] {
			if e.Name == "" {
				q.Update(jobID, func(j *jobqueue.Job) {
					j.Errors++
					j.ErrorDetails = append(j.ErrorDetails, fmt.Sprintf("movie with empty name (%s)", e.URL))
				})
				continue
			}
			group := e.GroupTitle
			if group == "" {
				group = "Uncategorized"
			}
			_, created, err := s.st.UpsertMovie(tx, e.Name, e.TvgLogo, group, e.URL, importStart)
			if err != nil {
				q.Update(jobID, func(j *jobqueue.Job) {
					j.Errors++
					j.ErrorDetails = append(j.ErrorDetails, fmt.Sprintf("%s: %v", e.Name, err))
				})
				continue
			}
			if created {
				q.Update(jobID, func(j *jobqueue.Job) { j.Created++ })
			} else {
				q.Update(jobID, func(j *jobqueue.Job) { j.Updated++ })
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		processed := end
		q.Update(jobID, func(j *jobqueue.Job) { j.Processed = processed })
	}

	if q.IsCancelled(jobID) {
		return nil
	}

	// Prune movies the feed no longer carries, files included.
	stale, err := s.st.DeleteMoviesNotSeenSince(importStart)
	if err != nil {
		return err
	}
	for _, movie := range stale {
		if movie.StrmFilePath == nil {
			continue
		}
		if err := s.strm.RemoveFiles(movie); err != nil {
			q.Update(jobID, func(j *jobqueue.Job) {
				j.ErrorDetails = append(j.ErrorDetails, fmt.Sprintf("remove files for %s: %v", movie.Name, err))
			})
		}
	}
	staleCount := len(stale)
	q.Update(jobID, func(j *jobqueue.Job) { j.Deleted = staleCount })
	return nil
}
