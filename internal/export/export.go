// Package export renders the curated channel table back into an M3U playlist
// for players to consume.
package export

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/vrsandeep/antenna-go/internal/m3u"
	"github.com/vrsandeep/antenna-go/internal/store"
)

// PlaylistFileName is the generated playlist on disk.
const PlaylistFileName = "playlist.m3u"

// Service generates the export playlist.
type Service struct {
	st         *store.Store
	outputPath string
	baseURL    string
}

func NewService(st *store.Store, outputPath, baseURL string) *Service {
	return &Service{st: st, outputPath: outputPath, baseURL: baseURL}
}

// PlaylistPath is where the generated playlist lives on disk.
func (s *Service) PlaylistPath() string {
	return filepath.Join(s.outputPath, PlaylistFileName)
}

// EpgURL is the guide address advertised in the playlist header.
func (s *Service) EpgURL() string {
	return strings.TrimRight(s.baseURL, "/") + "/epg/" + "guide.xml"
}

// entries loads the exported channels as playlist entries.
func (s *Service) entries() ([]m3u.Entry, error) {
	channels, err := s.st.ListExportedChannels()
	if err != nil {
		return nil, err
	}
	entries := make([]m3u.Entry, 0, len(channels))
	for _, ch := range channels {
		entries = append(entries, m3u.Entry{
			TvgID:      ch.TvgID,
			TvgName:    ch.Name,
			TvgLogo:    ch.Logo,
			GroupTitle: ch.GroupName,
			Name:       ch.Name,
			URL:        ch.URL,
		})
	}
	return entries, nil
}

// WritePlaylist renders the playlist to w.
func (s *Service) WritePlaylist(w io.Writer) error {
	entries, err := s.entries()
	if err != nil {
		return err
	}
	return m3u.Write(w, entries, m3u.WriteOptions{EpgURL: s.EpgURL()})
}

// Generate rewrites the playlist file on disk. It is called after every
// change that affects the export, so players always fetch a current file.
func (s *Service) Generate() error {
	if err := os.MkdirAll(s.outputPath, 0o755); err != nil {
		return err
	}
	tmp := s.PlaylistPath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := s.WritePlaylist(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.PlaylistPath()); err != nil {
		return err
	}
	log.Printf("Export playlist regenerated at %s", s.PlaylistPath())
	return nil
}

// Preview returns the first n playlist entries without touching the disk.
func (s *Service) Preview(n int) ([]m3u.Entry, error) {
	entries, err := s.entries()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Stats summarizes what the export would contain.
type Stats struct {
	Channels      int    `json:"channels"`
	Groups        int    `json:"groups"`
	PlaylistURL   string `json:"playlist_url"`
	EpgURL        string `json:"epg_url"`
	FileGenerated bool   `json:"file_generated"`
}

// GetStats reports the export surface: channel and group counts plus the
// public URLs players should use.
func (s *Service) GetStats() (*Stats, error) {
	entries, err := s.entries()
	if err != nil {
		return nil, err
	}
	groups := make(map[string]bool)
	for _, e := range entries {
		if e.GroupTitle != "" {
			groups[e.GroupTitle] = true
		}
	}
	_, statErr := os.Stat(s.PlaylistPath())
	return &Stats{
		Channels:      len(entries),
		Groups:        len(groups),
		PlaylistURL:   fmt.Sprintf("%s/export/%s", strings.TrimRight(s.baseURL, "/"), PlaylistFileName),
		EpgURL:        s.EpgURL(),
		FileGenerated: statErr == nil,
	}, nil
}
