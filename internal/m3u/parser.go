// Package m3u reads and writes extended M3U playlists, the interchange
// format of IPTV providers.
package m3u

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Entry types recognized from a playlist URL.
const (
	TypeTV     = "tv"
	TypeMovie  = "movie"
	TypeSeries = "series"
)

// Entry is one #EXTINF record of a playlist.
type Entry struct {
	TvgID      string `json:"tvg_id"`
	TvgName    string `json:"tvg_name,omitempty"`
	TvgLogo    string `json:"tvg_logo,omitempty"`
	GroupTitle string `json:"group_title,omitempty"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Type       string `json:"type"`
}

// Playlist is the result of parsing an M3U document.
type Playlist struct {
	Entries []Entry
	// SeriesSkipped counts series URLs dropped during parsing.
	SeriesSkipped int
}

var attrRe = regexp.MustCompile(`([a-zA-Z0-9-]+)="([^"]*)"`)

// Parse reads an extended M3U document. Entries with a /series/ URL are
// counted and dropped: series are out of scope for the library. A missing
// tvg-id is backfilled from a slug of the entry name so every entry can be
// keyed.
func Parse(r io.Reader) (*Playlist, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	pl := &Playlist{}
	var pending *Entry
	firstLine := true

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if firstLine {
			firstLine = false
			line = strings.TrimPrefix(line, "\uFEFF")
			if !strings.HasPrefix(line, "#EXTM3U") {
				return nil, fmt.Errorf("not an M3U document: missing #EXTM3U header")
			}
			continue
		}
		switch {
		case line == "" || strings.HasPrefix(line, "#EXTM3U"):
			continue
		case strings.HasPrefix(line, "#EXTINF"):
			e := parseExtinf(line)
			pending = &e
		case strings.HasPrefix(line, "#"):
			// Other directives (#EXTGRP etc.) are ignored.
			continue
		default:
			if pending == nil {
				continue
			}
			pending.URL = line
			pending.Type = ClassifyURL(line)
			if pending.Type == TypeSeries {
				pl.SeriesSkipped++
			} else {
				if pending.TvgID == "" {
					pending.TvgID = GenerateID(pending.Name)
				}
				pl.Entries = append(pl.Entries, *pending)
			}
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pl, nil
}

// parseExtinf pulls the quoted attributes and the display name out of an
// #EXTINF line. The name is everything after the last comma outside the
// attribute section.
func parseExtinf(line string) Entry {
	var e Entry
	for _, m := range attrRe.FindAllStringSubmatch(line, -1) {
		switch strings.ToLower(m[1]) {
		case "tvg-id":
			e.TvgID = m[2]
		case "tvg-name":
			e.TvgName = m[2]
		case "tvg-logo":
			e.TvgLogo = m[2]
		case "group-title":
			e.GroupTitle = m[2]
		}
	}
	if i := strings.LastIndex(line, ","); i >= 0 {
		e.Name = strings.TrimSpace(line[i+1:])
	}
	if e.Name == "" {
		e.Name = e.TvgName
	}
	return e
}

// ClassifyURL decides the entry type from its stream URL path.
func ClassifyURL(url string) string {
	switch {
	case strings.Contains(url, "/series/"):
		return TypeSeries
	case strings.Contains(url, "/movie/"):
		return TypeMovie
	default:
		return TypeTV
	}
}

// GenerateID derives a stable identifier from an entry name, for playlists
// whose entries carry no tvg-id.
func GenerateID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
