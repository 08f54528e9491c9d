package epg

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/store"
)

// GuideFileName is the merged XMLTV document served to players.
const GuideFileName = "guide.xml"

// Service syncs source catalogs and assembles the merged guide.
type Service struct {
	st        *store.Store
	jobs      *jobqueue.Queue
	dataPath  string // merged guide output
	sitesPath string // local per-site catalog files
	client    *http.Client
}

func NewService(st *store.Store, jobs *jobqueue.Queue, dataPath, sitesPath string, fetchTimeout time.Duration) *Service {
	return &Service{
		st:        st,
		jobs:      jobs,
		dataPath:  dataPath,
		sitesPath: sitesPath,
		client:    &http.Client{Timeout: fetchTimeout},
	}
}

// GuidePath is where the merged guide lives on disk.
func (s *Service) GuidePath() string {
	return filepath.Join(s.dataPath, GuideFileName)
}

// SyncSourceChannels replaces a source's channel catalog from its channel
// list. A source with a site_url fetches <site_url>.channels.xml next to the
// guide; otherwise the catalog is read from {sites_path}/{site_name}.channels.xml.
func (s *Service) SyncSourceChannels(sourceID int64) (int, error) {
	source, err := s.st.GetEpgSource(sourceID)
	if err != nil {
		return 0, err
	}

	var r io.ReadCloser
	if source.SiteURL != "" {
		resp, err := s.client.Get(catalogURL(source.SiteURL))
		if err != nil {
			return 0, fmt.Errorf("fetch catalog for %s: %w", source.SiteName, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return 0, fmt.Errorf("fetch catalog for %s: server returned %s", source.SiteName, resp.Status)
		}
		r = resp.Body
	} else {
		f, err := os.Open(filepath.Join(s.sitesPath, source.SiteName+".channels.xml"))
		if err != nil {
			return 0, fmt.Errorf("open catalog for %s: %w", source.SiteName, err)
		}
		r = f
	}
	defer r.Close()

	var list siteChannelList
	if err := xml.NewDecoder(r).Decode(&list); err != nil {
		return 0, fmt.Errorf("parse catalog for %s: %w", source.SiteName, err)
	}

	channels := make([]*models.EpgSourceChannel, 0, len(list.Channels))
	for _, sc := range list.Channels {
		channels = append(channels, &models.EpgSourceChannel{
			Site:        sc.Site,
			Lang:        sc.Lang,
			XmltvID:     sc.XmltvID,
			SiteID:      sc.SiteID,
			DisplayName: strings.TrimSpace(sc.Name),
		})
	}
	if err := s.st.ReplaceSourceChannels(sourceID, channels); err != nil {
		return 0, err
	}
	return len(channels), nil
}

// catalogURL derives the channel-list endpoint from a guide URL:
// ".../guide.xml" publishes its catalog at ".../guide.channels.xml".
func catalogURL(guideURL string) string {
	if strings.HasSuffix(guideURL, ".xml") {
		return strings.TrimSuffix(guideURL, ".xml") + ".channels.xml"
	}
	return guideURL
}

// GenerateChannelsXML renders the mapped channels as an XMLTV channel list.
// Channel ids are the playlist tvg-ids, not the source xmltv ids, so the
// guide lines up with the exported playlist.
func (s *Service) GenerateChannelsXML(w io.Writer) error {
	mapped, err := s.st.ListMappedChannels(nil)
	if err != nil {
		return err
	}
	doc := XMLTV{GeneratorName: "antenna"}
	for _, mc := range mapped {
		ch := Channel{ID: mc.TvgID, DisplayName: []string{mc.Name}}
		if mc.Logo != "" {
			ch.Icon = &Icon{Src: mc.Logo}
		}
		doc.Channels = append(doc.Channels, ch)
	}
	return writeXML(w, &doc)
}

// RefreshGuideJob rebuilds the merged guide in the background: every enabled
// source's guide is fetched, trimmed to the channels mapped to it, rewritten
// to playlist ids and merged in priority order.
func (s *Service) RefreshGuideJob() (string, error) {
	sources, err := s.st.ListEpgSources()
	if err != nil {
		return "", err
	}
	var enabled []*models.EpgSource
	for _, src := range sources {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}

	jobID := s.jobs.CreateJob("epg_refresh", "Refreshing EPG guide", len(enabled))
	err = s.jobs.StartJob(jobID, func(id string, q *jobqueue.Queue) error {
		return s.refreshGuide(id, q, enabled)
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

func (s *Service) refreshGuide(jobID string, q *jobqueue.Queue, sources []*models.EpgSource) error {
	logID, err := s.st.StartRefreshLog(nil)
	if err != nil {
		return err
	}

	merged := XMLTV{GeneratorName: "antenna"}
	seenChannels := make(map[string]bool)
	var firstErr error

	for i, source := range sources {
		if q.IsCancelled(jobID) {
			msg := "cancelled"
			s.st.FinishRefreshLog(logID, "cancelled", len(merged.Channels), &msg)
			return nil
		}

		count, err := s.refreshSource(source, &merged, seenChannels)
		if err != nil {
			errMsg := err.Error()
			s.st.SetSourceRefreshResult(source.ID, "error", &errMsg)
			q.Update(jobID, func(j *jobqueue.Job) {
				j.Errors++
				j.ErrorDetails = append(j.ErrorDetails, fmt.Sprintf("%s: %v", source.SiteName, err))
			})
			if firstErr == nil {
				firstErr = err
			}
		} else {
			s.st.SetSourceRefreshResult(source.ID, "success", nil)
			q.Update(jobID, func(j *jobqueue.Job) { j.Updated += count })
		}
		processed := i + 1
		q.Update(jobID, func(j *jobqueue.Job) { j.Processed = processed })
	}

	if err := s.writeGuide(&merged); err != nil {
		msg := err.Error()
		s.st.FinishRefreshLog(logID, "error", len(merged.Channels), &msg)
		return err
	}

	status := "success"
	var logMsg *string
	if firstErr != nil {
		status = "partial"
		msg := firstErr.Error()
		logMsg = &msg
	}
	if err := s.st.FinishRefreshLog(logID, status, len(merged.Channels), logMsg); err != nil {
		return err
	}
	return nil
}

// refreshSource pulls one source's guide and merges the programmes of its
// mapped channels, rewriting channel ids to playlist tvg-ids. A tvg-id
// already claimed by a higher-priority source is skipped.
func (s *Service) refreshSource(source *models.EpgSource, merged *XMLTV, seen map[string]bool) (int, error) {
	if source.SiteURL == "" {
		return 0, fmt.Errorf("source has no guide URL")
	}
	mapped, err := s.st.ListMappedChannels(&source.ID)
	if err != nil {
		return 0, err
	}
	if len(mapped) == 0 {
		return 0, nil
	}

	resp, err := s.client.Get(source.SiteURL)
	if err != nil {
		return 0, fmt.Errorf("fetch guide: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch guide: server returned %s", resp.Status)
	}

	var guide XMLTV
	if err := xml.NewDecoder(resp.Body).Decode(&guide); err != nil {
		return 0, fmt.Errorf("parse guide: %w", err)
	}

	// Index the desired xmltv ids to the playlist channels wanting them.
	wanted := make(map[string][]*store.MappedChannel)
	for _, mc := range mapped {
		if seen[mc.TvgID] {
			continue
		}
		key := strings.ToLower(mc.XmltvID)
		wanted[key] = append(wanted[key], mc)
	}

	count := 0
	for _, mcs := range wanted {
		for _, mc := range mcs {
			seen[mc.TvgID] = true
			ch := Channel{ID: mc.TvgID, DisplayName: []string{mc.Name}}
			if mc.Logo != "" {
				ch.Icon = &Icon{Src: mc.Logo}
			}
			merged.Channels = append(merged.Channels, ch)
			count++
		}
	}
	for _, prog := range guide.Programmes {
		for _, mc := range wanted[strings.ToLower(prog.Channel)] {
			p := prog
			p.Channel = mc.TvgID
			merged.Programmes = append(merged.Programmes, p)
		}
	}
	return count, nil
}

// writeGuide atomically replaces the merged guide on disk.
func (s *Service) writeGuide(doc *XMLTV) error {
	if err := os.MkdirAll(s.dataPath, 0o755); err != nil {
		return err
	}
	tmp := s.GuidePath() + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := writeXML(f, doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.GuidePath())
}

func writeXML(w io.Writer, doc *XMLTV) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
