package matching

import (
	"fmt"
	"log"

	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/store"
)

// Service runs EPG matching against the source catalogs in the store.
type Service struct {
	st *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{st: st}
}

// FindExactMatch looks up the channel's tvg-id and all of its generated
// variations in the enabled-source catalogs with a single query. Returns
// store.ErrNotFound when nothing matches.
func (s *Service) FindExactMatch(tvgID string) (*models.EpgSourceChannel, error) {
	if tvgID == "" {
		return nil, store.ErrNotFound
	}
	candidates := append([]string{tvgID}, Variations(tvgID)...)
	return s.st.FindSourceChannelByXmltvIDs(candidates)
}

// FuzzyMatch is a fuzzy-match candidate with its similarity score.
type FuzzyMatch struct {
	Channel *models.EpgSourceChannel `json:"channel"`
	Score   float64                  `json:"score"`
}

// FindFuzzyMatch scores the channel name against the display name of every
// enabled-source catalog entry and returns the best candidate at or above
// MatchThreshold.
// The catalog is pre-sorted by source priority, so on equal scores the
// higher-priority source wins.
func (s *Service) FindFuzzyMatch(name string) (*FuzzyMatch, error) {
	if name == "" {
		return nil, store.ErrNotFound
	}
	catalog, err := s.st.ListEnabledSourceChannels()
	if err != nil {
		return nil, err
	}

	var best *FuzzyMatch
	for _, ch := range catalog {
		score := Similarity(name, ch.DisplayName)
		if score < MatchThreshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &FuzzyMatch{Channel: ch, Score: score}
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

// Alternatives returns every catalog entry reachable from the channel's
// tvg-id through exact or variation lookups, best first.
func (s *Service) Alternatives(tvgID string) ([]*models.EpgSourceChannel, error) {
	if tvgID == "" {
		return nil, nil
	}
	candidates := append([]string{tvgID}, Variations(tvgID)...)
	return s.st.FindSourceChannelsByXmltvIDs(candidates)
}

// Map assigns a source channel to a channel, replacing any previous mapping.
func (s *Service) Map(channelID, sourceChannelID int64, quality string, manual bool) error {
	sc, err := s.st.GetSourceChannel(sourceChannelID)
	if err != nil {
		return fmt.Errorf("resolve source channel: %w", err)
	}
	return s.st.ReplaceMapping(channelID, sc.ID, sc.SourcePriority, quality, manual)
}

// AutoMatchOptions tunes an auto-match run.
type AutoMatchOptions struct {
	UseFuzzy        bool
	OverwriteManual bool
}

// AutoMatchResult summarizes an auto-match run.
type AutoMatchResult struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Exact     int `json:"exact"`
	Fuzzy     int `json:"fuzzy"`
	Skipped   int `json:"skipped"`
	Unmatched int `json:"unmatched"`
}

// AutoMatchAll walks every eligible channel (non-empty tvg-id, flagged for
// export) and tries to map it: exact/variation lookup first, then optionally
// a fuzzy pass on the display name. Manual mappings are preserved unless
// OverwriteManual is set.
func (s *Service) AutoMatchAll(opts AutoMatchOptions) (*AutoMatchResult, error) {
	channels, err := s.st.ListChannels(store.ChannelFilter{ExportedOnly: true, WithTvgID: true})
	if err != nil {
		return nil, err
	}

	res := &AutoMatchResult{Total: len(channels)}
	for _, ch := range channels {
		if !opts.OverwriteManual {
			manual, err := s.st.HasManualMapping(ch.ID)
			if err != nil {
				return nil, err
			}
			if manual {
				res.Skipped++
				continue
			}
		}

		if sc, err := s.FindExactMatch(ch.TvgID); err == nil {
			if err := s.st.ReplaceMapping(ch.ID, sc.ID, sc.SourcePriority, models.MatchExact, false); err != nil {
				return nil, err
			}
			res.Matched++
			res.Exact++
			continue
		} else if err != store.ErrNotFound {
			return nil, err
		}

		if opts.UseFuzzy {
			if fm, err := s.FindFuzzyMatch(ch.DisplayName()); err == nil {
				if err := s.st.ReplaceMapping(ch.ID, fm.Channel.ID, fm.Channel.SourcePriority, models.MatchFuzzy, false); err != nil {
					return nil, err
				}
				log.Printf("Fuzzy matched %q to %q (%.2f)", ch.DisplayName(), fm.Channel.DisplayName, fm.Score)
				res.Matched++
				res.Fuzzy++
				continue
			} else if err != store.ErrNotFound {
				return nil, err
			}
		}

		res.Unmatched++
	}
	return res, nil
}
