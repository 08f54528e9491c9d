// Package cleanup strips junk the provider bakes into movie names, most
// commonly an actor name bolted on as prefix or suffix ("Bruce Willis - Die
// Hard (1988)"). Renames are audited and the on-disk library follows.
package cleanup

import (
	"fmt"
	"strings"

	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/store"
	"github.com/vrsandeep/antenna-go/internal/strm"
)

// Service applies cleanup patterns to the movie table.
type Service struct {
	st   *store.Store
	strm *strm.Service
}

func NewService(st *store.Store, strmSvc *strm.Service) *Service {
	return &Service{st: st, strm: strmSvc}
}

// CleanName applies the first matching pattern to a movie name. Returns the
// cleaned name and the pattern that fired, or the input unchanged.
func CleanName(name string, patterns []*models.CleanupPattern) (string, *models.CleanupPattern) {
	for _, p := range patterns {
		if p.Type != "actor" || p.Value == "" {
			continue
		}
		if cleaned, ok := stripActor(name, p.Value); ok {
			return cleaned, p
		}
	}
	return name, nil
}

// stripActor removes an actor name attached to the title as a prefix
// ("Actor - Title", "Actor: Title") or suffix ("Title - Actor"),
// case-insensitively.
func stripActor(name, actor string) (string, bool) {
	lower := strings.ToLower(name)
	actorLower := strings.ToLower(actor)

	for _, sep := range []string{" - ", ": ", " – "} {
		prefix := actorLower + sep
		if strings.HasPrefix(lower, prefix) {
			cleaned := strings.TrimSpace(name[len(prefix):])
			if cleaned != "" {
				return cleaned, true
			}
		}
	}
	for _, sep := range []string{" - ", " – "} {
		suffix := sep + actorLower
		if strings.HasSuffix(lower, suffix) {
			cleaned := strings.TrimSpace(name[:len(name)-len(suffix)])
			if cleaned != "" {
				return cleaned, true
			}
		}
	}
	return "", false
}

// Proposal is one rename the cleanup pass wants to make.
type Proposal struct {
	MovieID      int64  `json:"movie_id"`
	OriginalName string `json:"original_name"`
	CleanedName  string `json:"cleaned_name"`
	PatternID    int64  `json:"pattern_id"`
	PatternValue string `json:"pattern_value"`
}

// Analyze walks the movie table and reports which names the enabled patterns
// would change, without renaming anything.
func (s *Service) Analyze() ([]*Proposal, error) {
	patterns, err := s.st.ListCleanupPatterns(true)
	if err != nil {
		return nil, err
	}
	movies, err := s.st.AllMovies()
	if err != nil {
		return nil, err
	}

	var proposals []*Proposal
	for _, movie := range movies {
		cleaned, pattern := CleanName(movie.Name, patterns)
		if pattern == nil || cleaned == movie.Name {
			continue
		}
		proposals = append(proposals, &Proposal{
			MovieID:      movie.ID,
			OriginalName: movie.Name,
			CleanedName:  cleaned,
			PatternID:    pattern.ID,
			PatternValue: pattern.Value,
		})
	}
	return proposals, nil
}

// ApplyResult summarizes an Apply run.
type ApplyResult struct {
	Renamed int      `json:"renamed"`
	Errors  []string `json:"errors,omitempty"`
}

// Apply performs the proposed renames. When two movies clean to the same
// name, later ones get a " [2]", " [3]"... suffix so names stay unique. The
// on-disk STRM files move with the rename.
func (s *Service) Apply() (*ApplyResult, error) {
	proposals, err := s.Analyze()
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{}
	for _, p := range proposals {
		movie, err := s.st.GetMovie(p.MovieID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.OriginalName, err))
			continue
		}

		finalName, err := s.st.FindUniqueMovieName(p.CleanedName, p.MovieID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.OriginalName, err))
			continue
		}
		patternID := p.PatternID
		if err := s.st.RecordCleanup(p.MovieID, p.OriginalName, finalName, &patternID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", p.OriginalName, err))
			continue
		}

		// Re-materialize under the new name.
		if movie.StrmFilePath != nil {
			if err := s.strm.RemoveFiles(movie); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: remove old files: %v", p.OriginalName, err))
			}
			renamed, err := s.st.GetMovie(p.MovieID)
			if err == nil {
				if err := s.strm.CreateFile(renamed); err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("%s: create files: %v", finalName, err))
				}
			}
		}
		result.Renamed++
	}
	return result, nil
}
