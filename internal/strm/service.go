// Package strm materializes the movie library on disk as STRM files, the
// one-URL-per-file format media servers like Jellyfin scan as a library.
// Every movie lives in its own folder: {base}/{name}/{name}.strm.
package strm

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/store"
)

// batchSize is how many movies are processed between job checkpoints.
const batchSize = 500

// Service creates and reconciles STRM files under a base directory.
type Service struct {
	st       *store.Store
	jobs     *jobqueue.Queue
	basePath string
}

func NewService(st *store.Store, jobs *jobqueue.Queue, basePath string) *Service {
	return &Service{st: st, jobs: jobs, basePath: basePath}
}

var (
	unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	yearRe      = regexp.MustCompile(`\((19|20)\d{2}\)`)
)

// SanitizeName makes a movie name safe to use as a file and directory name.
func SanitizeName(name string) string {
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimRight(strings.TrimSpace(name), ".")
	if name == "" {
		name = "unnamed"
	}
	return name
}

// ExtractYear pulls a release year like "(1999)" out of a movie name.
// Returns 0 when the name carries no year.
func ExtractYear(name string) int {
	m := yearRe.FindString(name)
	if m == "" {
		return 0
	}
	year, _ := strconv.Atoi(m[1 : len(m)-1])
	return year
}

// libraryDir resolves which directory a movie belongs in, walking the
// enabled year libraries in order. The first library whose range contains
// the movie's year wins; a library with no bounds catches yearless movies.
// Movies that match no library land directly under the base path.
func (s *Service) libraryDir(name string, libs []*models.YearLibrary) string {
	year := ExtractYear(name)
	for _, lib := range libs {
		if lib.YearFrom == nil && lib.YearTo == nil {
			if year == 0 {
				return filepath.Join(s.basePath, lib.Directory)
			}
			continue
		}
		if year == 0 {
			continue
		}
		if lib.YearFrom != nil && year < *lib.YearFrom {
			continue
		}
		if lib.YearTo != nil && year > *lib.YearTo {
			continue
		}
		return filepath.Join(s.basePath, lib.Directory)
	}
	return s.basePath
}

// CreateFile writes the movie's STRM file and records the paths on the row.
func (s *Service) CreateFile(movie *models.Movie) error {
	libs, err := s.st.ListYearLibraries(true)
	if err != nil {
		return err
	}
	return s.createFile(movie, libs)
}

func (s *Service) createFile(movie *models.Movie, libs []*models.YearLibrary) error {
	name := SanitizeName(movie.Name)
	folder := filepath.Join(s.libraryDir(movie.Name, libs), name)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create movie folder: %w", err)
	}
	strmPath := filepath.Join(folder, name+".strm")
	if err := os.WriteFile(strmPath, []byte(movie.URL), 0o644); err != nil {
		return fmt.Errorf("write strm file: %w", err)
	}
	return s.st.SetMoviePaths(movie.ID, &folder, &strmPath)
}

// RemoveFiles deletes a movie's STRM file and its folder, then clears the
// recorded paths. Folders holding extra files (artwork, NFO) are kept.
func (s *Service) RemoveFiles(movie *models.Movie) error {
	if movie.StrmFilePath != nil {
		if err := os.Remove(*movie.StrmFilePath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if movie.FolderPath != nil {
		// Best effort: fails when the folder is not empty.
		_ = os.Remove(*movie.FolderPath)
	}
	return s.st.SetMoviePaths(movie.ID, nil, nil)
}

// GenerateAllJob materializes the whole movie table in the background and
// returns the job id.
func (s *Service) GenerateAllJob() (string, error) {
	movies, err := s.st.AllMovies()
	if err != nil {
		return "", err
	}
	jobID := s.jobs.CreateJob("strm_generate", "Generating STRM files", len(movies))
	err = s.jobs.StartJob(jobID, func(id string, q *jobqueue.Queue) error {
		libs, err := s.st.ListYearLibraries(true)
		if err != nil {
			return err
		}
		for i := 0; i < len(movies); i += batchSize {
			if q.IsCancelled(id) {
				return nil
			}
			end := i + batchSize
			if end > len(movies) {
				end = len(movies)
			}
			for _, movie := range movies[i:end] {
				if err := s.createFile(movie, libs); err != nil {
					q.Update(id, func(j *jobqueue.Job) {
						j.Errors++
						j.ErrorDetails = append(j.ErrorDetails, fmt.Sprintf("%s: %v", movie.Name, err))
					})
					continue
				}
				q.Update(id, func(j *jobqueue.Job) { j.Created++ })
			}
			processed := end
			q.Update(id, func(j *jobqueue.Job) { j.Processed = processed })
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// DeleteAllJob removes every materialized STRM file in the background.
func (s *Service) DeleteAllJob() (string, error) {
	movies, err := s.st.AllMovies()
	if err != nil {
		return "", err
	}
	jobID := s.jobs.CreateJob("strm_delete", "Deleting STRM files", len(movies))
	err = s.jobs.StartJob(jobID, func(id string, q *jobqueue.Queue) error {
		for i, movie := range movies {
			if i%batchSize == 0 && q.IsCancelled(id) {
				return nil
			}
			if movie.StrmFilePath == nil {
				q.Update(id, func(j *jobqueue.Job) { j.Skipped++; j.Processed++ })
				continue
			}
			if err := s.RemoveFiles(movie); err != nil {
				q.Update(id, func(j *jobqueue.Job) {
					j.Errors++
					j.Processed++
					j.ErrorDetails = append(j.ErrorDetails, fmt.Sprintf("%s: %v", movie.Name, err))
				})
				continue
			}
			q.Update(id, func(j *jobqueue.Job) { j.Deleted++; j.Processed++ })
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return jobID, nil
}

// SyncReport is the outcome of a filesystem reconciliation pass.
type SyncReport struct {
	DryRun         bool     `json:"dry_run"`
	CreatedFiles   []string `json:"created_files"`
	RewrittenFiles []string `json:"rewritten_files"`
	OrphanDirs     []string `json:"orphan_dirs"`
	Errors         []string `json:"errors,omitempty"`
}

// SyncFilesystem reconciles the on-disk library with the database in three
// phases: materialize movies whose file is missing, rewrite files whose URL
// went stale, and remove directories no movie accounts for. With dryRun set
// it only reports what would change.
func (s *Service) SyncFilesystem(dryRun bool) (*SyncReport, error) {
	movies, err := s.st.AllMovies()
	if err != nil {
		return nil, err
	}
	libs, err := s.st.ListYearLibraries(true)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{DryRun: dryRun}
	expectedDirs := make(map[string]bool)

	// Phase 1 and 2: missing and stale files.
	for _, movie := range movies {
		name := SanitizeName(movie.Name)
		folder := filepath.Join(s.libraryDir(movie.Name, libs), name)
		strmPath := filepath.Join(folder, name+".strm")
		expectedDirs[folder] = true

		content, err := os.ReadFile(strmPath)
		switch {
		case os.IsNotExist(err):
			report.CreatedFiles = append(report.CreatedFiles, strmPath)
			if !dryRun {
				if err := s.createFile(movie, libs); err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", movie.Name, err))
				}
			}
		case err != nil:
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", movie.Name, err))
		case strings.TrimSpace(string(content)) != movie.URL:
			report.RewrittenFiles = append(report.RewrittenFiles, strmPath)
			if !dryRun {
				if err := s.createFile(movie, libs); err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", movie.Name, err))
				}
			}
		default:
			// File is current; still make sure the row points at it.
			if !dryRun && (movie.StrmFilePath == nil || *movie.StrmFilePath != strmPath) {
				if err := s.st.SetMoviePaths(movie.ID, &folder, &strmPath); err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", movie.Name, err))
				}
			}
		}
	}

	// Phase 3: directories on disk that no movie accounts for.
	orphans, err := s.findOrphanDirs(expectedDirs, libs)
	if err != nil {
		return nil, err
	}
	report.OrphanDirs = orphans
	if !dryRun {
		for _, dir := range orphans {
			if err := os.RemoveAll(dir); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", dir, err))
			}
		}
	}

	log.Printf("STRM sync (dryRun=%v): %d created, %d rewritten, %d orphan dirs, %d errors",
		dryRun, len(report.CreatedFiles), len(report.RewrittenFiles), len(report.OrphanDirs), len(report.Errors))
	return report, nil
}

// findOrphanDirs lists movie folders on disk that are not expected by any
// database row. Year-library directories themselves are never orphans.
func (s *Service) findOrphanDirs(expected map[string]bool, libs []*models.YearLibrary) ([]string, error) {
	roots := []string{s.basePath}
	libRoots := make(map[string]bool)
	for _, lib := range libs {
		dir := filepath.Join(s.basePath, lib.Directory)
		roots = append(roots, dir)
		libRoots[dir] = true
	}

	var orphans []string
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(root, entry.Name())
			if expected[dir] || libRoots[dir] {
				continue
			}
			orphans = append(orphans, dir)
		}
	}
	return orphans, nil
}
