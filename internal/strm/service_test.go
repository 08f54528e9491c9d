package strm_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/store"
	"github.com/vrsandeep/antenna-go/internal/strm"
	"github.com/vrsandeep/antenna-go/internal/testutil"
)

func setup(t *testing.T) (*strm.Service, *store.Store, *sql.DB, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	base := t.TempDir()
	return strm.NewService(st, jobqueue.New(nil), base), st, db, base
}

func addMovie(t *testing.T, db *sql.DB, name, url string) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO movies (name, url) VALUES (?, ?)", name, url)
	if err != nil {
		t.Fatalf("insert movie: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func waitForJob(t *testing.T, q *jobqueue.Queue, id string) *jobqueue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job := q.Get(id); job != nil && job.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return nil
}

func TestSanitizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Die Hard (1988)", "Die Hard (1988)"},
		{`What/If: Part<1>`, "WhatIf Part1"},
		{"Ends with dots...", "Ends with dots"},
		{"", "unnamed"},
	}
	for _, c := range cases {
		if got := strm.SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtractYear(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"Die Hard (1988)", 1988},
		{"Dune (2021)", 2021},
		{"No Year Here", 0},
		{"Fake (3021)", 0},
	}
	for _, c := range cases {
		if got := strm.ExtractYear(c.in); got != c.want {
			t.Errorf("ExtractYear(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCreateAndRemoveFile(t *testing.T) {
	svc, st, db, base := setup(t)
	id := addMovie(t, db, "Die Hard (1988)", "http://s/movie/1.mkv")

	movie, err := st.GetMovie(id)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateFile(movie); err != nil {
		t.Fatalf("create: %v", err)
	}

	strmPath := filepath.Join(base, "Die Hard (1988)", "Die Hard (1988).strm")
	content, err := os.ReadFile(strmPath)
	if err != nil {
		t.Fatalf("strm file not created: %v", err)
	}
	if string(content) != "http://s/movie/1.mkv" {
		t.Errorf("strm content = %q", content)
	}

	movie, _ = st.GetMovie(id)
	if movie.StrmFilePath == nil || *movie.StrmFilePath != strmPath {
		t.Errorf("paths not recorded on the row: %+v", movie)
	}

	if err := svc.RemoveFiles(movie); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(strmPath); !os.IsNotExist(err) {
		t.Errorf("strm file still exists")
	}
	movie, _ = st.GetMovie(id)
	if movie.StrmFilePath != nil {
		t.Errorf("paths not cleared: %+v", movie)
	}
}

func TestYearLibraryRouting(t *testing.T) {
	svc, st, db, base := setup(t)
	if _, err := st.CreateYearLibrary("Classics", intPtr(1900), intPtr(1999), "classics"); err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateYearLibrary("No Year", nil, nil, "unsorted"); err != nil {
		t.Fatal(err)
	}

	oldID := addMovie(t, db, "Die Hard (1988)", "http://s/1.mkv")
	newID := addMovie(t, db, "Dune (2021)", "http://s/2.mkv")
	noYearID := addMovie(t, db, "Mystery Film", "http://s/3.mkv")

	for _, id := range []int64{oldID, newID, noYearID} {
		movie, _ := st.GetMovie(id)
		if err := svc.CreateFile(movie); err != nil {
			t.Fatalf("create %s: %v", movie.Name, err)
		}
	}

	checks := []struct{ path string }{
		{filepath.Join(base, "classics", "Die Hard (1988)", "Die Hard (1988).strm")},
		{filepath.Join(base, "Dune (2021)", "Dune (2021).strm")},
		{filepath.Join(base, "unsorted", "Mystery Film", "Mystery Film.strm")},
	}
	for _, c := range checks {
		if _, err := os.Stat(c.path); err != nil {
			t.Errorf("expected file at %s: %v", c.path, err)
		}
	}
}

func TestGenerateAllJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	q := jobqueue.New(nil)
	base := t.TempDir()
	svc := strm.NewService(st, q, base)

	addMovie(t, db, "Movie A", "http://s/a.mkv")
	addMovie(t, db, "Movie B", "http://s/b.mkv")

	jobID, err := svc.GenerateAllJob()
	if err != nil {
		t.Fatal(err)
	}
	job := waitForJob(t, q, jobID)
	if job.Status != jobqueue.StatusCompleted {
		t.Fatalf("job status %s: %s", job.Status, job.Error)
	}
	if job.Created != 2 {
		t.Errorf("got %d created, want 2", job.Created)
	}
	for _, name := range []string{"Movie A", "Movie B"} {
		if _, err := os.Stat(filepath.Join(base, name, name+".strm")); err != nil {
			t.Errorf("missing strm for %s: %v", name, err)
		}
	}
}

func TestSyncFilesystem(t *testing.T) {
	svc, st, db, base := setup(t)

	missingID := addMovie(t, db, "Missing Movie", "http://s/missing.mkv")
	staleID := addMovie(t, db, "Stale Movie", "http://s/new-url.mkv")

	// Materialize the stale movie with an outdated URL on disk.
	staleDir := filepath.Join(base, "Stale Movie")
	os.MkdirAll(staleDir, 0o755)
	stalePath := filepath.Join(staleDir, "Stale Movie.strm")
	os.WriteFile(stalePath, []byte("http://s/old-url.mkv"), 0o644)

	// An on-disk folder no movie accounts for.
	orphanDir := filepath.Join(base, "Deleted Movie")
	os.MkdirAll(orphanDir, 0o755)
	os.WriteFile(filepath.Join(orphanDir, "Deleted Movie.strm"), []byte("http://s/x.mkv"), 0o644)

	t.Run("dry run only reports", func(t *testing.T) {
		report, err := svc.SyncFilesystem(true)
		if err != nil {
			t.Fatal(err)
		}
		if len(report.CreatedFiles) != 1 || len(report.RewrittenFiles) != 1 || len(report.OrphanDirs) != 1 {
			t.Errorf("unexpected report: %+v", report)
		}
		if _, err := os.Stat(orphanDir); err != nil {
			t.Errorf("dry run removed the orphan dir")
		}
		if movie, _ := st.GetMovie(missingID); movie.StrmFilePath != nil {
			t.Errorf("dry run materialized a movie")
		}
	})

	t.Run("real run applies all three phases", func(t *testing.T) {
		report, err := svc.SyncFilesystem(false)
		if err != nil {
			t.Fatal(err)
		}
		if len(report.Errors) != 0 {
			t.Fatalf("sync errors: %v", report.Errors)
		}

		if _, err := os.Stat(filepath.Join(base, "Missing Movie", "Missing Movie.strm")); err != nil {
			t.Errorf("missing movie not materialized: %v", err)
		}
		content, _ := os.ReadFile(stalePath)
		if string(content) != "http://s/new-url.mkv" {
			t.Errorf("stale file not rewritten: %q", content)
		}
		if _, err := os.Stat(orphanDir); !os.IsNotExist(err) {
			t.Errorf("orphan dir survived")
		}
		if movie, _ := st.GetMovie(staleID); movie.StrmFilePath == nil {
			t.Errorf("paths not recorded during sync")
		}
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		report, err := svc.SyncFilesystem(false)
		if err != nil {
			t.Fatal(err)
		}
		if len(report.CreatedFiles)+len(report.RewrittenFiles)+len(report.OrphanDirs) != 0 {
			t.Errorf("expected converged state, got %+v", report)
		}
	})
}

func intPtr(v int) *int { return &v }
