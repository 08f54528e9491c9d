package cleanup_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/vrsandeep/antenna-go/internal/cleanup"
	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/store"
	"github.com/vrsandeep/antenna-go/internal/strm"
	"github.com/vrsandeep/antenna-go/internal/testutil"
)

func setup(t *testing.T) (*cleanup.Service, *store.Store, *sql.DB, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	base := t.TempDir()
	strmSvc := strm.NewService(st, jobqueue.New(nil), base)
	return cleanup.NewService(st, strmSvc), st, db, base
}

func TestCleanName(t *testing.T) {
	patterns := []*models.CleanupPattern{
		{ID: 1, Type: "actor", Value: "Bruce Willis", Enabled: true},
		{ID: 2, Type: "actor", Value: "Tom Hanks", Enabled: true},
	}

	cases := []struct {
		in, want string
		pattern  int64
	}{
		{"Bruce Willis - Die Hard (1988)", "Die Hard (1988)", 1},
		{"bruce willis - Die Hard (1988)", "Die Hard (1988)", 1},
		{"Die Hard (1988) - Bruce Willis", "Die Hard (1988)", 1},
		{"Tom Hanks: Cast Away (2000)", "Cast Away (2000)", 2},
		{"Die Hard (1988)", "Die Hard (1988)", 0},
		{"Bruce Willision - Film", "Bruce Willision - Film", 0},
	}
	for _, c := range cases {
		got, p := cleanup.CleanName(c.in, patterns)
		if got != c.want {
			t.Errorf("CleanName(%q) = %q, want %q", c.in, got, c.want)
		}
		var gotID int64
		if p != nil {
			gotID = p.ID
		}
		if gotID != c.pattern {
			t.Errorf("CleanName(%q) fired pattern %d, want %d", c.in, gotID, c.pattern)
		}
	}
}

func TestAnalyze(t *testing.T) {
	svc, st, db, _ := setup(t)
	st.CreateCleanupPattern("actor", "Bruce Willis", "")
	db.Exec("INSERT INTO movies (name, url) VALUES ('Bruce Willis - Die Hard (1988)', 'http://s/1.mkv')")
	db.Exec("INSERT INTO movies (name, url) VALUES ('Clean Movie (2000)', 'http://s/2.mkv')")

	proposals, err := svc.Analyze()
	if err != nil {
		t.Fatal(err)
	}
	if len(proposals) != 1 {
		t.Fatalf("got %d proposals, want 1", len(proposals))
	}
	if proposals[0].CleanedName != "Die Hard (1988)" {
		t.Errorf("got %q", proposals[0].CleanedName)
	}

	// Disabled patterns do not fire.
	p, _ := st.ListCleanupPatterns(false)
	st.UpdateCleanupPattern(p[0].ID, p[0].Value, "", false)
	proposals, _ = svc.Analyze()
	if len(proposals) != 0 {
		t.Errorf("disabled pattern still proposed %d renames", len(proposals))
	}
}

func TestApply(t *testing.T) {
	svc, st, db, base := setup(t)
	st.CreateCleanupPattern("actor", "Bruce Willis", "")

	res, _ := db.Exec("INSERT INTO movies (name, url) VALUES ('Bruce Willis - Die Hard (1988)', 'http://s/1.mkv')")
	movieID, _ := res.LastInsertId()
	db.Exec("INSERT INTO movies (name, url) VALUES ('Die Hard (1988) - Bruce Willis', 'http://s/1-copy.mkv')")

	// Materialize the first movie so the rename has files to move.
	movie, _ := st.GetMovie(movieID)
	strmSvc := strm.NewService(st, jobqueue.New(nil), base)
	if err := strmSvc.CreateFile(movie); err != nil {
		t.Fatal(err)
	}

	result, err := svc.Apply()
	if err != nil {
		t.Fatal(err)
	}
	if result.Renamed != 2 {
		t.Fatalf("got %d renamed, want 2: %v", result.Renamed, result.Errors)
	}

	t.Run("colliding names get a numeric suffix", func(t *testing.T) {
		if _, err := st.GetMovieByName("Die Hard (1988)"); err != nil {
			t.Errorf("first cleaned movie missing: %v", err)
		}
		if _, err := st.GetMovieByName("Die Hard (1988) [2]"); err != nil {
			t.Errorf("second cleaned movie not suffixed: %v", err)
		}
	})

	t.Run("files follow the rename", func(t *testing.T) {
		oldPath := filepath.Join(base, "Bruce Willis - Die Hard (1988)")
		newPath := filepath.Join(base, "Die Hard (1988)", "Die Hard (1988).strm")
		if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
			t.Errorf("old folder still on disk")
		}
		if _, err := os.Stat(newPath); err != nil {
			t.Errorf("new strm missing: %v", err)
		}
	})

	t.Run("history records the renames", func(t *testing.T) {
		history, err := st.ListCleanupHistory(10)
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 2 {
			t.Fatalf("got %d history entries, want 2", len(history))
		}
		found := false
		for _, h := range history {
			if h.OriginalName == "Bruce Willis - Die Hard (1988)" && h.CleanedName == "Die Hard (1988)" {
				found = true
				if h.PatternValue != "Bruce Willis" {
					t.Errorf("pattern not joined: %+v", h)
				}
			}
		}
		if !found {
			t.Errorf("expected rename not in history: %+v", history)
		}
	})

	t.Run("second apply is a no-op", func(t *testing.T) {
		result, err := svc.Apply()
		if err != nil {
			t.Fatal(err)
		}
		if result.Renamed != 0 {
			t.Errorf("apply is not idempotent: %d renames", result.Renamed)
		}
	})
}
