package api_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/vrsandeep/antenna-go/internal/models"
	"github.com/vrsandeep/antenna-go/internal/testutil"
)

func seedMovie(t *testing.T, db *sql.DB, name, url string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO movies (name, url, last_seen_at) VALUES (?, ?, ?)`,
		name, url, time.Now())
	if err != nil {
		t.Fatalf("Failed to seed movie %s: %v", name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestMovieAndStrmHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()

	heatID := seedMovie(t, db, "Heat (1995)", "http://provider/movie/heat.mkv")
	seedMovie(t, db, "Casino (1995)", "http://provider/movie/casino.mkv")

	t.Run("List movies with search", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/movies?search=heat", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		var movies []*models.Movie
		json.Unmarshal(rr.Body.Bytes(), &movies)
		if len(movies) != 1 || movies[0].ID != heatID {
			t.Errorf("Expected only Heat, got %+v", movies)
		}
	})

	t.Run("Generate STRM files", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/strm/generate", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusAccepted {
			t.Fatalf("Expected status 202, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp struct {
			JobID string `json:"job_id"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if status := waitForJob(t, router, resp.JobID); status != "completed" {
			t.Fatalf("Expected completed job, got %s", status)
		}

		var path sql.NullString
		db.QueryRow("SELECT strm_file_path FROM movies WHERE id = ?", heatID).Scan(&path)
		if !path.Valid {
			t.Fatal("Expected movie to be materialized")
		}
		if _, err := os.Stat(path.String); err != nil {
			t.Errorf("Expected STRM file on disk: %v", err)
		}
	})

	t.Run("Sync dry run reports nothing to do", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/strm/sync?dry_run=true", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var report struct {
			DryRun       bool     `json:"dry_run"`
			CreatedFiles []string `json:"created_files"`
			OrphanDirs   []string `json:"orphan_dirs"`
		}
		json.Unmarshal(rr.Body.Bytes(), &report)
		if !report.DryRun || len(report.CreatedFiles) != 0 || len(report.OrphanDirs) != 0 {
			t.Errorf("Unexpected sync report: %s", rr.Body.String())
		}
	})

	t.Run("Delete movie removes files", func(t *testing.T) {
		var path string
		db.QueryRow("SELECT strm_file_path FROM movies WHERE id = ?", heatID).Scan(&path)

		req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/movies/%d", heatID), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected STRM file removed, stat err: %v", err)
		}
	})
}

func TestYearLibraryHandlers(t *testing.T) {
	server, _ := testutil.SetupTestServer(t)
	router := server.Router()

	var libID int64

	t.Run("Create", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "Classics", "year_from": 1900, "year_to": 1979, "directory": "classics"}`)
		req, _ := http.NewRequest("POST", "/api/year-libraries", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		var lib models.YearLibrary
		json.Unmarshal(rr.Body.Bytes(), &lib)
		if lib.Directory != "classics" || lib.YearFrom == nil || *lib.YearFrom != 1900 {
			t.Errorf("Unexpected library: %+v", lib)
		}
		libID = lib.ID
	})

	t.Run("Missing directory rejected", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "Broken"}`)
		req, _ := http.NewRequest("POST", "/api/year-libraries", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Update", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "Classics", "year_to": 1989, "directory": "classics", "enabled": false}`)
		req, _ := http.NewRequest("PUT", fmt.Sprintf("/api/year-libraries/%d", libID), body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var lib models.YearLibrary
		json.Unmarshal(rr.Body.Bytes(), &lib)
		if lib.Enabled || lib.YearFrom != nil || lib.YearTo == nil || *lib.YearTo != 1989 {
			t.Errorf("Unexpected library after update: %+v", lib)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/year-libraries/%d", libID), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
	})
}

func TestCleanupHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()

	seedMovie(t, db, "Al Pacino - Heat (1995)", "http://provider/movie/heat.mkv")

	t.Run("Create pattern", func(t *testing.T) {
		body := bytes.NewBufferString(`{"value": "Al Pacino"}`)
		req, _ := http.NewRequest("POST", "/api/cleanup/patterns", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("Analyze proposes renames", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/cleanup/analyze", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var proposals []struct {
			CleanedName string `json:"cleaned_name"`
		}
		json.Unmarshal(rr.Body.Bytes(), &proposals)
		if len(proposals) != 1 || proposals[0].CleanedName != "Heat (1995)" {
			t.Errorf("Unexpected proposals: %s", rr.Body.String())
		}
	})

	t.Run("Apply renames and records history", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/cleanup/apply", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var name string
		db.QueryRow("SELECT name FROM movies").Scan(&name)
		if name != "Heat (1995)" {
			t.Errorf("Expected renamed movie, got %q", name)
		}

		req, _ = http.NewRequest("GET", "/api/cleanup/history", nil)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		var history []struct {
			OriginalName string `json:"original_name"`
		}
		json.Unmarshal(rr.Body.Bytes(), &history)
		if len(history) != 1 || history[0].OriginalName != "Al Pacino - Heat (1995)" {
			t.Errorf("Unexpected history: %s", rr.Body.String())
		}
	})
}
