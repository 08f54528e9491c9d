package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vrsandeep/antenna-go/internal/testutil"
)

const importPlaylist = `#EXTM3U
#EXTINF:-1 tvg-id="raiuno.it" tvg-logo="http://logo/rai1.png" group-title="Italy",Rai Uno
http://provider/stream/1
#EXTINF:-1 tvg-id="skysport.it" group-title="Sport",Sky Sport
http://provider/stream/2
#EXTINF:-1 tvg-id="" group-title="VOD",Heat (1995)
http://provider/movie/heat.mkv
`

// waitForJob polls the jobs endpoint until the job reaches a terminal state.
func waitForJob(t *testing.T, router http.Handler, jobID string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequest("GET", "/api/jobs/"+jobID, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Failed to fetch job %s: %d", jobID, rr.Code)
		}
		var job struct {
			Status string `json:"status"`
		}
		json.Unmarshal(rr.Body.Bytes(), &job)
		switch job.Status {
		case "completed", "failed", "cancelled":
			return job.Status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s did not finish in time", jobID)
	return ""
}

func startImport(t *testing.T, router http.Handler, endpoint, playlist string) string {
	t.Helper()
	req, _ := http.NewRequest("POST", endpoint, bytes.NewBufferString(playlist))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.JobID == "" {
		t.Fatal("Expected a job_id in the response")
	}
	return resp.JobID
}

func TestImportHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()

	t.Run("Analyze playlist", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/import/analyze", bytes.NewBufferString(importPlaylist))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var analysis struct {
			Total  int `json:"total"`
			New    int `json:"new"`
			Movies int `json:"movies"`
		}
		json.Unmarshal(rr.Body.Bytes(), &analysis)
		if analysis.Total != 2 || analysis.New != 2 || analysis.Movies != 1 {
			t.Errorf("Unexpected analysis: %s", rr.Body.String())
		}
	})

	t.Run("Rejects non-M3U body", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/import/analyze", bytes.NewBufferString("not a playlist"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Rejects unknown strategy", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/api/import/channels?strategy=merge", bytes.NewBufferString(importPlaylist))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Import channels", func(t *testing.T) {
		jobID := startImport(t, router, "/api/import/channels", importPlaylist)
		if status := waitForJob(t, router, jobID); status != "completed" {
			t.Fatalf("Expected completed job, got %s", status)
		}

		var count int
		db.QueryRow("SELECT COUNT(*) FROM channels").Scan(&count)
		if count != 2 {
			t.Errorf("Expected 2 channels imported, got %d", count)
		}
		// The provider's group labels become managed groups.
		var groups int
		db.QueryRow("SELECT COUNT(*) FROM groups").Scan(&groups)
		if groups != 2 {
			t.Errorf("Expected 2 groups, got %d", groups)
		}
	})

	t.Run("Import movies", func(t *testing.T) {
		jobID := startImport(t, router, "/api/import/movies", importPlaylist)
		if status := waitForJob(t, router, jobID); status != "completed" {
			t.Fatalf("Expected completed job, got %s", status)
		}
		var count int
		db.QueryRow("SELECT COUNT(*) FROM movies").Scan(&count)
		if count != 1 {
			t.Errorf("Expected 1 movie imported, got %d", count)
		}
	})

	t.Run("Fetch from provider URL", func(t *testing.T) {
		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(importPlaylist))
		}))
		defer provider.Close()

		req, _ := http.NewRequest("POST", "/api/import/analyze?url="+provider.URL, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}
