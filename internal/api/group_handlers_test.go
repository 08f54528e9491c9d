package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vrsandeep/antenna-go/internal/testutil"
)

func TestGroupHandlers(t *testing.T) {
	server, db := testutil.SetupTestServer(t)
	router := server.Router()

	var groupID int64

	t.Run("Create group", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "Sports"}`)
		req, _ := http.NewRequest("POST", "/api/groups", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		var created struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if created.Name != "Sports" {
			t.Errorf("Expected name 'Sports', got %q", created.Name)
		}
		groupID = created.ID
	})

	t.Run("Duplicate name conflicts", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "Sports"}`)
		req, _ := http.NewRequest("POST", "/api/groups", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", rr.Code)
		}
	})

	t.Run("List groups with channel counts", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO channels (tvg_id, imported_name, imported_url, group_id) VALUES ('espn.com', 'ESPN', 'http://x/1', ?)`, groupID)
		if err != nil {
			t.Fatalf("Failed to seed channel: %v", err)
		}
		req, _ := http.NewRequest("GET", "/api/groups", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		var groups []struct {
			ID           int64 `json:"id"`
			ChannelCount int   `json:"channel_count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &groups); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if len(groups) != 1 || groups[0].ChannelCount != 1 {
			t.Errorf("Expected one group with one channel, got %+v", groups)
		}
	})

	t.Run("Update group", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "Sport", "is_exported": false}`)
		req, _ := http.NewRequest("PUT", fmt.Sprintf("/api/groups/%d", groupID), body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var name string
		var exported bool
		if err := db.QueryRow("SELECT name, is_exported FROM groups WHERE id = ?", groupID).Scan(&name, &exported); err != nil {
			t.Fatalf("Failed to reload group: %v", err)
		}
		if name != "Sport" || exported {
			t.Errorf("Expected renamed, unexported group, got %q exported=%v", name, exported)
		}
	})

	t.Run("Reorder groups", func(t *testing.T) {
		body := bytes.NewBufferString(`{"name": "News"}`)
		req, _ := http.NewRequest("POST", "/api/groups", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		var second struct {
			ID int64 `json:"id"`
		}
		json.Unmarshal(rr.Body.Bytes(), &second)

		payload := fmt.Sprintf(`{"group_ids": [%d, %d]}`, second.ID, groupID)
		req, _ = http.NewRequest("POST", "/api/groups/reorder", bytes.NewBufferString(payload))
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}

		var firstID int64
		if err := db.QueryRow("SELECT id FROM groups ORDER BY sort_order LIMIT 1").Scan(&firstID); err != nil {
			t.Fatalf("Failed to query groups: %v", err)
		}
		if firstID != second.ID {
			t.Errorf("Expected group %d first after reorder, got %d", second.ID, firstID)
		}
	})

	t.Run("Delete group", func(t *testing.T) {
		req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/groups/%d", groupID), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		// The channel survives with a cleared group.
		var gid *int64
		if err := db.QueryRow("SELECT group_id FROM channels WHERE tvg_id = 'espn.com'").Scan(&gid); err != nil {
			t.Fatalf("Failed to reload channel: %v", err)
		}
		if gid != nil {
			t.Errorf("Expected channel group_id cleared, got %v", *gid)
		}
	})

	t.Run("Delete missing group", func(t *testing.T) {
		req, _ := http.NewRequest("DELETE", "/api/groups/9999", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", rr.Code)
		}
	})
}
