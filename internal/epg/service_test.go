package epg_test

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vrsandeep/antenna-go/internal/epg"
	"github.com/vrsandeep/antenna-go/internal/jobqueue"
	"github.com/vrsandeep/antenna-go/internal/store"
	"github.com/vrsandeep/antenna-go/internal/testutil"
)

func setup(t *testing.T) (*epg.Service, *store.Store, *sql.DB, *jobqueue.Queue, string) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	st := store.New(db)
	q := jobqueue.New(nil)
	dataPath := t.TempDir()
	sitesPath := t.TempDir()
	svc := epg.NewService(st, q, dataPath, sitesPath, 5*time.Second)
	return svc, st, db, q, sitesPath
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

const catalogXML = `<?xml version="1.0" encoding="UTF-8"?>
<channels>
  <channel site="guida.tv" lang="it" xmltv_id="raiuno.it" site_id="rai-1">Rai Uno</channel>
  <channel site="guida.tv" lang="it" xmltv_id="canale5.it" site_id="canale-5">Canale 5</channel>
</channels>`

func TestSyncSourceChannelsFromFile(t *testing.T) {
	svc, st, _, _, sitesPath := setup(t)

	src, err := st.CreateEpgSource("guida.tv", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sitesPath, "guida.tv.channels.xml"), []byte(catalogXML), 0o644); err != nil {
		t.Fatal(err)
	}

	count, err := svc.SyncSourceChannels(src.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d channels, want 2", count)
	}

	channels, err := st.ListSourceChannels(src.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(channels) != 2 {
		t.Fatalf("got %d catalog entries, want 2", len(channels))
	}
	if channels[0].DisplayName != "Canale 5" || channels[0].XmltvID != "canale5.it" {
		t.Errorf("unexpected first entry: %+v", channels[0])
	}

	t.Run("resync replaces the catalog", func(t *testing.T) {
		smaller := `<channels><channel site="guida.tv" lang="it" xmltv_id="raiuno.it" site_id="rai-1">Rai Uno</channel></channels>`
		os.WriteFile(filepath.Join(sitesPath, "guida.tv.channels.xml"), []byte(smaller), 0o644)
		count, err := svc.SyncSourceChannels(src.ID)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("got %d channels, want 1", count)
		}
		channels, _ := st.ListSourceChannels(src.ID, "")
		if len(channels) != 1 {
			t.Errorf("old catalog entries survived the resync: %d", len(channels))
		}
	})
}

func TestSyncSourceChannelsFromURL(t *testing.T) {
	svc, st, _, _, _ := setup(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "guide.channels.xml") {
			fmt.Fprint(w, catalogXML)
			return
		}
		http.NotFound(w, r)
	}))
	defer ts.Close()

	src, _ := st.CreateEpgSource("remote.tv", ts.URL+"/guide.xml", 1)
	count, err := svc.SyncSourceChannels(src.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d channels, want 2", count)
	}
}

const guideXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="raiuno.it"><display-name>Rai Uno</display-name></channel>
  <channel id="unmapped.it"><display-name>Unmapped</display-name></channel>
  <programme start="20260901180000 +0000" stop="20260901190000 +0000" channel="raiuno.it">
    <title lang="it">Telegiornale</title>
  </programme>
  <programme start="20260901180000 +0000" channel="unmapped.it">
    <title>Ignored Show</title>
  </programme>
</tv>`

func TestRefreshGuide(t *testing.T) {
	svc, st, db, q, _ := setup(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, guideXML)
	}))
	defer ts.Close()

	src, _ := st.CreateEpgSource("guida.tv", ts.URL+"/guide.xml", 1)
	res, err := db.Exec(
		"INSERT INTO epg_source_channels (epg_source_id, xmltv_id, display_name) VALUES (?, 'raiuno.it', 'Rai Uno')", src.ID)
	if err != nil {
		t.Fatal(err)
	}
	scID, _ := res.LastInsertId()
	chRes, _ := db.Exec("INSERT INTO channels (tvg_id, imported_name) VALUES ('RaiUno HD', 'Rai Uno HD')")
	chID, _ := chRes.LastInsertId()
	if err := st.ReplaceMapping(chID, scID, 1, "exact", false); err != nil {
		t.Fatal(err)
	}

	jobID, err := svc.RefreshGuideJob()
	if err != nil {
		t.Fatal(err)
	}
	job := waitForJob(t, q, jobID)
	if job.Status != jobqueue.StatusCompleted {
		t.Fatalf("job %s: %s", job.Status, job.Error)
	}
	if job.Errors != 0 {
		t.Fatalf("refresh errors: %v", job.ErrorDetails)
	}

	content, err := os.ReadFile(svc.GuidePath())
	if err != nil {
		t.Fatalf("guide not written: %v", err)
	}
	out := string(content)

	// Programme carried over, rewritten to the playlist tvg-id.
	if !strings.Contains(out, `channel="RaiUno HD"`) {
		t.Errorf("programme not rewritten to playlist id:\n%s", out)
	}
	if !strings.Contains(out, "Telegiornale") {
		t.Errorf("mapped programme missing:\n%s", out)
	}
	if strings.Contains(out, "unmapped.it") || strings.Contains(out, "Ignored Show") {
		t.Errorf("unmapped channel leaked into the guide:\n%s", out)
	}

	// Refresh is logged.
	logs, err := st.ListRefreshLogs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Status != "success" {
		t.Errorf("unexpected refresh logs: %+v", logs)
	}

	// Source row carries the outcome.
	updated, _ := st.GetEpgSource(src.ID)
	if updated.LastRefreshStatus != "success" || updated.LastRefreshAt == nil {
		t.Errorf("source refresh status not recorded: %+v", updated)
	}
}

func TestRefreshGuideSourceFailure(t *testing.T) {
	svc, st, db, q, _ := setup(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	src, _ := st.CreateEpgSource("broken.tv", ts.URL+"/guide.xml", 1)
	res, _ := db.Exec(
		"INSERT INTO epg_source_channels (epg_source_id, xmltv_id, display_name) VALUES (?, 'x.it', 'X')", src.ID)
	scID, _ := res.LastInsertId()
	chRes, _ := db.Exec("INSERT INTO channels (tvg_id, imported_name) VALUES ('x.it', 'X')")
	chID, _ := chRes.LastInsertId()
	st.ReplaceMapping(chID, scID, 1, "exact", false)

	jobID, err := svc.RefreshGuideJob()
	if err != nil {
		t.Fatal(err)
	}
	job := waitForJob(t, q, jobID)
	if job.Errors != 1 {
		t.Errorf("got %d errors, want 1", job.Errors)
	}

	logs, _ := st.ListRefreshLogs(10)
	if len(logs) != 1 || logs[0].Status != "partial" {
		t.Errorf("expected a partial refresh log, got %+v", logs)
	}
	updated, _ := st.GetEpgSource(src.ID)
	if updated.LastRefreshStatus != "error" {
		t.Errorf("source status = %q, want error", updated.LastRefreshStatus)
	}
}

func TestGenerateChannelsXML(t *testing.T) {
	svc, st, db, _, _ := setup(t)

	src, _ := st.CreateEpgSource("guida.tv", "", 1)
	res, _ := db.Exec(
		"INSERT INTO epg_source_channels (epg_source_id, xmltv_id, display_name) VALUES (?, 'raiuno.it', 'Rai Uno')", src.ID)
	scID, _ := res.LastInsertId()
	chRes, _ := db.Exec(
		"INSERT INTO channels (tvg_id, imported_name, imported_logo) VALUES ('RaiUno HD', 'Rai Uno HD', 'http://logo/1.png')")
	chID, _ := chRes.LastInsertId()
	st.ReplaceMapping(chID, scID, 1, "exact", false)

	var buf bytes.Buffer
	if err := svc.GenerateChannelsXML(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `id="RaiUno HD"`) {
		t.Errorf("channel id should be the playlist tvg-id:\n%s", out)
	}
	if !strings.Contains(out, "Rai Uno HD") || !strings.Contains(out, "http://logo/1.png") {
		t.Errorf("display name or icon missing:\n%s", out)
	}
}
