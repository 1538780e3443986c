package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"calstats/internal/config"
	"calstats/internal/ingest"
	"calstats/internal/metrics"
	"calstats/internal/store"
)

const fitnessCalendar = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:run-1\r\n" +
	"SUMMARY:Running\r\n" +
	"DTSTART:20240105T073000\r\n" +
	"DTEND:20240105T081500\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:run-2\r\n" +
	"SUMMARY:running\r\n" +
	"DTSTART:20240106T073000\r\n" +
	"DTEND:20240106T080000\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:read-1\r\n" +
	"SUMMARY:Reading\r\n" +
	"DTSTART:20240106T210000\r\n" +
	"DTEND:20240106T220000\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	return newTestServerOver(t, cfg, func(s store.Store) store.Store { return s })
}

// newTestServerOver builds a server over a file store passed through wrap.
func newTestServerOver(t *testing.T, cfg *config.Config, wrap func(store.Store) store.Store) *Server {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	st, err := store.Open(config.StorageConfig{Type: "file", Path: filepath.Join(t.TempDir(), "state.json")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })

	s, err := NewServer(cfg, ingest.NewCache(wrap(st), ingest.OptionsFromConfig(cfg)))
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func importFitness(t *testing.T, h http.Handler) importResponse {
	t.Helper()
	body, _ := json.Marshal(importRequest{Sources: []ingest.RawSource{
		{Name: "fitness.ics", Text: fitnessCalendar},
		{Name: "notes.txt", Text: "hello"},
	}})
	rec := do(t, h, http.MethodPost, "/api/import", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	return decode[importResponse](t, rec)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := newTestServer(t, cfg).Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health should bypass auth, got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics should bypass auth, got %d", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/events", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("admin", "secret")
	ok := httptest.NewRecorder()
	h.ServeHTTP(ok, req)
	if ok.Code != http.StatusOK {
		t.Errorf("with credentials: got %d", ok.Code)
	}
}

func TestBasicAuth_EmptyPasswordDisables(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin"}
	h := newTestServer(t, cfg).Handler()
	if rec := do(t, h, http.MethodGet, "/api/events", ""); rec.Code != http.StatusOK {
		t.Errorf("got %d", rec.Code)
	}
}

func TestImportAndEvents(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	res := importFitness(t, h)
	if res.ImportedEvents != 3 || len(res.Sources) != 1 {
		t.Errorf("import: %+v", res)
	}
	if len(res.Advisories) != 1 || res.Advisories[0] != "notes.txt is not a valid .ics file" {
		t.Errorf("advisories: %v", res.Advisories)
	}
	if !strings.HasPrefix(res.Sources[0].ID, "uploaded-1706788800000-0-") {
		t.Errorf("source id: %q", res.Sources[0].ID)
	}

	rec := do(t, h, http.MethodGet, "/api/events", "")
	got := decode[eventsResponse](t, rec)
	if got.Count != 3 || len(got.Events) != 3 {
		t.Errorf("events: %+v", got)
	}
}

func TestImport_BadRequests(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	tests := map[string]string{
		"not json":      "{",
		"no sources":    `{"sources": []}`,
		"unknown field": `{"files": []}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if rec := do(t, h, http.MethodPost, "/api/import", body); rec.Code != http.StatusBadRequest {
				t.Errorf("got %d", rec.Code)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	if rec := do(t, h, http.MethodGet, "/api/import", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("got %d", rec.Code)
	}
}

func TestStats_GlobalAndActivity(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	importFitness(t, h)

	global := decode[statsResponse](t, do(t, h, http.MethodGet, "/api/stats", ""))
	if global.Global == nil || global.Global.TotalCount != 3 || global.Global.TotalMinutes != 135 {
		t.Fatalf("global: %+v", global)
	}
	if global.Formatted["total_time"] != "0 Days, 2 Hours, 15 Minutes" {
		t.Errorf("formatted: %v", global.Formatted)
	}

	activity := decode[statsResponse](t, do(t, h, http.MethodGet, "/api/stats?q=run", ""))
	if activity.Activity == nil || activity.Activity.TotalCount != 2 {
		t.Fatalf("activity: %+v", activity)
	}
	if activity.Formatted["longest_session"] != "45m" || activity.Formatted["total_time"] != "1 Hour, 15 Minutes" {
		t.Errorf("formatted: %v", activity.Formatted)
	}
	if activity.FirstDay == nil || activity.FirstDay.Day() != 5 || activity.LastDay.Day() != 6 {
		t.Errorf("range: %v %v", activity.FirstDay, activity.LastDay)
	}
}

func TestStats_MemoizedUntilCommit(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	importFitness(t, h)

	do(t, h, http.MethodGet, "/api/stats?q=read", "")
	hits := testutil.ToFloat64(metrics.StatsCacheHits)
	do(t, h, http.MethodGet, "/api/stats?q=read", "")
	if got := testutil.ToFloat64(metrics.StatsCacheHits); got != hits+1 {
		t.Errorf("second request should hit the memo: %v -> %v", hits, got)
	}

	body := `{"removed_event_ids": ["read-1"]}`
	if rec := do(t, h, http.MethodPost, "/api/decisions", body); rec.Code != http.StatusOK {
		t.Fatalf("decisions: %d %s", rec.Code, rec.Body.String())
	}
	after := decode[statsResponse](t, do(t, h, http.MethodGet, "/api/stats?q=read", ""))
	if after.Activity == nil || after.Activity.TotalCount != 0 {
		t.Errorf("memo should be purged after decisions: %+v", after.Activity)
	}
}

// gatedStore pauses the first Load after it has read the store, until
// release is closed.
type gatedStore struct {
	store.Store
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (g *gatedStore) Load(ctx context.Context) (store.State, error) {
	st, err := g.Store.Load(ctx)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.read)
		<-g.release
	}
	return st, err
}

func TestStats_LoadRacingImportIsNotMemoized(t *testing.T) {
	gs := &gatedStore{read: make(chan struct{}), release: make(chan struct{})}
	h := newTestServerOver(t, nil, func(s store.Store) store.Store {
		gs.Store = s
		return gs
	}).Handler()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		done <- rec
	}()
	<-gs.read

	if res := importFitness(t, h); res.ImportedEvents != 3 {
		t.Fatalf("imported %d events", res.ImportedEvents)
	}
	close(gs.release)
	if rec := <-done; rec.Code != http.StatusOK {
		t.Fatalf("racing stats: %d %s", rec.Code, rec.Body.String())
	}

	got := decode[statsResponse](t, do(t, h, http.MethodGet, "/api/stats", ""))
	if got.Global == nil || got.Global.TotalCount != 3 {
		t.Errorf("stats after import: %+v", got.Global)
	}
	events := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events", ""))
	if events.Count != 3 {
		t.Errorf("events after import: %d, want 3", events.Count)
	}
}

func TestDecisions_PreviewAndPersist(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	importFitness(t, h)

	preview := decode[decisionsResponse](t, do(t, h, http.MethodPost, "/api/decisions",
		`{"title_mappings": {"running": "Running"}, "removed_event_ids": ["read-1"], "dry_run": true}`))
	if preview.Persisted {
		t.Error("dry run should not persist")
	}
	if preview.Before.TotalCount != 3 || preview.Before.UniqueActivityCount != 3 {
		t.Errorf("before: %+v", preview.Before)
	}
	if preview.After.TotalCount != 2 || preview.After.UniqueActivityCount != 1 || preview.After.TotalMinutes != 75 {
		t.Errorf("after: %+v", preview.After)
	}

	events := decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events", ""))
	if events.Count != 3 {
		t.Fatalf("dry run changed events: %d", events.Count)
	}

	applied := decode[decisionsResponse](t, do(t, h, http.MethodPost, "/api/decisions",
		`{"title_mappings": {"running": "Running"}, "removed_event_ids": ["read-1"]}`))
	if !applied.Persisted {
		t.Error("expected persisted")
	}
	events = decode[eventsResponse](t, do(t, h, http.MethodGet, "/api/events", ""))
	if events.Count != 2 {
		t.Fatalf("events after apply: %d", events.Count)
	}
	for _, ev := range events.Events {
		if ev.Title != "Running" {
			t.Errorf("title not remapped: %+v", ev)
		}
	}

	if rec := do(t, h, http.MethodPost, "/api/decisions", `{}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty decisions: got %d", rec.Code)
	}
}

func TestReview(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	importFitness(t, h)

	rev := decode[ingest.Review](t, do(t, h, http.MethodGet, "/api/review", ""))
	if len(rev.Suggestions) != 1 || len(rev.Issues) != 0 {
		t.Errorf("review: %+v", rev)
	}

	for _, bad := range []string{"0", "1.5", "-1", "NaN"} {
		if rec := do(t, h, http.MethodGet, "/api/review?threshold="+bad, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("threshold %s: got %d", bad, rec.Code)
		}
	}
}

func TestBucketsAndTop(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	importFitness(t, h)

	b := decode[bucketsResponse](t, do(t, h, http.MethodGet, "/api/buckets?q=run", ""))
	if len(b.DayOfWeek) != 7 || len(b.Month) != 12 || len(b.Hour) != 24 {
		t.Fatalf("bucket sizes: %d %d %d", len(b.DayOfWeek), len(b.Month), len(b.Hour))
	}
	if b.PeakDay != "Fri" || b.PeakMonth != "Jan" || b.PeakHour != "07:00" {
		t.Errorf("peaks: %s %s %s", b.PeakDay, b.PeakMonth, b.PeakHour)
	}
	if len(b.Weekly) != 1 || b.Weekly[0].Minutes != 75 {
		t.Errorf("weekly: %+v", b.Weekly)
	}

	empty := decode[bucketsResponse](t, do(t, h, http.MethodGet, "/api/buckets?q=nothing", ""))
	if empty.PeakDay != "" || len(empty.Weekly) != 0 {
		t.Errorf("empty scope: %+v", empty)
	}

	top := decode[[]struct {
		Name    string `json:"name"`
		Minutes int    `json:"minutes"`
		Other   bool   `json:"other"`
	}](t, do(t, h, http.MethodGet, "/api/top?n=1", ""))
	if len(top) != 2 || top[0].Name != "Reading" || top[0].Other || !top[1].Other || top[1].Minutes != 75 {
		t.Errorf("top: %+v", top)
	}
}

func TestExport(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	importFitness(t, h)

	rec := do(t, h, http.MethodGet, "/api/export.ics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type: %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "UID:run-1") {
		t.Errorf("body: %s", body)
	}
}

func TestRequestMetrics(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	before := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("health", "200"))
	do(t, h, http.MethodGet, "/health", "")
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("health", "200")); got != before+1 {
		t.Errorf("requests counter: %v -> %v", before, got)
	}
}
