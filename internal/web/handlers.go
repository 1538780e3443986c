package web

import (
	"bytes"
	"math"
	"net/http"
	"strings"
	"time"

	"calstats/internal/ics"
	"calstats/internal/ingest"
	appLog "calstats/internal/log"
	"calstats/internal/metrics"
	"calstats/internal/model"
	"calstats/internal/stats"
	"calstats/internal/store"
)

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events []model.CalendarEvent `json:"events"`
	Count  int                   `json:"count"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, ok := s.events(w, r)
	if !ok {
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}

// events loads the cached event set, writing a 500 on failure.
func (s *Server) events(w http.ResponseWriter, r *http.Request) ([]model.CalendarEvent, bool) {
	events, err := s.cache.Get(r.Context())
	if err != nil {
		appLog.Error("api: failed to load events", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return nil, false
	}
	return events, true
}

// statsResponse carries the raw numbers plus display strings.
type statsResponse struct {
	Global    *stats.GlobalStats   `json:"global,omitempty"`
	Activity  *stats.ActivityStats `json:"activity,omitempty"`
	Formatted map[string]string    `json:"formatted"`
	FirstDay  *time.Time           `json:"first_day,omitempty"`
	LastDay   *time.Time           `json:"last_day,omitempty"`
}

// GET /api/stats?q=term
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if resp, ok := s.statsMemo.Get(statsKey{gen: s.cache.Generation(), term: term}); ok {
		metrics.StatsCacheHits.Inc()
		writeJSON(w, http.StatusOK, resp)
		return
	}
	metrics.StatsCacheMisses.Inc()

	snap, err := s.cache.Snapshot(r.Context())
	if err != nil {
		appLog.Error("api: failed to load events", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	resp := buildStatsResponse(snap.Events, term)
	// Keyed by the generation the events were read under; a load that raced
	// a commit lands under a stale key.
	s.statsMemo.Add(statsKey{gen: snap.Generation, term: term}, resp)
	writeJSON(w, http.StatusOK, resp)
}

func buildStatsResponse(events []model.CalendarEvent, term string) statsResponse {
	res := ingest.RecomputeStats(events, term)
	resp := statsResponse{
		Global:    res.Global,
		Activity:  res.Activity,
		Formatted: map[string]string{},
	}

	scope := events
	if res.Global != nil {
		resp.Formatted["total_time"] = stats.FormatDaysHoursMinutes(res.Global.TotalMinutes)
		resp.Formatted["total_hours"] = stats.FormatHoursMinutes(res.Global.TotalMinutes)
	} else {
		a := res.Activity
		scope = stats.FilterByTitle(events, term)
		resp.Formatted["total_time"] = stats.FormatHoursMinutes(a.TotalMinutes)
		resp.Formatted["average_session"] = stats.FormatMinutes(int(math.Round(a.AverageSessionMinutes)))
		if a.LongestSession != nil {
			resp.Formatted["longest_session"] = stats.FormatCompact(a.LongestSession.Minutes)
		}
	}

	if first, last, ok := stats.DateRange(scope); ok {
		resp.FirstDay, resp.LastDay = &first, &last
	}
	return resp
}

// bucketsResponse holds the chart series for one scope.
type bucketsResponse struct {
	DayOfWeek []stats.Bucket    `json:"day_of_week"`
	Month     []stats.Bucket    `json:"month"`
	Hour      []stats.Bucket    `json:"hour"`
	Weekly    []stats.WeekPoint `json:"weekly"`
	PeakDay   string            `json:"peak_day,omitempty"`
	PeakMonth string            `json:"peak_month,omitempty"`
	PeakHour  string            `json:"peak_hour,omitempty"`
}

// GET /api/buckets?q=term
func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	events, ok := s.events(w, r)
	if !ok {
		return
	}
	if term := strings.TrimSpace(r.URL.Query().Get("q")); term != "" {
		events = stats.FilterByTitle(events, term)
	}

	days := stats.ByDayOfWeek(events)
	months := stats.ByMonth(events)
	hours := stats.ByHour(events)
	resp := bucketsResponse{
		DayOfWeek: days[:],
		Month:     months[:],
		Hour:      hours[:],
		Weekly:    stats.WeeklySeries(events),
		PeakDay:   peakLabel(days[:]),
		PeakMonth: peakLabel(months[:]),
		PeakHour:  peakLabel(hours[:]),
	}
	writeJSON(w, http.StatusOK, resp)
}

func peakLabel(buckets []stats.Bucket) string {
	if i := stats.PeakBucket(buckets); i >= 0 {
		return buckets[i].Label
	}
	return ""
}

// GET /api/top?n=5
func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	events, ok := s.events(w, r)
	if !ok {
		return
	}
	n := parseIntDefault(r.URL.Query().Get("n"), 5)
	writeJSON(w, http.StatusOK, stats.TopActivities(events, n))
}

// GET /api/review?threshold=0.7
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	threshold := parseFloatDefault(r.URL.Query().Get("threshold"), s.cfg.SimilarityThreshold)
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		writeError(w, http.StatusBadRequest, "threshold must be in (0, 1]")
		return
	}

	events, ok := s.events(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ingest.ReviewSuggestions(events, threshold, s.now()))
}

// GET /api/export.ics
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	events, ok := s.events(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, events); err != nil {
		appLog.Error("api export: encode failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export events")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calstats.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type importRequest struct {
	Sources []ingest.RawSource `json:"sources"`
}

type sourceSummary struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	ImportedAt  time.Time `json:"imported_at"`
}

type importResponse struct {
	ImportedEvents int             `json:"imported_events"`
	Sources        []sourceSummary `json:"sources"`
	Advisories     []string        `json:"advisories"`
}

// POST /api/import
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Sources) == 0 {
		writeError(w, http.StatusBadRequest, "no sources given")
		return
	}

	res := ingest.ImportSourcesWithOptions(req.Sources, ingest.OptionsFromConfig(s.cfg), s.now())
	if len(res.Sources) > 0 {
		if _, err := s.cache.Commit(r.Context(), res.Sources, nil, nil); err != nil {
			appLog.Error("api import: commit failed", err)
			writeError(w, http.StatusInternalServerError, "failed to save imported sources")
			return
		}
		s.statsMemo.Purge()
	}

	resp := importResponse{
		ImportedEvents: len(res.Events),
		Sources:        summarize(res.Sources),
		Advisories:     res.Advisories,
	}
	writeJSON(w, http.StatusOK, resp)
}

func summarize(records []store.SourceRecord) []sourceSummary {
	out := make([]sourceSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, sourceSummary{ID: rec.ID, DisplayName: rec.DisplayName, ImportedAt: rec.ImportedAt})
	}
	return out
}

type decisionsRequest struct {
	TitleMappings   map[string]string `json:"title_mappings"`
	RemovedEventIDs []string          `json:"removed_event_ids"`
	// DryRun returns the before/after preview without persisting.
	DryRun bool `json:"dry_run"`
}

type decisionsResponse struct {
	Before    stats.GlobalStats `json:"before"`
	After     stats.GlobalStats `json:"after"`
	Persisted bool              `json:"persisted"`
}

// POST /api/decisions
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	var req decisionsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.TitleMappings) == 0 && len(req.RemovedEventIDs) == 0 {
		writeError(w, http.StatusBadRequest, "no decisions given")
		return
	}

	events, ok := s.events(w, r)
	if !ok {
		return
	}
	resp := decisionsResponse{
		Before: stats.ComputeGlobalStats(events),
		After:  stats.ComputeGlobalStats(ingest.ApplyDecisions(events, req.TitleMappings, req.RemovedEventIDs)),
	}

	if !req.DryRun {
		if _, err := s.cache.Commit(r.Context(), nil, req.TitleMappings, req.RemovedEventIDs); err != nil {
			appLog.Error("api decisions: commit failed", err)
			writeError(w, http.StatusInternalServerError, "failed to save decisions")
			return
		}
		s.statsMemo.Purge()
		resp.Persisted = true
	}
	writeJSON(w, http.StatusOK, resp)
}
