// Package ingest is the boundary between collaborators (API, CLI) and the
// pure analytics packages: it turns uploaded text into events, applies
// review decisions and owns the cached event set.
package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"calstats/internal/config"
	"calstats/internal/ics"
	appLog "calstats/internal/log"
	"calstats/internal/metrics"
	"calstats/internal/model"
	"calstats/internal/stats"
	"calstats/internal/store"
	"calstats/internal/suggest"
)

// RawSource is one calendar text handed to ImportSources.
type RawSource struct {
	// ID, when set, is used verbatim as the source id (configured feeds).
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// ImportResult is the outcome of an import. Advisories are user-facing
// messages for files that were skipped; they are not errors.
type ImportResult struct {
	Events     []model.CalendarEvent `json:"events"`
	Sources    []store.SourceRecord  `json:"sources"`
	Advisories []string              `json:"advisories"`
}

// OptionsFromConfig derives parser options from the application config.
func OptionsFromConfig(cfg *config.Config) ics.Options {
	if cfg == nil {
		return ics.Options{}
	}
	return ics.Options{
		ExpandRecurrence:       cfg.ExpandRecurrence,
		MaxOccurrencesPerEvent: cfg.MaxOccurrencesPerEvent,
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ImportSources parses texts without recurrence expansion.
func ImportSources(texts []RawSource) ImportResult {
	return ImportSourcesWithOptions(texts, ics.Options{}, time.Now())
}

// ImportSourcesWithOptions parses each text into events. Files that do not
// look like calendars, or that yield no events, are reported as advisories
// and produce no source record.
func ImportSourcesWithOptions(texts []RawSource, opts ics.Options, now time.Time) ImportResult {
	res := ImportResult{
		Events:     []model.CalendarEvent{},
		Sources:    []store.SourceRecord{},
		Advisories: []string{},
	}

	for i, raw := range texts {
		label := raw.Name
		if label == "" {
			label = fmt.Sprintf("file %d", i+1)
		}

		if !looksLikeCalendar(raw) {
			res.Advisories = append(res.Advisories, label+" is not a valid .ics file")
			continue
		}

		id := raw.ID
		if id == "" {
			id = uploadID(now, i, raw.Name)
		}

		events, err := ics.ParseICS(ics.Source{ID: id, Name: raw.Name}, []byte(raw.Text), opts)
		if err != nil {
			appLog.Debug("import skipped file", "source", id, "reason", err.Error())
			res.Advisories = append(res.Advisories, label+" contains no events")
			continue
		}

		res.Events = append(res.Events, events...)
		res.Sources = append(res.Sources, store.SourceRecord{
			ID:          id,
			DisplayName: raw.Name,
			RawText:     raw.Text,
			ImportedAt:  now.UTC(),
		})
		metrics.SourcesImported.Inc()
	}

	if len(res.Events) == 0 && len(res.Advisories) == 0 {
		res.Advisories = append(res.Advisories, "No events found in the selected files")
	}

	appLog.Info("import completed", "files", len(texts), "accepted", len(res.Sources), "events", len(res.Events), "advisories", len(res.Advisories))
	return res
}

// uploadID builds "uploaded-<unixMillis>-<index>-<name>" with every
// non-alphanumeric rune of the name replaced by '-'.
func uploadID(now time.Time, i int, name string) string {
	safe := unsafeNameChars.ReplaceAllString(name, "-")
	if safe == "" {
		safe = uuid.NewString()
	}
	return fmt.Sprintf("uploaded-%d-%d-%s", now.UnixMilli(), i, safe)
}

func looksLikeCalendar(raw RawSource) bool {
	if raw.Name == "" || strings.HasSuffix(strings.ToLower(raw.Name), ".ics") {
		return true
	}
	return strings.Contains(strings.ToUpper(raw.Text), "BEGIN:VCALENDAR")
}

// StatsResult holds Global when no search term was given and Activity
// otherwise.
type StatsResult struct {
	Global   *stats.GlobalStats   `json:"global,omitempty"`
	Activity *stats.ActivityStats `json:"activity,omitempty"`
}

// RecomputeStats returns global stats for an empty term, activity stats
// otherwise.
func RecomputeStats(events []model.CalendarEvent, term string) StatsResult {
	if strings.TrimSpace(term) == "" {
		g := stats.ComputeGlobalStats(events)
		return StatsResult{Global: &g}
	}
	a := stats.ComputeActivityStats(events, term)
	return StatsResult{Activity: &a}
}

// Review is the input of the cleanup workflow.
type Review struct {
	Suggestions []suggest.MergeSuggestion  `json:"suggestions"`
	Issues      []suggest.DataQualityIssue `json:"issues"`
}

// ReviewSuggestions computes merge suggestions and data-quality issues.
// A threshold <= 0 uses suggest.DefaultThreshold.
func ReviewSuggestions(events []model.CalendarEvent, threshold float64, now time.Time) Review {
	return Review{
		Suggestions: suggest.SuggestMerges(events, threshold),
		Issues:      suggest.DetectIssues(events, now),
	}
}

// ApplyTitleRemap returns a new slice where every event whose title has a
// non-empty mapping carries the mapped title.
func ApplyTitleRemap(events []model.CalendarEvent, mapping map[string]string) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if to := mapping[ev.Title]; to != "" {
			ev = ev.WithTitle(to)
		}
		out = append(out, ev)
	}
	return out
}

// ApplyRemovals returns a new slice without the events whose id is in ids.
func ApplyRemovals(events []model.CalendarEvent, ids map[string]struct{}) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	for _, ev := range events {
		if _, drop := ids[ev.ID]; drop {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// ApplyDecisions applies removals, then title remaps.
func ApplyDecisions(events []model.CalendarEvent, remaps map[string]string, removed []string) []model.CalendarEvent {
	ids := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		ids[id] = struct{}{}
	}
	return ApplyTitleRemap(ApplyRemovals(events, ids), remaps)
}

// Reconstruct rebuilds the canonical event set from persisted state: every
// stored source is re-parsed, removed ids are dropped and remaps applied.
func Reconstruct(st store.State, opts ics.Options) []model.CalendarEvent {
	var events []model.CalendarEvent
	for _, src := range st.Sources {
		events = append(events, ics.ParseWithOptions(src.RawText, src.ID, opts)...)
	}
	return ApplyTitleRemap(ApplyRemovals(events, st.RemovedSet()), st.TitleMappings)
}
