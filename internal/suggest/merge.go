package suggest

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"calstats/internal/model"
)

// DefaultThreshold is used when SuggestMerges receives a threshold <= 0.
const DefaultThreshold = 0.7

// MergeSuggestion proposes folding several title variants into one name.
type MergeSuggestion struct {
	Activities    []string `json:"activities"`
	SuggestedName string   `json:"suggested_name"`
	Confidence    float64  `json:"confidence"`
	EventCount    int      `json:"event_count"`
	TotalMinutes  int      `json:"total_minutes"`
}

// SuggestMerges clusters distinct titles whose similarity to a cluster seed
// reaches threshold. Titles are visited in discovery order; each unassigned
// title seeds a cluster and pulls in every later unassigned title similar to
// the seed. Members are compared to the seed only, never to each other, so
// the result depends on discovery order. Single-title clusters are dropped.
// Suggestions are ordered by confidence, highest first.
func SuggestMerges(events []model.CalendarEvent, threshold float64) []MergeSuggestion {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	titles := distinctTitles(events)
	assigned := make([]bool, len(titles))
	out := []MergeSuggestion{}

	for i, seed := range titles {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		group := []string{seed}

		for j := i + 1; j < len(titles); j++ {
			if assigned[j] {
				continue
			}
			if Similarity(seed, titles[j]) >= threshold {
				group = append(group, titles[j])
				assigned[j] = true
			}
		}

		if len(group) > 1 {
			out = append(out, buildSuggestion(events, group))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func buildSuggestion(events []model.CalendarEvent, group []string) MergeSuggestion {
	members := make(map[string]struct{}, len(group))
	for _, t := range group {
		members[t] = struct{}{}
	}

	s := MergeSuggestion{
		Activities:    group,
		SuggestedName: CanonicalName(group),
		Confidence:    meanPairwise(group),
	}
	for _, ev := range events {
		if _, ok := members[ev.Title]; ok {
			s.EventCount++
			s.TotalMinutes += ev.DurationMinutes
		}
	}
	return s
}

func meanPairwise(group []string) float64 {
	var total float64
	n := 0
	for a := 0; a < len(group); a++ {
		for b := a + 1; b < len(group); b++ {
			total += Similarity(group[a], group[b])
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// CanonicalName picks the longest title that starts with an uppercase
// letter, else the longest title. Ties go to the earlier title.
func CanonicalName(titles []string) string {
	best, bestCap := "", ""
	for _, t := range titles {
		if utf8.RuneCountInString(t) > utf8.RuneCountInString(best) || best == "" {
			best = t
		}
		r, _ := utf8.DecodeRuneInString(t)
		if unicode.IsUpper(r) && (bestCap == "" || utf8.RuneCountInString(t) > utf8.RuneCountInString(bestCap)) {
			bestCap = t
		}
	}
	if bestCap != "" {
		return bestCap
	}
	return best
}

func distinctTitles(events []model.CalendarEvent) []string {
	seen := make(map[string]struct{}, len(events))
	var titles []string
	for _, ev := range events {
		if _, ok := seen[ev.Title]; ok {
			continue
		}
		seen[ev.Title] = struct{}{}
		titles = append(titles, ev.Title)
	}
	return titles
}
