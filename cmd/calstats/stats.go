package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"calstats/internal/ingest"
	"calstats/internal/model"
	"calstats/internal/stats"
)

var (
	statsQuery string
	statsTop   int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show activity statistics",
	Long: `Display totals for every stored event, or the statistics of one activity
when --query is given: time spent, longest session, streak and break.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsQuery, "query", "q", "", "Case-insensitive title filter")
	statsCmd.Flags().IntVar(&statsTop, "top", 5, "Number of activities in the breakdown")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.cache.Get(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(renderStats(events, statsQuery, statsTop))
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF7CCB")).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#666")).
			Padding(0, 2).
			MarginRight(1)

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FDFF8C"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888"))
)

func card(label, value string) string {
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, labelStyle.Render(label), valueStyle.Render(value)))
}

func renderStats(events []model.CalendarEvent, term string, top int) string {
	res := ingest.RecomputeStats(events, term)
	if res.Global != nil {
		g := res.Global
		title := titleStyle.Render("All activities")
		cards := lipgloss.JoinHorizontal(lipgloss.Top,
			card("Events", fmt.Sprint(g.TotalCount)),
			card("Activities", fmt.Sprint(g.UniqueActivityCount)),
			card("Total time", stats.FormatDaysHoursMinutes(g.TotalMinutes)),
		)
		return lipgloss.JoinVertical(lipgloss.Left, title, cards, renderTop(events, top))
	}

	s := res.Activity
	title := titleStyle.Render(fmt.Sprintf("Activity %q", s.Name))
	if s.TotalCount == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, labelStyle.Render("No matching events."))
	}

	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		card("Sessions", fmt.Sprint(s.TotalCount)),
		card("Total time", stats.FormatHoursMinutes(s.TotalMinutes)),
		card("Average", stats.FormatCompact(int(math.Round(s.AverageSessionMinutes)))),
	)

	var extra []string
	if s.LongestSession != nil {
		extra = append(extra, card("Longest session",
			fmt.Sprintf("%s on %s", stats.FormatCompact(s.LongestSession.Minutes), s.LongestSession.Date.Format("Jan 2, 2006"))))
	}
	if s.LongestStreak != nil {
		extra = append(extra, card("Longest streak",
			fmt.Sprintf("%d days (%s to %s)", s.LongestStreak.Days, s.LongestStreak.From.Format("Jan 2"), s.LongestStreak.To.Format("Jan 2, 2006"))))
	}
	if s.BiggestBreak != nil {
		extra = append(extra, card("Biggest break",
			fmt.Sprintf("%d days (%s to %s)", s.BiggestBreak.Days, s.BiggestBreak.From.Format("Jan 2"), s.BiggestBreak.To.Format("Jan 2, 2006"))))
	}

	filtered := stats.FilterByTitle(events, term)
	parts := []string{title, row1}
	if len(extra) > 0 {
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top, extra...))
	}
	parts = append(parts, renderPeaks(filtered))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderTop(events []model.CalendarEvent, n int) string {
	shares := stats.TopActivities(events, n)
	if len(shares) == 0 {
		return labelStyle.Render("No events imported yet.")
	}

	width := 0
	for _, s := range shares {
		width = max(width, len(s.Name))
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Top activities"))
	b.WriteString("\n")
	for _, s := range shares {
		name := fmt.Sprintf("%-*s", width, s.Name)
		if s.Other {
			name = labelStyle.Render(name)
		}
		fmt.Fprintf(&b, "%s  %s  %s\n", name,
			valueStyle.Render(fmt.Sprintf("%8s", stats.FormatCompact(s.Minutes))),
			labelStyle.Render(fmt.Sprintf("%d events", s.Count)))
	}
	return b.String()
}

func renderPeaks(events []model.CalendarEvent) string {
	days := stats.ByDayOfWeek(events)
	months := stats.ByMonth(events)
	hours := stats.ByHour(events)

	peak := func(label string, buckets []stats.Bucket) string {
		i := stats.PeakBucket(buckets)
		if i < 0 {
			return card(label, "-")
		}
		return card(label, fmt.Sprintf("%s (%s)", buckets[i].Label, stats.FormatCompact(buckets[i].Minutes)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		peak("Busiest day", days[:]),
		peak("Busiest month", months[:]),
		peak("Usual start", hours[:]),
	)
}
