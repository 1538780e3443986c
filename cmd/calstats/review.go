package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"calstats/internal/ingest"
	"calstats/internal/stats"
	"calstats/internal/suggest"
)

var reviewThreshold float64

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List merge suggestions and data-quality issues",
	Long: `Group near-duplicate activity titles and flag suspicious events
(zero or very long durations, duplicates, future events). Apply the findings
with the apply command.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().Float64Var(&reviewThreshold, "threshold", 0, "Similarity threshold in (0, 1]; defaults to the configured value")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	threshold := a.cfg.SimilarityThreshold
	if cmd.Flags().Changed("threshold") {
		if math.IsNaN(reviewThreshold) || reviewThreshold <= 0 || reviewThreshold > 1 {
			return fmt.Errorf("--threshold must be in (0, 1], got %v", reviewThreshold)
		}
		threshold = reviewThreshold
	}

	events, err := a.cache.Get(cmd.Context())
	if err != nil {
		return err
	}
	printReview(ingest.ReviewSuggestions(events, threshold, time.Now()))
	return nil
}

func printReview(r ingest.Review) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("MERGE SUGGESTIONS")
	fmt.Println()
	if len(r.Suggestions) == 0 {
		fmt.Println("  No similar activity names found.")
	}
	for _, s := range r.Suggestions {
		quoted := make([]string, len(s.Activities))
		for i, a := range s.Activities {
			quoted[i] = fmt.Sprintf("%q", a)
		}
		fmt.Printf("  %s  ->  ", strings.Join(quoted, ", "))
		green.Printf("%q", s.SuggestedName)
		fmt.Printf("  (%.0f%% similar, %d events, %s)\n", s.Confidence*100, s.EventCount, stats.FormatCompact(s.TotalMinutes))
	}

	fmt.Println()
	cyan.Println("DATA QUALITY")
	fmt.Println()
	if len(r.Issues) == 0 {
		fmt.Println("  No issues found.")
	}
	for _, is := range r.Issues {
		switch is.Severity {
		case suggest.SeverityError:
			red.Print("  error    ")
		default:
			yellow.Print("  warning  ")
		}
		fmt.Printf("%-14s %s  [%s] %q\n", is.Kind, is.Message, is.Event.ID, is.Event.Title)
	}
	fmt.Println()
}
