package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"calstats/internal/ingest"
	"calstats/internal/stats"
)

var (
	applyMaps    []string
	applyRemoves []string
	applyDryRun  bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Rename activities and remove events",
	Long: `Persist cleanup decisions. Removals are applied before renames, and both
are re-applied every time the stored sources are parsed.

Example:
  calstats apply --map "workout!=Workout" --map "workouts=Workout" --remove dup-1`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringArrayVar(&applyMaps, "map", nil, "Title remap as from=to (repeatable)")
	applyCmd.Flags().StringArrayVar(&applyRemoves, "remove", nil, "Event id to remove (repeatable)")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show the effect without saving")
	rootCmd.AddCommand(applyCmd)
}

// parseMappings splits each "from=to" pair on the first '='.
func parseMappings(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		from, to, ok := strings.Cut(p, "=")
		if !ok || from == "" || strings.TrimSpace(to) == "" {
			return nil, fmt.Errorf("invalid --map %q, expected from=to", p)
		}
		out[from] = to
	}
	return out, nil
}

func runApply(cmd *cobra.Command, _ []string) error {
	remaps, err := parseMappings(applyMaps)
	if err != nil {
		return err
	}
	if len(remaps) == 0 && len(applyRemoves) == 0 {
		return fmt.Errorf("nothing to apply: pass --map or --remove")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.cache.Get(cmd.Context())
	if err != nil {
		return err
	}
	before := stats.ComputeGlobalStats(events)
	after := stats.ComputeGlobalStats(ingest.ApplyDecisions(events, remaps, applyRemoves))

	printDelta("events", before.TotalCount, after.TotalCount)
	printDelta("activities", before.UniqueActivityCount, after.UniqueActivityCount)
	fmt.Printf("%-12s %s -> %s\n", "time", stats.FormatCompact(before.TotalMinutes), stats.FormatCompact(after.TotalMinutes))

	if applyDryRun {
		color.New(color.FgYellow).Println("\ndry run, nothing saved")
		return nil
	}
	if _, err := a.cache.Commit(cmd.Context(), nil, remaps, applyRemoves); err != nil {
		return err
	}
	color.New(color.FgGreen, color.Bold).Println("\nsaved")
	return nil
}

func printDelta(label string, before, after int) {
	fmt.Printf("%-12s %d -> %d\n", label, before, after)
}
