package main

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"calstats/internal/ics"
	"calstats/internal/ingest"
)

var importURLs []string

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import .ics files or URLs into the stored state",
	Long: `Parse one or more iCalendar exports and add them to the stored state.
Files that are not calendars, or contain no events, are reported and skipped.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringArrayVar(&importURLs, "url", nil, "ICS URL to download and import (repeatable)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(importURLs) == 0 {
		return fmt.Errorf("nothing to import: pass files or --url")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	raws := make([]ingest.RawSource, 0, len(args)+len(importURLs))
	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		raws = append(raws, ingest.RawSource{Name: filepath.Base(p), Text: string(data)})
	}

	if len(importURLs) > 0 {
		fetcher := ics.NewFetcher(a.cfg.CacheDir)
		for _, u := range importURLs {
			name := nameFromURL(u)
			res, err := fetcher.FetchOne(cmd.Context(), ics.Source{ID: name, Name: name, URL: u})
			if err != nil {
				return err
			}
			raws = append(raws, ingest.RawSource{Name: name, Text: string(res.Body)})
		}
	}

	res := ingest.ImportSourcesWithOptions(raws, ingest.OptionsFromConfig(a.cfg), time.Now())
	if len(res.Sources) > 0 {
		if _, err := a.cache.Commit(cmd.Context(), res.Sources, nil, nil); err != nil {
			return err
		}
	}

	printImportResult(res)
	return nil
}

// nameFromURL picks a display name from the last path element of u.
func nameFromURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "feed.ics"
	}
	return path.Base(parsed.Path)
}

func printImportResult(res ingest.ImportResult) {
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)

	for _, src := range res.Sources {
		green.Print("imported  ")
		fmt.Printf("%s (%s)\n", src.DisplayName, src.ID)
	}
	for _, msg := range res.Advisories {
		yellow.Print("skipped   ")
		fmt.Println(msg)
	}
	fmt.Printf("\n%d events from %d sources\n", len(res.Events), len(res.Sources))
}
