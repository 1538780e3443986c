package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"calstats/internal/config"
	"calstats/internal/ics"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the cleaned event set as an .ics file",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.cache.Get(cmd.Context())
	if err != nil {
		return err
	}

	if exportOutput == "" {
		w := bufio.NewWriter(os.Stdout)
		if err := ics.Export(w, events); err != nil {
			return err
		}
		return w.Flush()
	}

	var buf bytes.Buffer
	if err := ics.Export(&buf, events); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := config.WriteFileAtomic(exportOutput, buf.Bytes(), ".calstats-export-*.tmp"); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %d events to %s\n", len(events), exportOutput)
	return nil
}
