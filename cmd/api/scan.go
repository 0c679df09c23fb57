package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"docviewer/internal/scanner"
)

// errViolations makes the command exit non-zero without repeating the report.
var errViolations = errors.New("active content found")

var scanCmd = &cobra.Command{
	Use:   "scan <file>...",
	Short: "Scan local files for active content",
	Long: `Scan runs the same content rules as the /render endpoint against local
files and reports the first violation per file. It exits non-zero when any
file is rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd.OutOrStdout(), scanner.New(), args)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(out io.Writer, s *scanner.Scanner, paths []string) error {
	rejected := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		res := s.Scan(string(data))
		if res.Clean() {
			fmt.Fprintf(out, "ok\t%s\n", path)
			continue
		}
		rejected++
		fmt.Fprintf(out, "%s\t%s\t%s\n", res.Violation.Rule, path, res.Violation.Message)
	}
	if rejected > 0 {
		return errViolations
	}
	return nil
}
