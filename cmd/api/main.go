package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docviewer",
	Short: "Document viewer gateway",
	Long: `docviewer serves documents to a remote viewing service. Requested
documents are scanned for active content before a viewing session is opened.
Without a subcommand it runs serve.`,
	SilenceUsage: true,
}

// @title Document Viewer API
// @version 1.0
// @description Scans documents for active content and opens remote viewing sessions.
// @BasePath /
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
