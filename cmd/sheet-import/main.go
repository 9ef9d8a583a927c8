// Command sheet-import imports every spreadsheet file in a directory into a
// local SQLite database, one table per file.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sheetsql/internal/ingest"
	"sheetsql/internal/inspect"
	"sheetsql/internal/logging"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	log := logging.New(os.Stdout, "INFO")

	var (
		inputDir string
		dbPath   string
	)

	cmd := &cobra.Command{
		Use:           "sheet-import",
		Short:         "Import spreadsheets into SQLite for local debugging",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if info, err := os.Stat(inputDir); err != nil || !info.IsDir() {
				log.Error("input directory does not exist", "input_dir", inputDir)
				return fmt.Errorf("input directory does not exist: %s", inputDir)
			}

			db, err := ingest.OpenDatabase(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			importer := ingest.NewImporter(db, log)
			report, err := importer.ImportDir(cmd.Context(), inputDir)
			if err != nil {
				return err
			}

			if len(report.Imported) == 0 && len(report.Skipped) == 0 {
				log.Info("no spreadsheet files found in input directory")
				return nil
			}
			for _, skipped := range report.Skipped {
				log.Warn("skipped file due to import error", "file", skipped)
			}
			log.Info("import finished",
				"imported", len(report.Imported), "skipped", len(report.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "data/spreadsheets",
		"directory to scan for spreadsheet files")
	cmd.Flags().StringVar(&dbPath, "db-path", filepath.FromSlash(inspect.DefaultDBPath),
		"path to the SQLite database file")

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
