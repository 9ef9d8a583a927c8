// Command northwind-fetch downloads the Northwind sample CSV files into the
// local data directory and validates the result.
package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"sheetsql/internal/download"
	"sheetsql/internal/logging"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	log := logging.New(os.Stdout, "INFO")

	cmd := &cobra.Command{
		Use:           "northwind-fetch",
		Short:         "Download the Northwind sample CSV files",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := download.NewClient(
				download.DefaultBaseURL,
				download.DefaultDataDir,
				download.DefaultFiles,
				http.DefaultClient,
				log,
			)
			return client.Run(cmd.Context())
		},
	}

	if err := cmd.Execute(); err != nil {
		log.Error("download run failed", "error", err)
		return 1
	}
	return 0
}
