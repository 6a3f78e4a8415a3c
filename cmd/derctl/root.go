package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "derctl",
		Short: "Offline tools for 288 grids and interval data",
		Long: `derctl runs the explorer's grid and interval computations on local files.

Example usage:
  derctl scale --min -10 --max 750000
  derctl grid summary load.json
  derctl grid export load.json --format pdf --out load.pdf
  derctl interval diff a.json b.json --column index --unit kw
  derctl token --subject ops --role operator`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newScaleCmd(), newGridCmd(), newIntervalCmd(), newTokenCmd())
	return root
}

// readInput reads a file, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
