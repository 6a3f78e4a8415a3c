package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"der-explorer/internal/export"
	"der-explorer/internal/frame288"
)

func newGridCmd() *cobra.Command {
	var name, units string
	grid := &cobra.Command{
		Use:   "grid",
		Short: "Inspect and export 288 grids",
	}
	grid.PersistentFlags().StringVar(&name, "name", "", "grid name")
	grid.PersistentFlags().StringVar(&units, "units", "kW", "grid units")

	load := func(cmd *cobra.Command, path string) (*frame288.Grid, error) {
		data, err := readInput(cmd, path)
		if err != nil {
			return nil, err
		}
		return frame288.Parse(data, frame288.WithName(name), frame288.WithUnits(units))
	}

	summary := &cobra.Command{
		Use:   "summary <grid.json>",
		Short: "Print the range and display scale of a grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			lo, hi := g.Range()
			return printJSON(cmd, map[string]any{
				"name":  g.Name(),
				"units": g.Units(),
				"min":   lo,
				"max":   hi,
				"scale": g.Scale(),
			})
		},
	}

	var format, out string
	exportCmd := &cobra.Command{
		Use:   "export <grid.json>",
		Short: "Render a grid as xlsx or pdf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			var data []byte
			switch format {
			case "xlsx":
				data, err = export.GridXLSX(g)
			case "pdf":
				data, err = export.GridPDF(g)
			default:
				return fmt.Errorf("unknown format %q (want xlsx or pdf)", format)
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = "grid." + format
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "xlsx", "output format: xlsx or pdf")
	exportCmd.Flags().StringVar(&out, "out", "", "output path (default grid.<format>)")

	grid.AddCommand(summary, exportCmd)
	return grid
}
