package main

import (
	"github.com/spf13/cobra"

	"der-explorer/internal/interval"
)

func newIntervalCmd() *cobra.Command {
	var column, unit string
	cmd := &cobra.Command{
		Use:   "interval",
		Short: "Operate on column-form interval files",
	}
	cmd.PersistentFlags().StringVar(&column, "column", "timestamp", "timestamp column key")
	cmd.PersistentFlags().StringVar(&unit, "unit", "value", "value column key")

	diff := &cobra.Command{
		Use:   "diff <a.json> <b.json>",
		Short: "Subtract b from a where timestamps match exactly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			series := make([]*interval.Series, 0, len(args))
			for _, path := range args {
				data, err := readInput(cmd, path)
				if err != nil {
					return err
				}
				s, err := interval.ParseJSON(data, column, unit, path)
				if err != nil {
					return err
				}
				series = append(series, s)
			}
			return printJSON(cmd, series[0].Subtract(series[1]).Serialize(unit, column))
		},
	}
	cmd.AddCommand(diff)
	return cmd
}
