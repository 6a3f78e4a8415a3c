package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"der-explorer/internal/frame288"
)

func newScaleCmd() *cobra.Command {
	var lo, hi float64
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Pick the display unit for a kW value range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scale := frame288.ChooseScale(lo, hi)
			fmt.Fprintf(cmd.OutOrStdout(), "%g %s\n", scale.Factor, scale.Unit)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lo, "min", 0, "range minimum in kW")
	cmd.Flags().Float64Var(&hi, "max", 0, "range maximum in kW")
	return cmd
}
