package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hsicube/pkg/cube"
	"hsicube/pkg/envi"
)

var subsetCmd = &cobra.Command{
	Use:   "subset URL OUTPUT L1 L2 S1 S2 B1 B2",
	Short: "Write lines [L1, L2), samples [S1, S2) and bands [B1, B2) as an ENVI cube",
	Args:  cobra.ExactArgs(8),
	RunE:  runSubset,
}

func init() {
	subsetCmd.Flags().String("interleave", "", "Interleave of the output (default: same as the input)")
	rootCmd.AddCommand(subsetCmd)
}

func runSubset(cmd *cobra.Command, args []string) error {
	bounds, err := atoiArgs(args[2:])
	if err != nil {
		return err
	}
	c, err := state.openCube(args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	il := c.Attributes().Interleave
	if s, _ := cmd.Flags().GetString("interleave"); s != "" {
		if il, err = cube.ParseInterleave(s); err != nil {
			return err
		}
	}
	sub, err := c.Subset(bounds[0], bounds[1], bounds[2], bounds[3], bounds[4], bounds[5])
	if err != nil {
		return err
	}
	if err := envi.WriteCube(args[1], sub, il); err != nil {
		return err
	}
	a := sub.Attributes()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d lines x %d samples x %d bands (%s)\n", args[1], a.Lines, a.Samples, a.Bands, il)
	return nil
}
