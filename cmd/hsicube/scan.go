package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan URL",
	Short: "Read every band and print the global extrema",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	c, err := state.openCube(args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	var progress func(done, total int)
	if state.cfg.Cube.ScanProgress {
		progressBar := progressbar.Default(int64(c.Attributes().Bands), "Scanning bands")
		defer progressBar.Finish()
		progress = func(done, _ int) {
			progressBar.Set(done)
		}
	}

	lo, hi, err := c.ScanAllBands(cmd.Context(), progress)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nMinimum: %g\nMaximum: %g\n", lo, hi)
	return nil
}
