package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"hsicube/pkg/cube"
	"hsicube/pkg/spectra"
)

var spectrumCmd = &cobra.Command{
	Use:   "spectrum URL LINE SAMPLE",
	Short: "Print the spectrum of one pixel",
	Args:  cobra.ExactArgs(3),
	RunE:  runSpectrum,
}

var samCmd = &cobra.Command{
	Use:   "sam URL L1 S1 L2 S2",
	Short: "Spectral angle and distance between two pixels",
	Long: "Compares the pixel at (L1, S1) with the pixel at (L2, S2). With --ref the second\n" +
		"pixel is read from another cube and both spectra are resampled onto a common grid.",
	Args: cobra.ExactArgs(5),
	RunE: runSAM,
}

func init() {
	samCmd.Flags().String("ref", "", "Cube holding the second pixel")
	samCmd.Flags().Bool("degrees", false, "Print the angle in degrees")
	rootCmd.AddCommand(spectrumCmd)
	rootCmd.AddCommand(samCmd)
}

// atoiArgs parses positional integer arguments.
func atoiArgs(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}

func pixelSpectrum(c *cube.Cube, line, sample int) (*spectra.Spectrum, error) {
	sp, err := spectra.FromCube(c, line, sample)
	if err != nil {
		return nil, fmt.Errorf("pixel (%d, %d): %w", line, sample, err)
	}
	return sp, nil
}

func runSpectrum(cmd *cobra.Command, args []string) error {
	pos, err := atoiArgs(args[1:])
	if err != nil {
		return err
	}
	c, err := state.openCube(args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	sp, err := pixelSpectrum(c, pos[0], pos[1])
	if err != nil {
		return err
	}
	a := c.Attributes()
	out := cmd.OutOrStdout()
	heading("%s", sp.Label)
	for b, v := range sp.Values {
		mark := ""
		if sp.Good[b] == 0 {
			mark = " (bad)"
		}
		fmt.Fprintf(out, "%-24s %g%s\n", a.DescriptiveBandName(b), v, mark)
	}
	return nil
}

func runSAM(cmd *cobra.Command, args []string) error {
	ref, _ := cmd.Flags().GetString("ref")
	degrees, _ := cmd.Flags().GetBool("degrees")
	pos, err := atoiArgs(args[1:])
	if err != nil {
		return err
	}

	c, err := state.openCube(args[0])
	if err != nil {
		return err
	}
	defer c.Close()
	other := c
	if ref != "" {
		if other, err = state.openCube(ref); err != nil {
			return err
		}
		defer other.Close()
	}

	a, err := pixelSpectrum(c, pos[0], pos[1])
	if err != nil {
		return err
	}
	b, err := pixelSpectrum(other, pos[2], pos[3])
	if err != nil {
		return err
	}
	angle, dist, err := a.Compare(b)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if degrees {
		fmt.Fprintf(out, "Spectral angle:     %.6f deg\n", angle*180/math.Pi)
	} else {
		fmt.Fprintf(out, "Spectral angle:     %.6f rad\n", angle)
	}
	fmt.Fprintf(out, "Euclidean distance: %.6g\n", dist)
	return nil
}
