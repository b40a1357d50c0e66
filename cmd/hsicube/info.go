package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hsicube/pkg/cube"
	"hsicube/pkg/envi"
)

var infoCmd = &cobra.Command{
	Use:   "info URL",
	Short: "Show the attributes and format of a cube",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	url := args[0]
	h := state.registry.Identify(url)
	if h == nil {
		return fmt.Errorf("no handler recognises %s", url)
	}
	c, err := state.openCube(url)
	if err != nil {
		return err
	}
	defer c.Close()

	out := cmd.OutOrStdout()
	d := h.Descriptor()
	heading("%s", url)
	fmt.Fprintf(out, "Format:      %s (%s)\n", d.Name, d.ID)
	if d.ID == "ENVI" {
		if hdr, data, err := envi.FindPair(url); err == nil {
			fmt.Fprintf(out, "Header:      %s\n", hdr)
			fmt.Fprintf(out, "Data file:   %s\n", data)
		}
	}
	printAttributes(out, c.Attributes())
	return nil
}

func printAttributes(out io.Writer, a *cube.Attributes) {
	fmt.Fprintf(out, "Dimensions:  %d lines x %d samples x %d bands\n", a.Lines, a.Samples, a.Bands)
	fmt.Fprintf(out, "Interleave:  %s\n", a.Interleave)
	fmt.Fprintf(out, "Data type:   %s (%s)\n", a.DataType, a.ByteOrder.Binary())
	fmt.Fprintf(out, "Size:        %d bytes + %d header bytes\n", a.TotalBytes(), a.HeaderOffset)
	fmt.Fprintf(out, "Scale:       %g\n", a.Scale())
	if n := len(a.Wavelengths); n > 0 {
		fmt.Fprintf(out, "Wavelengths: %g to %g %s\n", a.Wavelengths[0], a.Wavelengths[n-1], a.EffectiveUnits())
	}
	bad := 0
	for _, g := range a.GoodBands() {
		if g == 0 {
			bad++
		}
	}
	if bad > 0 {
		fmt.Fprintf(out, "Bad bands:   %d\n", bad)
	}
	fmt.Fprintf(out, "Display:     bands %v\n", a.GuessDisplayBands())
	if a.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", a.Description)
	}
	if g := a.Georef; g != nil {
		b := g.Bound(a.Lines, a.Samples)
		fmt.Fprintf(out, "Map:         %s, %v to %v\n", g.Projection, b.Min, b.Max)
	}
}
