package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hsicube/pkg/roi"
	"hsicube/pkg/vfs"
)

var roiCmd = &cobra.Command{
	Use:   "roi",
	Short: "Work with ENVI region-of-interest files",
}

var roiExportCmd = &cobra.Command{
	Use:   "export URL ROIFILE",
	Short: "Write the spectra under each ROI as CSV",
	Args:  cobra.ExactArgs(2),
	RunE:  runROIExport,
}

var roiListCmd = &cobra.Command{
	Use:   "list ROIFILE",
	Short: "List the regions in an ROI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runROIList,
}

func init() {
	roiExportCmd.Flags().StringP("output", "o", "", "CSV file to write (default stdout)")
	roiCmd.AddCommand(roiExportCmd)
	roiCmd.AddCommand(roiListCmd)
	rootCmd.AddCommand(roiCmd)
}

func loadROIs(url string) (*roi.Collection, error) {
	if !roi.Identify(url) {
		return nil, fmt.Errorf("%s is not an ENVI ROI text file", url)
	}
	col, diags, err := roi.Load(url)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		warnf("%s: %s", url, d)
	}
	return col, nil
}

func runROIExport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	col, err := loadROIs(args[1])
	if err != nil {
		return err
	}
	c, err := state.openCube(args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := vfs.OpenWrite(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return roi.ExportSpectraCSV(w, col, c)
}

func runROIList(cmd *cobra.Command, args []string) error {
	col, err := loadROIs(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if col.Title != "" {
		heading("%s", col.Title)
	}
	for _, r := range col.ROIs() {
		fmt.Fprintf(out, "%-20s %4d points  rgb(%d, %d, %d)\n", r.Name(), r.Len(), r.Color.R, r.Color.G, r.Color.B)
	}
	return nil
}
