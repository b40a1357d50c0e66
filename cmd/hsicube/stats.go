package main

import (
	"io"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hsicube/internal/models"
	"hsicube/pkg/vfs"
)

var statsCmd = &cobra.Command{
	Use:   "stats URL...",
	Short: "Write per-band statistics of one or more cubes as CSV",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringP("output", "o", "", "CSV file to write (default stdout)")
	rootCmd.AddCommand(statsCmd)
}

func cubeStats(url string) ([]*models.BandStatsRecord, error) {
	c, err := state.openCube(url)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	a := c.Attributes()
	records := make([]*models.BandStatsRecord, 0, a.Bands)
	for b := 0; b < a.Bands; b++ {
		s, err := c.BandStats(b)
		if err != nil {
			return nil, err
		}
		records = append(records, &models.BandStatsRecord{
			File:   url,
			Band:   b,
			Name:   a.DescriptiveBandName(b),
			Min:    s.Min,
			Max:    s.Max,
			Mean:   s.Mean,
			StdDev: s.StdDev,
		})
	}
	return records, nil
}

func runStats(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	// One cube per goroutine; cubes are not shared.
	perFile := make([][]*models.BandStatsRecord, len(args))
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(state.cfg.Output.Workers)
	for i, url := range args {
		g.Go(func() error {
			records, err := cubeStats(url)
			if err != nil {
				return err
			}
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all []*models.BandStatsRecord
	for _, records := range perFile {
		all = append(all, records...)
	}

	var w io.Writer = cmd.OutOrStdout()
	if output != "" {
		f, err := vfs.OpenWrite(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return gocsv.Marshal(&all, w)
}
