package main

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/spf13/cobra"

	"hsicube/pkg/roi"
	"hsicube/pkg/visualization"
)

var quicklookCmd = &cobra.Command{
	Use:   "quicklook URL...",
	Short: "Render RGB composites of one or more cubes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuicklook,
}

func init() {
	quicklookCmd.Flags().StringP("output", "o", ".", "Directory for the images")
	quicklookCmd.Flags().String("roi", "", "ENVI ROI text file to draw over every image")
	quicklookCmd.Flags().Float64("radius", 0, "Marker radius for ROI points")
	quicklookCmd.Flags().Float64("stretch", -1, "Histogram fraction cut at each end (default from config)")
	rootCmd.AddCommand(quicklookCmd)
}

// quicklookName maps a cube URL to its image name in dir. dir may be a URL,
// so it is joined by hand rather than cleaned.
func quicklookName(dir, url, ext string) string {
	base := path.Base(strings.TrimRight(url, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.TrimRight(dir, "/") + "/" + base + ext
}

func runQuicklook(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("output")
	roiFile, _ := cmd.Flags().GetString("roi")
	radius, _ := cmd.Flags().GetFloat64("radius")
	stretch, _ := cmd.Flags().GetFloat64("stretch")
	if stretch < 0 {
		stretch = state.cfg.Display.Stretch
	}
	m, err := state.mapper(stretch)
	if err != nil {
		return err
	}

	var rois *roi.Collection
	if roiFile != "" {
		col, diags, err := roi.Load(roiFile)
		if err != nil {
			return err
		}
		for _, d := range diags {
			warnf("%s: %s", roiFile, d)
		}
		rois = col
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	wp := workerpool.New(state.cfg.Output.Workers)
	for _, url := range args {
		wp.Submit(func() {
			out := quicklookName(dir, url, state.cfg.Extension())
			err := renderQuicklook(url, out, m, rois, radius)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", url, err))
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", url, out)
		})
	}
	wp.StopWait()
	return errors.Join(errs...)
}

func renderQuicklook(url, out string, m visualization.Mapper, rois *roi.Collection, radius float64) error {
	c, err := state.openCube(url)
	if err != nil {
		return err
	}
	defer c.Close()

	d := state.cfg.Display
	bands := c.Attributes().GuessDisplayBandsFor(d.Red, d.Green, d.Blue)
	raster, err := visualization.ToRGB(c, bands, m)
	if err != nil {
		return err
	}
	img := visualization.RGBImage(raster)
	if rois != nil {
		img = visualization.DrawROIs(img, rois, visualization.OverlayOptions{Radius: radius, Labels: radius > 0})
	}
	return visualization.SaveImage(out, img, d.JPEGQuality)
}
