package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hsicube/pkg/visualization"
)

var bandCmd = &cobra.Command{
	Use:   "band URL",
	Short: "Export one band as a grayscale image",
	Args:  cobra.ExactArgs(1),
	RunE:  runBand,
}

func init() {
	bandCmd.Flags().IntP("band", "b", 0, "Zero-based band index")
	bandCmd.Flags().StringP("output", "o", "", "Image file to write (.png or .jpg)")
	bandCmd.Flags().Float64("stretch", -1, "Histogram fraction cut at each end (default from config)")
	bandCmd.Flags().Int("smooth", 0, "Gaussian smoothing radius in pixels")
	bandCmd.Flags().Bool("clip", false, "Clip negative values to zero before mapping")
	bandCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(bandCmd)
}

func runBand(cmd *cobra.Command, args []string) error {
	b, _ := cmd.Flags().GetInt("band")
	output, _ := cmd.Flags().GetString("output")
	stretch, _ := cmd.Flags().GetFloat64("stretch")
	smooth, _ := cmd.Flags().GetInt("smooth")
	clip, _ := cmd.Flags().GetBool("clip")
	if stretch < 0 {
		stretch = state.cfg.Display.Stretch
	}

	m, err := state.mapper(stretch)
	if err != nil {
		return err
	}

	c, err := state.openCube(args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	band, err := c.GetBand(b)
	if err != nil {
		return err
	}

	var chain visualization.ChainFilter
	if clip {
		chain = append(chain, visualization.NewClipFilter())
	}
	if smooth > 0 {
		chain = append(chain, visualization.NewGaussianFilter(smooth))
	}
	if len(chain) > 0 {
		plane, err := chain.Apply(visualization.Plane(band))
		if err != nil {
			return err
		}
		band = visualization.PlaneSlab(plane)
	}

	img := visualization.GrayImage(m.ToGray(band))
	if err := visualization.SaveImage(output, img, state.cfg.Display.JPEGQuality); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Band %d (%s) saved to %s\n", b, c.Attributes().DescriptiveBandName(b), output)
	return nil
}
