package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hsicube/pkg/config"
	"hsicube/pkg/cube"
	"hsicube/pkg/format"
	"hsicube/pkg/format/gdal"
	"hsicube/pkg/hsi"
	"hsicube/pkg/vfs"
	"hsicube/pkg/visualization"
)

// app holds what every command needs once flags are parsed.
type app struct {
	cfg      *config.Config
	registry *format.Registry
	logger   *log.Logger
}

var (
	configPath string
	verbose    bool
	state      app
)

var rootCmd = &cobra.Command{
	Use:           "hsicube",
	Short:         "Inspect, display and compare hyperspectral cubes",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "hsicube.yaml", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log format detection and remote staging")
}

func setup(stderr io.Writer) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Output.Verbose = true
	}

	var logger *log.Logger
	if cfg.Output.Verbose {
		logger = log.New(stderr, "hsicube: ", log.LstdFlags)
	}
	opts := cfg.VFSOptions()
	opts.Logger = logger
	vfs.Configure(opts)

	cubeOpts := append(cfg.CubeOptions(), cube.WithLogger(logger))
	registry := hsi.DefaultRegistry(logger, cubeOpts...)
	registry.Register(gdal.NewHandler(logger, cubeOpts...))

	state = app{cfg: cfg, registry: registry, logger: logger}
	return nil
}

// openCube opens url with the configured registry.
func (a *app) openCube(url string) (*cube.Cube, error) {
	c, err := a.registry.Open(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	if c.Partial() {
		warnf("%s is shorter than its header declares; some bands are missing", url)
	}
	return c, nil
}

// mapper returns the display mapper for a stretch fraction.
func (a *app) mapper(stretch float64) (visualization.Mapper, error) {
	if stretch <= 0 {
		return visualization.BandFilter{}, nil
	}
	return visualization.NewContrastFilter(stretch)
}

func warnf(format string, args ...interface{}) {
	log.Print(color.YellowString("warning: "+format, args...))
}

func heading(format string, args ...interface{}) {
	color.New(color.Bold, color.FgCyan).Printf(format+"\n", args...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
