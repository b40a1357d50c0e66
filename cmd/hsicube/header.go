package main

import (
	"github.com/spf13/cobra"

	"hsicube/pkg/envi"
)

var headerCmd = &cobra.Command{
	Use:   "header URL",
	Short: "Write the cube's attributes as a normalised ENVI header",
	Long: "Opens a cube of any supported format and emits its attributes as an ENVI header,\n" +
		"to standard output or to the file given with -o.",
	Args: cobra.ExactArgs(1),
	RunE: runHeader,
}

func init() {
	headerCmd.Flags().StringP("output", "o", "", "Header file to write")
	rootCmd.AddCommand(headerCmd)
}

func runHeader(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	c, err := state.openCube(args[0])
	if err != nil {
		return err
	}
	defer c.Close()

	if output != "" {
		return envi.WriteHeader(output, c.Attributes())
	}
	return envi.Emit(cmd.OutOrStdout(), c.Attributes())
}
