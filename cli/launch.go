// Package cli implements the stratum command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/stratum/engine/core"
)

var logLevel string

// Launch runs the command line until it completes or ctx is cancelled.
func Launch(ctx context.Context) error {
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		core.LogError("%s", err.Error())
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stratum",
		Short:         "slice 3D models into printable layers",
		Long:          "stratum places models in the build volume of a photopolymer printer and slices them into bitmap jobs or SLC contour files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the project log level (debug, info, warn, error)")
	rootCmd.AddCommand(cmdSlice(), cmdPreview(), cmdWatch(), cmdInfo())
	return rootCmd
}
