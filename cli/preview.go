package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/export"
	"github.com/spaghettifunk/stratum/engine/raster"
)

func cmdPreview() *cobra.Command {
	var (
		output string
		layer  int
		edges  bool
	)
	cmd := &cobra.Command{
		Use:   "preview <project.toml>",
		Short: "render one layer to a BMP image",
		Long:  "renders the composited layer of every instance; with --edges the anti-aliased coverage is written instead of the binary layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			volume := ws.systems.Layout.Volume
			if layer < 0 || layer >= volume.LayerCount() {
				return fmt.Errorf("layer %d of %d: %w", layer, volume.LayerCount(), core.ErrLayerOutOfRange)
			}
			rule, err := ws.project.FillRule()
			if err != nil {
				return err
			}

			renderer := raster.NewRenderer(volume.ResolutionX, volume.ResolutionY, volume.PixelSize, rule)
			composite := renderer.NewBitmap()
			scratch := renderer.NewBitmap()
			coverage := renderer.NewCoverage()
			z := volume.LayerHeight(layer)
			for _, inst := range ws.systems.Layout.Instances() {
				if !inst.InLayer(layer, volume.LayerThickness) {
					continue
				}
				slice := inst.GenerateSlice(z)
				renderer.Render(slice.Path(), scratch, coverage)
				if err := composite.Union(scratch); err != nil {
					return err
				}
			}
			core.LogInfo("Layer %d at %.3f mm has %d lit pixels.", layer, z, composite.LitCount())

			if edges {
				return export.WritePreview(output, coverage)
			}
			return export.WritePreview(output, composite)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "layer.bmp", "output BMP file")
	cmd.Flags().IntVarP(&layer, "layer", "l", 0, "layer index")
	cmd.Flags().BoolVar(&edges, "edges", false, "write the edge intensity image")
	return cmd
}
