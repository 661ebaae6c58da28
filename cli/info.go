package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func cmdInfo() *cobra.Command {
	return &cobra.Command{
		Use:   "info <project.toml>",
		Short: "show the build volume and the placed instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()

			v := ws.systems.Layout.Volume
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job:        %s\n", ws.project.Job.Name)
			fmt.Fprintf(out, "resolution: %dx%d px at %g mm\n", v.ResolutionX, v.ResolutionY, v.PixelSize)
			fmt.Fprintf(out, "volume:     %g x %g x %g mm\n", v.SizeX(), v.SizeY(), v.Depth)
			fmt.Fprintf(out, "layers:     %d of %g mm\n\n", v.LayerCount(), v.LayerThickness)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMESH\tMIN\tMAX\tTRIANGLES")
			for _, inst := range ws.systems.Layout.Instances() {
				b := inst.Bounds()
				fmt.Fprintf(tw, "%s\t%s\t(%.2f, %.2f, %.2f)\t(%.2f, %.2f, %.2f)\t%d\n",
					inst.ID, inst.Mesh.Name,
					b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z,
					len(inst.Mesh.Triangles()))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			for _, inst := range ws.systems.Layout.OutsideBuildArea() {
				fmt.Fprintf(out, "warning: %s is outside the build volume\n", inst.ID)
			}
			return nil
		},
	}
}
