package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/stratum/engine/core"
)

// settle is how long the mesh files must stay quiet before re-slicing.
const settle = 300 * time.Millisecond

func cmdWatch() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "watch <project.toml>",
		Short: "slice again whenever a mesh changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()
			if err := ws.systems.Library.Watch(); err != nil {
				return err
			}

			if err := sliceOnce(ctx, ws, output); err != nil {
				return err
			}
			core.LogInfo("Watching %d meshes for changes.", ws.systems.Library.Count())

			timer := time.NewTimer(settle)
			timer.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case e, ok := <-ws.systems.Library.Events():
					if !ok {
						return nil
					}
					if e.Err != nil {
						core.LogWarn("Reload of '%s' failed: %s", e.Path, e.Err)
						continue
					}
					core.LogDebug("Mesh '%s' changed (generation %d).", e.Path, e.Generation)
					timer.Reset(settle)
				case <-timer.C:
					if err := ws.relayout(); err != nil {
						core.LogError("%s", err.Error())
						continue
					}
					if err := sliceOnce(ctx, ws, output); err != nil {
						core.LogError("%s", err.Error())
					}
				}
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .sjob or .slc")
	cmd.MarkFlagRequired("output")
	return cmd
}
