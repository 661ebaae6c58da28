package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/stratum/engine"
	"github.com/spaghettifunk/stratum/engine/core"
	"github.com/spaghettifunk/stratum/engine/export"
)

func cmdSlice() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "slice <project.toml>",
		Short: "slice a project",
		Long:  "slices every instance of the project and writes a bitmap job (.sjob) or an SLC contour file (.slc)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(args[0])
			if err != nil {
				return err
			}
			defer ws.Close()
			return sliceOnce(cmd.Context(), ws, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, .sjob or .slc")
	cmd.MarkFlagRequired("output")
	return cmd
}

// sliceOnce runs a full export. A cancelled run is reported but is not an
// error.
func sliceOnce(ctx context.Context, ws *workspace, output string) error {
	target, err := export.NewTarget(output)
	if err != nil {
		return err
	}
	rule, err := ws.project.FillRule()
	if err != nil {
		return err
	}
	session := engine.NewSession(ws.systems.Layout, target, engine.Options{
		Name:        ws.project.Job.Name,
		Description: ws.project.Job.Description,
		FillRule:    rule,
		Surface:     ws.systems.Surface,
	})

	err = engine.Run(ctx, session, &progressLogger{})
	if errors.Is(err, core.ErrCancelled) {
		core.LogWarn("Slicing cancelled, '%s' was not written.", output)
		return nil
	}
	if err != nil {
		return fmt.Errorf("slice to '%s': %w", output, err)
	}
	core.LogInfo("Wrote '%s'.", output)
	return nil
}

// progressLogger logs every tenth of the run.
type progressLogger struct {
	next int
}

func (p *progressLogger) OnProgress(pr engine.Progress) {
	if pr.Total == 0 {
		return
	}
	percent := pr.Done * 100 / pr.Total
	if percent >= p.next {
		core.LogInfo("Sliced %d of %d (%d%%).", pr.Done, pr.Total, percent)
		p.next = percent/10*10 + 10
	}
}
