package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdConsolidate() *cli.Command {
	var childID string
	var pipeline pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "child",
			Aliases:     []string{"c"},
			Usage:       "Consolidate only this child (all children when empty)",
			Destination: &childID,
		},
	}
	flags = append(flags, pipeline.Flags()...)

	return &cli.Command{
		Name:  "consolidate",
		Usage: "Run one consolidation pass and print a summary",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := pipeline.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}

			w := c.Root().Writer
			if childID != "" {
				result, err := uc.Consolidation.Consolidate(ctx, types.ChildID(childID))
				if err != nil {
					return goerr.Wrap(err, "consolidation failed")
				}
				printConsolidation(w, result)
				return nil
			}

			sweep, err := uc.Consolidation.ConsolidateAll(ctx)
			if err != nil {
				return goerr.Wrap(err, "consolidation sweep failed")
			}
			printSweep(w, sweep)
			if sweep.Failed() > 0 {
				return goerr.New("consolidation failed for some children", goerr.V("failed", sweep.Failed()))
			}
			return nil
		},
	}
}

func printConsolidation(w io.Writer, r *model.ConsolidationResult) {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintf(w, "%s\n", r.ChildID)
	fmt.Fprintf(w, "  consolidated: %d  merged: %d  archived: %d  (%dms)\n",
		r.ConsolidatedMemories, r.MergedMemories, r.ArchivedMemories, r.ProcessingTimeMS())
	for _, in := range r.NewInsights {
		_, _ = color.New(color.FgCyan).Fprintf(w, "  [%s] ", in.Pattern)
		fmt.Fprintf(w, "%s (confidence %.1f)\n", in.Description, in.Confidence)
		for _, rec := range in.Recommendations {
			fmt.Fprintf(w, "      - %s\n", rec)
		}
	}
}

func printSweep(w io.Writer, s *model.SweepResult) {
	for _, r := range s.Results {
		printConsolidation(w, r)
	}
	for _, f := range s.Failures {
		_, _ = color.New(color.FgRed).Fprintf(w, "%s: FAILED ", f.ChildID)
		fmt.Fprintln(w, f.Error)
	}

	summary := color.New(color.FgGreen)
	if s.Failed() > 0 {
		summary = color.New(color.FgYellow)
	}
	_, _ = summary.Fprintf(w, "%d succeeded, %d failed in %s\n",
		s.Succeeded(), s.Failed(), s.FinishedAt.Sub(s.StartedAt))
}
