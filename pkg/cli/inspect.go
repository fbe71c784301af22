package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/domain/types"
	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdInspect() *cli.Command {
	var childID string
	var query string
	var limit int
	var pipeline pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "child",
			Aliases:     []string{"c"},
			Usage:       "Child ID to inspect",
			Required:    true,
			Destination: &childID,
		},
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Retrieve memories relevant to this text instead of the most recent ones",
			Destination: &query,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Number of memories to print",
			Value:       10,
			Destination: &limit,
		},
	}
	flags = append(flags, pipeline.Flags()...)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Print a child's context summary and memories",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := pipeline.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}

			id := types.ChildID(childID)
			childCtx, err := uc.ChildContext.Get(ctx, id)
			if err != nil {
				return goerr.Wrap(err, "failed to build child context")
			}

			result, err := uc.Retrieval.Retrieve(ctx, usecase.RetrievalQuery{
				ChildID: id,
				Query:   query,
				Limit:   limit,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to retrieve memories")
			}

			w := c.Root().Writer
			printChildContext(w, childCtx)
			printMemories(w, result)
			return nil
		},
	}
}

func printChildContext(w io.Writer, c *model.ChildContext) {
	label := color.New(color.FgCyan)
	_, _ = color.New(color.Bold).Fprintf(w, "Child %s\n", c.ChildID)

	_, _ = label.Fprint(w, "  style:        ")
	fmt.Fprintln(w, c.PersonalityProfile.CommunicationStyle)
	_, _ = label.Fprint(w, "  confidence:   ")
	fmt.Fprintf(w, "%d/10\n", c.PersonalityProfile.Confidence)
	_, _ = label.Fprint(w, "  curiosity:    ")
	fmt.Fprintf(w, "%d/10\n", c.PersonalityProfile.Curiosity)
	_, _ = label.Fprint(w, "  relationship: ")
	fmt.Fprintf(w, "%d/10\n", c.RelationshipLevel)
	_, _ = label.Fprint(w, "  emotion:      ")
	if c.EmotionalState != "" {
		fmt.Fprintln(w, c.EmotionalState)
	} else {
		fmt.Fprintln(w, "-")
	}
	_, _ = label.Fprint(w, "  interests:    ")
	if len(c.ActiveInterests) > 0 {
		fmt.Fprintln(w, strings.Join(c.ActiveInterests, ", "))
	} else {
		fmt.Fprintln(w, "-")
	}
	_, _ = label.Fprint(w, "  window:       ")
	fmt.Fprintf(w, "%d memories\n", c.WindowSize)
}

func printMemories(w io.Writer, r *usecase.RetrievalResult) {
	_, _ = color.New(color.Bold).Fprintf(w, "\nMemories (%s, %d)\n", r.Strategy, len(r.Memories))
	dim := color.New(color.Faint)
	for _, sm := range r.Memories {
		m := sm.Memory
		_, _ = dim.Fprintf(w, "  %s ", m.CreatedAt.Format("2006-01-02 15:04"))
		_, _ = color.New(color.FgMagenta).Fprintf(w, "%-14s ", m.Type)
		fmt.Fprintf(w, "%.2f  %s", m.Importance, m.Content)
		if r.Strategy == usecase.RetrievalSemantic {
			_, _ = dim.Fprintf(w, "  (similarity %.2f)", sm.Similarity)
		}
		fmt.Fprintln(w)
	}
}
