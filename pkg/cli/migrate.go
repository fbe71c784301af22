package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/appu-labs/appu/pkg/cli/config"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/fatih/color"
	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// memoriesCollection is the collection ID of children/{childID}/memories.
// Firestore keys composite and vector indexes by collection ID, so one
// definition covers every child.
const memoriesCollection = "memories"

const defaultDatabaseID = "(default)"

func cmdMigrate() *cli.Command {
	var (
		projectID  string
		databaseID string
		dimension  int
		dryRun     bool
	)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the Firestore indexes the memory store queries need",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID",
				Required:    true,
				Sources:     cli.EnvVars("APPU_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("APPU_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.IntFlag{
				Name:        "embedding-dimension",
				Usage:       "Vector size of the embedding index; must match the embedding provider",
				Value:       config.DefaultEmbeddingDimension,
				Sources:     cli.EnvVars("APPU_EMBEDDING_DIMENSION"),
				Destination: &dimension,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Print the migration plan without applying it",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if dimension <= 0 {
				return goerr.Wrap(config.ErrInvalidConfig, "embedding dimension must be positive", goerr.V("dimension", dimension))
			}

			if databaseID == "" {
				databaseID = defaultDatabaseID
			}

			logger := logging.From(ctx)
			logger.Info("Migrating memory store indexes",
				"project_id", projectID,
				"database_id", databaseID,
				"dimension", dimension,
				"dry_run", dryRun,
			)

			client, err := fireconf.New(ctx, projectID, databaseID, getIndexConfig(dimension),
				fireconf.WithLogger(logger),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client", goerr.V("project_id", projectID))
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Warn("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				current, err := client.Import(ctx, memoriesCollection)
				if err != nil {
					return goerr.Wrap(err, "failed to read current indexes", goerr.V("project_id", projectID))
				}
				diff, err := client.DiffConfigs(current)
				if err != nil {
					return goerr.Wrap(err, "failed to build migration plan")
				}
				printIndexDiff(c.Root().Writer, diff)
				return nil
			}

			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to migrate indexes", goerr.V("project_id", projectID))
			}
			logger.Info("Memory store indexes are up to date")
			return nil
		},
	}
}

// printIndexDiff writes one line per index to create (+) or delete (!)
func printIndexDiff(w io.Writer, diff *fireconf.DiffResult) {
	var changes int
	for _, col := range diff.Collections {
		for _, idx := range col.IndexesToAdd {
			fmt.Fprintf(w, "%s %s: %s\n", color.CyanString("+"), col.Name, describeIndex(idx))
			changes++
		}
		for _, idx := range col.IndexesToDelete {
			fmt.Fprintf(w, "%s %s: %s\n", color.RedString("!"), col.Name, describeIndex(idx))
			changes++
		}
	}
	if changes == 0 {
		fmt.Fprintln(w, color.GreenString("No index changes required"))
	}
}

func describeIndex(idx fireconf.Index) string {
	fields := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		switch {
		case f.Vector != nil:
			fields = append(fields, fmt.Sprintf("%s VECTOR(%d)", f.Path, f.Vector.Dimension))
		case f.Array != "":
			fields = append(fields, fmt.Sprintf("%s %s", f.Path, f.Array))
		default:
			fields = append(fields, fmt.Sprintf("%s %s", f.Path, f.Order))
		}
	}
	return strings.Join(fields, ", ")
}

func getIndexConfig(dimension int) *fireconf.Config {
	archived := fireconf.IndexField{Path: "Archived", Order: fireconf.OrderAscending}
	memType := fireconf.IndexField{Path: "Type", Order: fireconf.OrderAscending}
	newest := fireconf.IndexField{Path: "CreatedAt", Order: fireconf.OrderDescending}
	created := fireconf.IndexField{Path: "CreatedAt", Order: fireconf.OrderAscending}
	vector := fireconf.IndexField{Path: "Embedding", Vector: &fireconf.VectorConfig{Dimension: dimension}}

	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: memoriesCollection,
				Indexes: []fireconf.Index{
					// recent and keyword retrieval
					{Fields: []fireconf.IndexField{archived, newest}},
					{Fields: []fireconf.IndexField{archived, memType, newest}},
					// semantic retrieval with pre-filters
					{Fields: []fireconf.IndexField{archived, vector}},
					{Fields: []fireconf.IndexField{archived, memType, vector}},
					{Fields: []fireconf.IndexField{archived, created, vector}},
					{Fields: []fireconf.IndexField{archived, memType, created, vector}},
				},
			},
		},
	}
}
