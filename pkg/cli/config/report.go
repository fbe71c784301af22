package config

import (
	"context"

	"github.com/appu-labs/appu/pkg/service/report"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Report holds CLI flags for consolidation reports on Cloud Storage
type Report struct {
	bucket string
	prefix string
}

// Flags returns CLI flags for report configuration
func (r *Report) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "report-bucket",
			Usage:       "Cloud Storage bucket for consolidation reports. Reports are disabled when empty",
			Category:    "Report",
			Sources:     cli.EnvVars("APPU_REPORT_BUCKET"),
			Destination: &r.bucket,
		},
		&cli.StringFlag{
			Name:        "report-prefix",
			Usage:       "Object name prefix for consolidation reports",
			Value:       "consolidation",
			Category:    "Report",
			Sources:     cli.EnvVars("APPU_REPORT_PREFIX"),
			Destination: &r.prefix,
		},
	}
}

// Configure returns the report writer, or nil when no bucket is set.
// The caller closes the writer.
func (r *Report) Configure(ctx context.Context) (*report.Writer, error) {
	if r.bucket == "" {
		return nil, nil
	}

	w, err := report.New(ctx, r.bucket, r.prefix)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize report writer", goerr.V("bucket", r.bucket))
	}
	logging.Default().Info("Consolidation reports enabled", "bucket", r.bucket, "prefix", r.prefix)
	return w, nil
}
