package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunOptions selects what a collection run produces.
type RunOptions struct {
	// BaseURL is recorded on the dataset for provenance.
	BaseURL string
	// AssessmentNames limits the common reports built. Empty means all groups.
	AssessmentNames []string
	// SkipCommonReports stops after the index and groups.
	SkipCommonReports bool
}

// Run executes one full collection: index, common groups, common reports.
func (c *Collector) Run(ctx context.Context, opts RunOptions) (Result[*Dataset], error) {
	runID := uuid.NewString()
	logger := c.logger.With(zap.String("run_id", runID))
	start := time.Now()

	logger.Info("collection run starting", zap.String("base_url", opts.BaseURL))

	indexRes, err := c.CollectIndex(ctx)
	if err != nil {
		return Result[*Dataset]{}, fmt.Errorf("collect index: %w", err)
	}
	index, ok := indexRes.Get()
	if !ok {
		logger.Info("collection run found no reports")
		return Empty[*Dataset](), nil
	}

	ds := &Dataset{
		RunID:         runID,
		CollectedAt:   start.UTC(),
		BaseURL:       opts.BaseURL,
		Index:         index,
		Groups:        BuildCommonGroups(index),
		CommonReports: []*CommonReport{},
	}

	if !opts.SkipCommonReports {
		names := opts.AssessmentNames
		if len(names) == 0 {
			for _, g := range ds.Groups {
				names = append(names, g.AssessmentName)
			}
		}

		for _, name := range names {
			res, err := c.CommonReport(ctx, name, ds.Groups)
			if err != nil {
				return Result[*Dataset]{}, fmt.Errorf("common report %q: %w", name, err)
			}
			report, ok := res.Get()
			if !ok {
				logger.Warn("no common group for assessment name", zap.String("assessment_name", name))
				continue
			}
			ds.CommonReports = append(ds.CommonReports, report)
		}
	}

	logger.Info("collection run completed",
		zap.Int("assessment_types", len(ds.Index.Types)),
		zap.Int("groups", len(ds.Groups)),
		zap.Int("common_reports", len(ds.CommonReports)),
		zap.Duration("elapsed", time.Since(start)))

	return Ok(ds), nil
}
