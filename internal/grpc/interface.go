package grpc

import (
	"context"

	"github.com/godilite/report-collector/internal/collector"
)

// ReportService is the collector surface exposed over gRPC.
type ReportService interface {
	CollectIndex(ctx context.Context) (collector.Result[*collector.AssessmentIndex], error)
	CommonReport(ctx context.Context, assessmentName string, groups collector.CommonGroups) (collector.Result[*collector.CommonReport], error)
	ResolveSurveyID(ctx context.Context, assessmentType, assessmentName, orgUnitName string) (collector.Result[string], error)
	HeatMap(ctx context.Context, surveyID string) (*collector.HeatMap, error)
}

// SnapshotStore reads persisted collection runs.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context) (*collector.Dataset, error)
}
