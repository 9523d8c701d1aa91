package mocks

import (
	"context"
	"errors"

	"github.com/godilite/report-collector/internal/collector"
)

// MockReportService is a function-field mock of the ReportService interface
// for testing the handler layer.
type MockReportService struct {
	CollectIndexFunc    func(ctx context.Context) (collector.Result[*collector.AssessmentIndex], error)
	CommonReportFunc    func(ctx context.Context, name string, groups collector.CommonGroups) (collector.Result[*collector.CommonReport], error)
	ResolveSurveyIDFunc func(ctx context.Context, assessmentType, assessmentName, orgUnitName string) (collector.Result[string], error)
	HeatMapFunc         func(ctx context.Context, surveyID string) (*collector.HeatMap, error)
}

func (m *MockReportService) CollectIndex(ctx context.Context) (collector.Result[*collector.AssessmentIndex], error) {
	if m.CollectIndexFunc != nil {
		return m.CollectIndexFunc(ctx)
	}
	return collector.Result[*collector.AssessmentIndex]{}, errors.New("CollectIndexFunc not implemented")
}

func (m *MockReportService) CommonReport(ctx context.Context, name string, groups collector.CommonGroups) (collector.Result[*collector.CommonReport], error) {
	if m.CommonReportFunc != nil {
		return m.CommonReportFunc(ctx, name, groups)
	}
	return collector.Result[*collector.CommonReport]{}, errors.New("CommonReportFunc not implemented")
}

func (m *MockReportService) ResolveSurveyID(ctx context.Context, assessmentType, assessmentName, orgUnitName string) (collector.Result[string], error) {
	if m.ResolveSurveyIDFunc != nil {
		return m.ResolveSurveyIDFunc(ctx, assessmentType, assessmentName, orgUnitName)
	}
	return collector.Result[string]{}, errors.New("ResolveSurveyIDFunc not implemented")
}

func (m *MockReportService) HeatMap(ctx context.Context, surveyID string) (*collector.HeatMap, error) {
	if m.HeatMapFunc != nil {
		return m.HeatMapFunc(ctx, surveyID)
	}
	return nil, errors.New("HeatMapFunc not implemented")
}

// MockSnapshotStore is a function-field mock of the SnapshotStore interface.
type MockSnapshotStore struct {
	LatestSnapshotFunc func(ctx context.Context) (*collector.Dataset, error)
}

func (m *MockSnapshotStore) LatestSnapshot(ctx context.Context) (*collector.Dataset, error) {
	if m.LatestSnapshotFunc != nil {
		return m.LatestSnapshotFunc(ctx)
	}
	return nil, errors.New("LatestSnapshotFunc not implemented")
}
