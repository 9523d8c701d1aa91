package models

import "time"

type RunSummary struct {
	RunID           string
	BaseURL         string
	CollectedAt     time.Time
	AssessmentTypes int
	UnitCount       int
}

type UnitRow struct {
	RunID                 string
	Position              int
	AssessmentType        string
	OrgUnitName           string
	OrgUnitCode           string
	PrimaryAssessmentName string
	ReportCount           int
}
