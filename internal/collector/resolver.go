package collector

import (
	"context"

	"go.uber.org/zap"
)

// ResolveSurveyID returns the survey id of the first report whose type, name
// and org unit all match. The whole list is scanned before StatusNotFound.
func (c *Collector) ResolveSurveyID(ctx context.Context, assessmentType, assessmentName, orgUnitName string) (Result[string], error) {
	list, err := c.fetchReportList(ctx)
	if err != nil {
		return Result[string]{}, err
	}

	if id, ok := FindSurveyID(list.Results, assessmentType, assessmentName, orgUnitName); ok {
		return Ok(id), nil
	}

	c.logger.Debug("survey id not found",
		zap.String("assessment_type", assessmentType),
		zap.String("assessment_name", assessmentName),
		zap.String("org_unit_name", orgUnitName))
	return NotFound[string](), nil
}

// FindSurveyID scans entries in order for the first full match.
func FindSurveyID(entries []ReportEntry, assessmentType, assessmentName, orgUnitName string) (string, bool) {
	for _, e := range entries {
		if e.AssessmentName == assessmentName && e.AssessmentType == assessmentType && e.OrgUnitName == orgUnitName {
			return e.SurveyID, true
		}
	}
	return "", false
}
