package collector

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// CollectIndex fetches the report list and builds the assessment index,
// pulling category data and survey detail for every row. A report list
// with a non-positive count yields StatusEmpty.
func (c *Collector) CollectIndex(ctx context.Context) (Result[*AssessmentIndex], error) {
	list, err := c.fetchReportList(ctx)
	if err != nil {
		return Result[*AssessmentIndex]{}, err
	}
	if list.Count <= 0 {
		c.logger.Info("report list is empty", zap.Int("count", list.Count))
		return Empty[*AssessmentIndex](), nil
	}

	index := &AssessmentIndex{Types: []AssessmentTypeGroup{}}
	for i, entry := range list.Results {
		unit := c.addEntry(index, entry)

		categories, err := c.CategoryData(ctx, entry.Links.UnitQuestions)
		if err != nil {
			return Result[*AssessmentIndex]{}, fmt.Errorf("report %d (%s): %w", i, entry.SurveyID, err)
		}
		survey, err := c.SurveyDetail(ctx, entry.Links.Self)
		if err != nil {
			return Result[*AssessmentIndex]{}, fmt.Errorf("report %d (%s): %w", i, entry.SurveyID, err)
		}

		unit.Reports = append(unit.Reports, UnitReport{
			AssessmentName: entry.AssessmentName,
			SurveyID:       entry.SurveyID,
			Categories:     categories,
			Survey:         survey,
		})
	}

	c.logger.Info("assessment index built",
		zap.Int("count", list.Count),
		zap.Int("rows", len(list.Results)),
		zap.Int("assessment_types", len(index.Types)),
		zap.Int("units", index.UnitCount()))

	return Ok(index), nil
}

// addEntry places a report row in the index and returns its unit record.
// A repeated org unit with a matching code gains an additional assessment
// name; a repeated org unit with a different code keeps its first code and
// records the conflict.
func (c *Collector) addEntry(index *AssessmentIndex, entry ReportEntry) *UnitRecord {
	group, ok := index.Type(entry.AssessmentType)
	if !ok {
		index.Types = append(index.Types, AssessmentTypeGroup{
			AssessmentType: entry.AssessmentType,
			Units:          []UnitRecord{},
		})
		group = &index.Types[len(index.Types)-1]
	}

	unit, ok := group.Unit(entry.OrgUnitName)
	if !ok {
		group.Units = append(group.Units, UnitRecord{
			OrgUnitName:           entry.OrgUnitName,
			OrgUnitCode:           entry.OrgUnitCode,
			PrimaryAssessmentName: entry.AssessmentName,
			Reports:               []UnitReport{},
		})
		return &group.Units[len(group.Units)-1]
	}

	if unit.OrgUnitCode == entry.OrgUnitCode {
		unit.AdditionalAssessmentNames = append(unit.AdditionalAssessmentNames, entry.AssessmentName)
		return unit
	}

	c.logger.Warn("org unit name maps to more than one code",
		zap.String("assessment_type", entry.AssessmentType),
		zap.String("org_unit_name", entry.OrgUnitName),
		zap.String("org_unit_code", unit.OrgUnitCode),
		zap.String("conflicting_code", entry.OrgUnitCode))
	if !slices.Contains(unit.ConflictingCodes, entry.OrgUnitCode) {
		unit.ConflictingCodes = append(unit.ConflictingCodes, entry.OrgUnitCode)
	}
	return unit
}
