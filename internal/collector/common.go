package collector

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BuildCommonGroups inverts the index on each unit's primary assessment name.
func BuildCommonGroups(index *AssessmentIndex) CommonGroups {
	groups := CommonGroups{}
	if index == nil {
		return groups
	}

	pos := make(map[string]int)
	for _, g := range index.Types {
		for _, u := range g.Units {
			ref := UnitRef{AssessmentType: g.AssessmentType, OrgUnitName: u.OrgUnitName}
			i, ok := pos[u.PrimaryAssessmentName]
			if !ok {
				i = len(groups)
				pos[u.PrimaryAssessmentName] = i
				groups = append(groups, CommonGroup{AssessmentName: u.PrimaryAssessmentName})
			}
			groups[i].Members = append(groups[i].Members, ref)
		}
	}
	return groups
}

// CommonReport builds the heat-map rows of every unit sharing assessmentName.
// Members whose survey id cannot be resolved are listed in Missing. Rows are
// keyed by org unit name, so a later unit with the same name replaces an
// earlier one.
func (c *Collector) CommonReport(ctx context.Context, assessmentName string, groups CommonGroups) (Result[*CommonReport], error) {
	group, ok := groups.Get(assessmentName)
	if !ok {
		return NotFound[*CommonReport](), nil
	}

	report := &CommonReport{
		AssessmentName: assessmentName,
		Units:          make(map[string]CommonReportRow, len(group.Members)),
	}

	for _, m := range group.Members {
		res, err := c.ResolveSurveyID(ctx, m.AssessmentType, assessmentName, m.OrgUnitName)
		if err != nil {
			return Result[*CommonReport]{}, fmt.Errorf("resolve survey id for %s/%s: %w", m.AssessmentType, m.OrgUnitName, err)
		}
		surveyID, found := res.Get()
		if !found {
			c.logger.Warn("skipping unit without survey id",
				zap.String("assessment_name", assessmentName),
				zap.String("assessment_type", m.AssessmentType),
				zap.String("org_unit_name", m.OrgUnitName))
			report.Missing = append(report.Missing, m)
			continue
		}

		hm, err := c.HeatMap(ctx, surveyID)
		if err != nil {
			return Result[*CommonReport]{}, fmt.Errorf("heat map for %s: %w", surveyID, err)
		}

		report.Units[m.OrgUnitName] = CommonReportRow{
			CategoryNames: hm.CategoryNames(),
			Averages:      hm.Averages,
		}
	}

	c.logger.Info("common report built",
		zap.String("assessment_name", assessmentName),
		zap.Int("units", len(report.Units)),
		zap.Int("missing", len(report.Missing)))

	return Ok(report), nil
}
