package collector

import (
	"context"
)

// SurveyDetail fetches a report's self resource and extracts the four fields
// the renderer needs, in fixed order.
func (c *Collector) SurveyDetail(ctx context.Context, selfLink string) (SurveyDetail, error) {
	const resource = "survey detail"

	obj, err := c.fetchObject(ctx, resource, selfLink)
	if err != nil {
		return SurveyDetail{}, err
	}

	var d SurveyDetail
	if err := decodeFields(resource, obj,
		field{"classifications", &d.Classifications},
		field{"summary", &d.Summary},
		field{"classification", &d.Classification},
		field{"unit_questions", &d.UnitQuestions},
	); err != nil {
		return SurveyDetail{}, err
	}
	return d, nil
}
