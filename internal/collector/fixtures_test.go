package collector

import (
	"encoding/json"

	"github.com/godilite/report-collector/internal/collector/mocks"
)

type reportRow struct {
	assessmentType string
	assessmentName string
	orgUnitCode    string
	orgUnitName    string
	surveyID       string
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func selfLink(surveyID string) string { return "api/reports/" + surveyID }

func unitQuestionsLink(surveyID string) string { return "api/reports/" + surveyID + "/unit_questions" }

func reportListJSON(rows ...reportRow) string {
	results := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		results = append(results, map[string]any{
			"assessment_type": r.assessmentType,
			"assessment_name": r.assessmentName,
			"org_unit_code":   r.orgUnitCode,
			"org_unit_name":   r.orgUnitName,
			"survey_id":       r.surveyID,
			"links": map[string]string{
				"self":           selfLink(r.surveyID),
				"unit-questions": unitQuestionsLink(r.surveyID),
			},
		})
	}
	return mustJSON(map[string]any{
		"count":    len(rows),
		"next":     nil,
		"previous": nil,
		"results":  results,
	})
}

// Two categories, three questions; the last question has no category.
const unitQuestionsFixture = `{
	"categories": [
		{"id": 1, "name": "Access Control", "average": 75},
		{"id": 2, "name": "Incident Response", "average": 33.33333}
	],
	"questions": [
		{"question": {"id": 10, "text": "Is MFA enforced?", "category": 1, "parent": null}, "answer": {"value": "yes"}},
		{"question": {"id": 11, "text": "Is there an IR plan?", "category": 2, "parent": 10}, "answer": {"value": "no"}},
		{"question": {"id": 12, "text": "Are accounts reviewed?", "category": 1, "parent": 10}, "answer": {"value": "partially"}},
		{"question": {"id": 13, "text": "Orphan question", "category": 99, "parent": null}, "answer": {"value": "n/a"}}
	]
}`

func surveyDetailJSON(surveyID string) string {
	return mustJSON(map[string]any{
		"id":              surveyID,
		"classifications": []string{"Low", "Medium", "High"},
		"summary":         map[string]any{"score": 61.5, "survey": surveyID},
		"classification":  "Medium",
		"unit_questions":  []int{10, 11, 12},
	})
}

// newFakeAPI serves a report list plus the sub-resources of every row.
func newFakeAPI(rows ...reportRow) *mocks.FakeAPI {
	api := mocks.NewFakeAPI()
	api.Responses[reportsPath] = reportListJSON(rows...)
	for _, r := range rows {
		api.Responses[selfLink(r.surveyID)] = surveyDetailJSON(r.surveyID)
		api.Responses[unitQuestionsLink(r.surveyID)] = unitQuestionsFixture
	}
	return api
}
