package collector

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"go.uber.org/zap"
)

// NormalizeAverage maps a 0..100 category average to 0..1, rounded to four
// decimal places.
func NormalizeAverage(raw float64) float64 {
	return math.Round(raw/100*1e4) / 1e4
}

// BuildHeatMap shapes a unit-questions payload into heat-map data.
// Questions whose category is not listed are dropped and logged, the same
// policy AggregateCategories applies.
func BuildHeatMap(surveyID string, uq UnitQuestions, logger *zap.Logger) *HeatMap {
	if logger == nil {
		logger = zap.NewNop()
	}

	hm := &HeatMap{
		SurveyID:   surveyID,
		Categories: make([]CategoryLabel, 0, len(uq.Categories)),
		Averages:   make([]float64, 0, len(uq.Categories)),
		Questions:  make(map[ID][]string, len(uq.Categories)),
		Answers:    make(map[ID][]json.RawMessage, len(uq.Categories)),
	}

	for _, cat := range uq.Categories {
		hm.Categories = append(hm.Categories, CategoryLabel{Name: cat.Name, ID: cat.ID})
		hm.Averages = append(hm.Averages, NormalizeAverage(cat.Average))
		if _, ok := hm.Questions[cat.ID]; !ok {
			hm.Questions[cat.ID] = []string{}
			hm.Answers[cat.ID] = []json.RawMessage{}
		}
	}

	orphans := 0
	for _, qa := range uq.Questions {
		id := qa.Question.Category
		if _, ok := hm.Questions[id]; !ok {
			orphans++
			continue
		}
		hm.Questions[id] = append(hm.Questions[id], qa.Question.Text)
		hm.Answers[id] = append(hm.Answers[id], answerOrNull(qa.Answer))
	}

	if orphans > 0 {
		logger.Warn("dropped questions with unknown category",
			zap.String("survey_id", surveyID),
			zap.Int("count", orphans))
	}
	return hm
}

// HeatMap fetches api/reports/{surveyID}/unit_questions and builds its heat map.
func (c *Collector) HeatMap(ctx context.Context, surveyID string) (*HeatMap, error) {
	if strings.TrimSpace(surveyID) == "" {
		return nil, &MissingFieldError{Resource: "heat map request", Field: "survey_id"}
	}

	uq, err := c.fetchUnitQuestions(ctx, unitQuestionsPath(surveyID))
	if err != nil {
		return nil, err
	}
	return BuildHeatMap(surveyID, uq, c.logger), nil
}
