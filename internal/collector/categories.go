package collector

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// AggregateCategories groups questions and answers under their category,
// keeping category order and question order within each category.
// Questions whose category is not listed are dropped and logged.
func AggregateCategories(uq UnitQuestions, logger *zap.Logger) CategoryData {
	if logger == nil {
		logger = zap.NewNop()
	}

	data := make(CategoryData, 0, len(uq.Categories))
	pos := make(map[ID]int, len(uq.Categories))
	for _, cat := range uq.Categories {
		if _, dup := pos[cat.ID]; dup {
			logger.Warn("duplicate category id, keeping first", zap.String("category_id", string(cat.ID)))
			continue
		}
		pos[cat.ID] = len(data)
		data = append(data, CategoryRecord{
			ID:            cat.ID,
			Name:          cat.Name,
			Average:       cat.Average,
			QuestionIDs:   []ID{},
			QuestionTexts: []string{},
			ParentIDs:     []ID{},
			Answers:       []json.RawMessage{},
		})
	}

	orphans := 0
	for _, qa := range uq.Questions {
		i, ok := pos[qa.Question.Category]
		if !ok {
			orphans++
			continue
		}
		rec := &data[i]
		rec.QuestionIDs = append(rec.QuestionIDs, qa.Question.ID)
		rec.QuestionTexts = append(rec.QuestionTexts, qa.Question.Text)
		rec.ParentIDs = append(rec.ParentIDs, qa.Question.Parent)
		rec.Answers = append(rec.Answers, answerOrNull(qa.Answer))
	}

	if orphans > 0 {
		logger.Warn("dropped questions with unknown category", zap.Int("count", orphans))
	}
	return data
}

// CategoryData fetches a report's unit-questions resource and aggregates it.
func (c *Collector) CategoryData(ctx context.Context, unitQuestionsLink string) (CategoryData, error) {
	uq, err := c.fetchUnitQuestions(ctx, unitQuestionsLink)
	if err != nil {
		return nil, err
	}
	return AggregateCategories(uq, c.logger.With(zap.String("link", unitQuestionsLink))), nil
}

var jsonNull = json.RawMessage("null")

// answerOrNull keeps an absent answer aligned with its question.
func answerOrNull(a json.RawMessage) json.RawMessage {
	if len(a) == 0 {
		return jsonNull
	}
	return a
}
