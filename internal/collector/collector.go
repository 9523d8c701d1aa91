package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const reportsPath = "api/reports"

// Collector reshapes reporting API responses into heat-map lookup structures.
type Collector struct {
	api    Fetcher
	logger *zap.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(api Fetcher, logger *zap.Logger) *Collector {
	if api == nil {
		panic("api must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		api:    api,
		logger: logger.Named("collector"),
	}
}

func (c *Collector) fetchObject(ctx context.Context, resource, path string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := c.api.Fetch(ctx, path, &obj); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", resource, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("fetch %s: response is not a JSON object", resource)
	}
	return obj, nil
}

func (c *Collector) fetchReportList(ctx context.Context) (ReportList, error) {
	const resource = "report list"

	obj, err := c.fetchObject(ctx, resource, reportsPath)
	if err != nil {
		return ReportList{}, err
	}

	var list ReportList
	if err := decodeFields(resource, obj,
		field{"count", &list.Count},
	); err != nil {
		return ReportList{}, err
	}
	if list.Count <= 0 {
		return list, nil
	}
	if err := decodeFields(resource, obj,
		field{"results", &list.Results},
	); err != nil {
		return ReportList{}, err
	}
	return list, nil
}

func (c *Collector) fetchUnitQuestions(ctx context.Context, path string) (UnitQuestions, error) {
	const resource = "unit questions"

	obj, err := c.fetchObject(ctx, resource, path)
	if err != nil {
		return UnitQuestions{}, err
	}

	var uq UnitQuestions
	if err := decodeFields(resource, obj,
		field{"categories", &uq.Categories},
		field{"questions", &uq.Questions},
	); err != nil {
		return UnitQuestions{}, err
	}
	return uq, nil
}

func unitQuestionsPath(surveyID string) string {
	return reportsPath + "/" + url.PathEscape(strings.TrimSpace(surveyID)) + "/unit_questions"
}
