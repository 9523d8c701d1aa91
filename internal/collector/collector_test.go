package collector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/godilite/report-collector/internal/collector/mocks"
	"github.com/godilite/report-collector/pkg/reportapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestNewCollector tests the constructor
func TestNewCollector(t *testing.T) {
	t.Run("valid parameters", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		c := NewCollector(api, zap.NewNop())

		assert.NotNil(t, c)
		assert.Equal(t, api, c.api)
	})

	t.Run("nil api panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewCollector(nil, zap.NewNop())
		})
	})

	t.Run("nil logger gets default", func(t *testing.T) {
		c := NewCollector(mocks.NewFakeAPI(), nil)
		assert.NotNil(t, c.logger)
	})
}

func TestCollectIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("empty report list yields empty result", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses[reportsPath] = `{"count": 0, "results": []}`

		res, err := NewCollector(api, zaptest.NewLogger(t)).CollectIndex(ctx)

		require.NoError(t, err)
		assert.Equal(t, StatusEmpty, res.Status)
		assert.Nil(t, res.Value)
		assert.Equal(t, []string{reportsPath}, api.Requests)
	})

	t.Run("zero count does not need results", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses[reportsPath] = `{"count": 0}`

		res, err := NewCollector(api, nil).CollectIndex(ctx)

		require.NoError(t, err)
		assert.Equal(t, StatusEmpty, res.Status)
	})

	t.Run("negative count yields empty result", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses[reportsPath] = `{"count": -1, "results": []}`

		res, err := NewCollector(api, nil).CollectIndex(ctx)

		require.NoError(t, err)
		assert.Equal(t, StatusEmpty, res.Status)
		assert.Nil(t, res.Value)
	})

	t.Run("single report end to end", func(t *testing.T) {
		api := newFakeAPI(reportRow{"GLBA", "SFA FY18", "U1", "Infrastructure", "s1"})

		res, err := NewCollector(api, zaptest.NewLogger(t)).CollectIndex(ctx)
		require.NoError(t, err)

		index, ok := res.Get()
		require.True(t, ok)
		require.Len(t, index.Types, 1)
		assert.Equal(t, "GLBA", index.Types[0].AssessmentType)
		require.Len(t, index.Types[0].Units, 1)

		unit := index.Types[0].Units[0]
		assert.Equal(t, "Infrastructure", unit.OrgUnitName)
		assert.Equal(t, "U1", unit.OrgUnitCode)
		assert.Equal(t, "SFA FY18", unit.PrimaryAssessmentName)
		assert.Empty(t, unit.AdditionalAssessmentNames)
		assert.Empty(t, unit.ConflictingCodes)

		require.Len(t, unit.Reports, 1)
		report := unit.Reports[0]
		assert.Equal(t, "s1", report.SurveyID)
		assert.Len(t, report.Categories, 2)
		assert.JSONEq(t, `"Medium"`, string(report.Survey.Classification))

		assert.Equal(t, []string{reportsPath, unitQuestionsLink("s1"), selfLink("s1")}, api.Requests)
	})

	t.Run("repeat unit with same code collects assessment names", func(t *testing.T) {
		api := newFakeAPI(
			reportRow{"GLBA", "Spring", "U1", "Infrastructure", "s1"},
			reportRow{"GLBA", "Fall", "U1", "Infrastructure", "s2"},
			reportRow{"GLBA", "Winter", "U1", "Infrastructure", "s3"},
		)

		res, err := NewCollector(api, nil).CollectIndex(ctx)
		require.NoError(t, err)

		index := res.Value
		require.Len(t, index.Types, 1)
		require.Len(t, index.Types[0].Units, 1)

		unit := index.Types[0].Units[0]
		assert.Equal(t, "Spring", unit.PrimaryAssessmentName)
		assert.Equal(t, []string{"Fall", "Winter"}, unit.AdditionalAssessmentNames)
		assert.Equal(t, "U1", unit.OrgUnitCode)
		require.Len(t, unit.Reports, 3)
		assert.Equal(t, "s3", unit.Reports[2].SurveyID)
	})

	t.Run("repeat unit with different code is recorded as conflict", func(t *testing.T) {
		api := newFakeAPI(
			reportRow{"GLBA", "Spring", "U1", "Infrastructure", "s1"},
			reportRow{"GLBA", "Fall", "U2", "Infrastructure", "s2"},
		)

		res, err := NewCollector(api, zaptest.NewLogger(t)).CollectIndex(ctx)
		require.NoError(t, err)

		unit := res.Value.Types[0].Units[0]
		assert.Equal(t, "U1", unit.OrgUnitCode)
		assert.Empty(t, unit.AdditionalAssessmentNames)
		assert.Equal(t, []string{"U2"}, unit.ConflictingCodes)
		assert.Len(t, unit.Reports, 2, "data from every row is kept")
	})

	t.Run("groups keep encounter order", func(t *testing.T) {
		api := newFakeAPI(
			reportRow{"PCI", "A", "U1", "Zeta", "s1"},
			reportRow{"GLBA", "A", "U2", "Alpha", "s2"},
			reportRow{"PCI", "B", "U3", "Beta", "s3"},
		)

		res, err := NewCollector(api, nil).CollectIndex(ctx)
		require.NoError(t, err)

		index := res.Value
		require.Len(t, index.Types, 2)
		assert.Equal(t, "PCI", index.Types[0].AssessmentType)
		assert.Equal(t, "GLBA", index.Types[1].AssessmentType)

		pci, ok := index.Type("PCI")
		require.True(t, ok)
		assert.Equal(t, "Zeta", pci.Units[0].OrgUnitName)
		assert.Equal(t, "Beta", pci.Units[1].OrgUnitName)
		assert.Equal(t, 3, index.UnitCount())
	})

	t.Run("missing count is a missing field error", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses[reportsPath] = `{"results": []}`

		_, err := NewCollector(api, nil).CollectIndex(ctx)

		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "count", missing.Field)
	})

	t.Run("wrong-typed count is a field type error", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses[reportsPath] = `{"count": "three", "results": []}`

		_, err := NewCollector(api, nil).CollectIndex(ctx)

		var typeErr *FieldTypeError
		require.ErrorAs(t, err, &typeErr)
		assert.Equal(t, "count", typeErr.Field)
		var mismatch *json.UnmarshalTypeError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("missing results is a missing field error", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses[reportsPath] = `{"count": 3}`

		_, err := NewCollector(api, nil).CollectIndex(ctx)

		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "results", missing.Field)
	})

	t.Run("transport error aborts the run", func(t *testing.T) {
		api := newFakeAPI(reportRow{"GLBA", "A", "U1", "X", "s1"})
		api.Errors[selfLink("s1")] = &reportapi.TransportError{URL: "self", Err: errors.New("connection reset")}

		res, err := NewCollector(api, nil).CollectIndex(ctx)

		var transportErr *reportapi.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Nil(t, res.Value)
	})

	t.Run("non-object body is rejected", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses[reportsPath] = `null`

		_, err := NewCollector(api, nil).CollectIndex(ctx)
		assert.Error(t, err)
	})
}

func TestAggregateCategories(t *testing.T) {
	var uq UnitQuestions
	var obj map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(unitQuestionsFixture), &obj))
	require.NoError(t, decodeFields("fixture", obj,
		field{"categories", &uq.Categories},
		field{"questions", &uq.Questions}))

	data := AggregateCategories(uq, zaptest.NewLogger(t))

	t.Run("one record per category in order", func(t *testing.T) {
		require.Len(t, data, 2)
		assert.Equal(t, ID("1"), data[0].ID)
		assert.Equal(t, "Access Control", data[0].Name)
		assert.Equal(t, 75.0, data[0].Average)
		assert.Equal(t, ID("2"), data[1].ID)
	})

	t.Run("parallel sequences stay aligned", func(t *testing.T) {
		for _, rec := range data {
			n := len(rec.QuestionIDs)
			assert.Len(t, rec.QuestionTexts, n)
			assert.Len(t, rec.ParentIDs, n)
			assert.Len(t, rec.Answers, n)
		}

		rec, ok := data.Get("1")
		require.True(t, ok)
		assert.Equal(t, []ID{"10", "12"}, rec.QuestionIDs)
		assert.Equal(t, []string{"Is MFA enforced?", "Are accounts reviewed?"}, rec.QuestionTexts)
		assert.Equal(t, []ID{"", "10"}, rec.ParentIDs)
		assert.JSONEq(t, `{"value":"yes"}`, string(rec.Answers[0]))
		assert.JSONEq(t, `{"value":"partially"}`, string(rec.Answers[1]))
	})

	t.Run("orphan question is dropped", func(t *testing.T) {
		total := 0
		for _, rec := range data {
			total += len(rec.QuestionIDs)
			assert.NotContains(t, rec.QuestionIDs, ID("13"))
		}
		assert.Equal(t, 3, total)
		_, ok := data.Get("99")
		assert.False(t, ok)
	})

	t.Run("question without answer stays aligned", func(t *testing.T) {
		uq := UnitQuestions{
			Categories: []Category{{ID: "7", Name: "Seven"}},
			Questions: []QuestionAnswer{
				{Question: Question{ID: "q1", Category: "7", Text: "t"}},
			},
		}
		data := AggregateCategories(uq, nil)
		require.Len(t, data, 1)
		assert.Equal(t, []string{"t"}, data[0].QuestionTexts)
		assert.Equal(t, "null", string(data[0].Answers[0]))
	})

	t.Run("category without questions has empty sequences", func(t *testing.T) {
		data := AggregateCategories(UnitQuestions{Categories: []Category{{ID: "1", Name: "Empty"}}}, nil)
		require.Len(t, data, 1)
		assert.NotNil(t, data[0].QuestionIDs)
		assert.Empty(t, data[0].QuestionIDs)
	})

	t.Run("duplicate category id keeps first", func(t *testing.T) {
		data := AggregateCategories(UnitQuestions{Categories: []Category{
			{ID: "1", Name: "First"},
			{ID: "1", Name: "Second"},
		}}, nil)
		require.Len(t, data, 1)
		assert.Equal(t, "First", data[0].Name)
	})
}

func TestCategoryDataFetchesLink(t *testing.T) {
	api := mocks.NewFakeAPI()
	api.Responses["custom/link"] = unitQuestionsFixture

	data, err := NewCollector(api, nil).CategoryData(context.Background(), "custom/link")

	require.NoError(t, err)
	assert.Len(t, data, 2)
	assert.Equal(t, []string{"custom/link"}, api.Requests)
}

func TestSurveyDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("copies the four fields verbatim", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses["api/reports/s1"] = surveyDetailJSON("s1")

		d, err := NewCollector(api, nil).SurveyDetail(ctx, "api/reports/s1")

		require.NoError(t, err)
		assert.JSONEq(t, `["Low","Medium","High"]`, string(d.Classifications))
		assert.JSONEq(t, `{"score":61.5,"survey":"s1"}`, string(d.Summary))
		assert.JSONEq(t, `"Medium"`, string(d.Classification))
		assert.JSONEq(t, `[10,11,12]`, string(d.UnitQuestions))
	})

	t.Run("null value counts as present", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses["self"] = `{"classifications": [], "summary": null, "classification": null, "unit_questions": []}`

		d, err := NewCollector(api, nil).SurveyDetail(ctx, "self")

		require.NoError(t, err)
		assert.Equal(t, "null", string(d.Summary))
	})

	t.Run("missing field fails", func(t *testing.T) {
		api := mocks.NewFakeAPI()
		api.Responses["self"] = `{"classifications": [], "summary": {}, "unit_questions": []}`

		_, err := NewCollector(api, nil).SurveyDetail(ctx, "self")

		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "classification", missing.Field)
		assert.Equal(t, "survey detail", missing.Resource)
	})
}

func TestIDUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want ID
	}{
		{`12`, "12"},
		{`"12"`, "12"},
		{`"abc-1"`, "abc-1"},
		{`null`, ""},
		{`1.5`, "1.5"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tc.in), &id))
			assert.Equal(t, tc.want, id)
		})
	}

	t.Run("rejects objects", func(t *testing.T) {
		var id ID
		assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &id))
	})
}

func TestResult(t *testing.T) {
	v, ok := Ok("s1").Get()
	assert.True(t, ok)
	assert.Equal(t, "s1", v)

	_, ok = NotFound[string]().Get()
	assert.False(t, ok)
	assert.False(t, Empty[int]().IsOK())

	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "empty", StatusEmpty.String())
	assert.Equal(t, "not_found", StatusNotFound.String())
}
