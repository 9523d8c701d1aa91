package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID identifies a category or question. The reporting API sends ids as
// either JSON numbers or strings; both decode to the same canonical text.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", b)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Links holds the relative sub-resource URLs of one report row.
type Links struct {
	Self          string `json:"self"`
	UnitQuestions string `json:"unit-questions"`
}

// ReportEntry is one row of the report list.
type ReportEntry struct {
	AssessmentType string `json:"assessment_type"`
	AssessmentName string `json:"assessment_name"`
	OrgUnitCode    string `json:"org_unit_code"`
	OrgUnitName    string `json:"org_unit_name"`
	SurveyID       string `json:"survey_id"`
	Links          Links  `json:"links"`
}

type ReportList struct {
	Count   int
	Results []ReportEntry
}

type Category struct {
	ID      ID      `json:"id"`
	Name    string  `json:"name"`
	Average float64 `json:"average"`
}

type Question struct {
	ID       ID     `json:"id"`
	Text     string `json:"text"`
	Category ID     `json:"category"`
	Parent   ID     `json:"parent"`
}

type QuestionAnswer struct {
	Question Question        `json:"question"`
	Answer   json.RawMessage `json:"answer"`
}

// UnitQuestions is the payload of a report's unit-questions resource.
type UnitQuestions struct {
	Categories []Category
	Questions  []QuestionAnswer
}

// CategoryRecord gathers the questions of one category. QuestionIDs,
// QuestionTexts, ParentIDs and Answers are index-aligned.
type CategoryRecord struct {
	ID            ID                `json:"id"`
	Name          string            `json:"name"`
	Average       float64           `json:"average"`
	QuestionIDs   []ID              `json:"question_ids"`
	QuestionTexts []string          `json:"question_texts"`
	ParentIDs     []ID              `json:"parent_ids"`
	Answers       []json.RawMessage `json:"answers"`
}

// CategoryData lists category records in the order the API returned them.
type CategoryData []CategoryRecord

// Get returns the record for id.
func (d CategoryData) Get(id ID) (*CategoryRecord, bool) {
	for i := range d {
		if d[i].ID == id {
			return &d[i], true
		}
	}
	return nil, false
}

// SurveyDetail is copied verbatim from a report's self resource.
type SurveyDetail struct {
	Classifications json.RawMessage `json:"classifications"`
	Summary         json.RawMessage `json:"summary"`
	Classification  json.RawMessage `json:"classification"`
	UnitQuestions   json.RawMessage `json:"unit_questions"`
}

// UnitReport is what a single report row contributed to a unit.
type UnitReport struct {
	AssessmentName string       `json:"assessment_name"`
	SurveyID       string       `json:"survey_id"`
	Categories     CategoryData `json:"categories"`
	Survey         SurveyDetail `json:"survey"`
}

// UnitRecord aggregates every report row of one org unit within an assessment type.
type UnitRecord struct {
	OrgUnitName               string       `json:"org_unit_name"`
	OrgUnitCode               string       `json:"org_unit_code"`
	PrimaryAssessmentName     string       `json:"primary_assessment_name"`
	AdditionalAssessmentNames []string     `json:"additional_assessment_names,omitempty"`
	ConflictingCodes          []string     `json:"conflicting_codes,omitempty"`
	Reports                   []UnitReport `json:"reports"`
}

type AssessmentTypeGroup struct {
	AssessmentType string       `json:"assessment_type"`
	Units          []UnitRecord `json:"units"`
}

// Unit returns the record for orgUnitName.
func (g *AssessmentTypeGroup) Unit(orgUnitName string) (*UnitRecord, bool) {
	for i := range g.Units {
		if g.Units[i].OrgUnitName == orgUnitName {
			return &g.Units[i], true
		}
	}
	return nil, false
}

// AssessmentIndex groups report rows by assessment type, then org unit,
// both in encounter order.
type AssessmentIndex struct {
	Types []AssessmentTypeGroup `json:"types"`
}

// Type returns the group for assessmentType.
func (ix *AssessmentIndex) Type(assessmentType string) (*AssessmentTypeGroup, bool) {
	for i := range ix.Types {
		if ix.Types[i].AssessmentType == assessmentType {
			return &ix.Types[i], true
		}
	}
	return nil, false
}

// UnitCount returns the number of (type, unit) records.
func (ix *AssessmentIndex) UnitCount() int {
	n := 0
	for _, g := range ix.Types {
		n += len(g.Units)
	}
	return n
}

// UnitRef points at one unit record of the index.
type UnitRef struct {
	AssessmentType string `json:"assessment_type"`
	OrgUnitName    string `json:"org_unit_name"`
}

type CommonGroup struct {
	AssessmentName string    `json:"assessment_name"`
	Members        []UnitRef `json:"members"`
}

// CommonGroups lists units by shared primary assessment name, in encounter order.
type CommonGroups []CommonGroup

// Get returns the group for assessmentName.
func (cg CommonGroups) Get(assessmentName string) (*CommonGroup, bool) {
	for i := range cg {
		if cg[i].AssessmentName == assessmentName {
			return &cg[i], true
		}
	}
	return nil, false
}

type CategoryLabel struct {
	Name string `json:"name"`
	ID   ID     `json:"id"`
}

// HeatMap is the per-survey data behind one heat map.
// Averages are normalized to 0..1 and aligned with Categories.
type HeatMap struct {
	SurveyID   string                   `json:"survey_id"`
	Categories []CategoryLabel          `json:"categories"`
	Averages   []float64                `json:"averages"`
	Questions  map[ID][]string          `json:"questions"`
	Answers    map[ID][]json.RawMessage `json:"answers"`
}

// CategoryNames returns the category names in order.
func (h *HeatMap) CategoryNames() []string {
	names := make([]string, len(h.Categories))
	for i, c := range h.Categories {
		names[i] = c.Name
	}
	return names
}

type CommonReportRow struct {
	CategoryNames []string  `json:"category_names"`
	Averages      []float64 `json:"averages"`
}

// CommonReport holds one heat-map row per org unit sharing an assessment name.
type CommonReport struct {
	AssessmentName string                     `json:"assessment_name"`
	Units          map[string]CommonReportRow `json:"units"`
	Missing        []UnitRef                  `json:"missing,omitempty"`
}

// Dataset is the output of a full collection run.
type Dataset struct {
	RunID         string           `json:"run_id"`
	CollectedAt   time.Time        `json:"collected_at"`
	BaseURL       string           `json:"base_url"`
	Index         *AssessmentIndex `json:"index"`
	Groups        CommonGroups     `json:"groups"`
	CommonReports []*CommonReport  `json:"common_reports"`
}
