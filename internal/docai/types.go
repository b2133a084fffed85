package docai

import (
	"sort"
	"strings"

	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

type operation struct {
	Status        string         `json:"status"`
	Error         *apiError      `json:"error,omitempty"`
	AnalyzeResult *analyzeResult `json:"analyzeResult,omitempty"`
}

type apiError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	InnerError *apiError `json:"innererror,omitempty"`
}

// code returns the most specific error code.
func (e *apiError) code() string {
	if e == nil {
		return ""
	}
	if inner := e.InnerError.code(); inner != "" {
		return inner
	}
	return e.Code
}

type analyzeResult struct {
	ModelID       string         `json:"modelId"`
	Content       string         `json:"content"`
	KeyValuePairs []keyValuePair `json:"keyValuePairs"`
	Tables        []table        `json:"tables"`
	Documents     []document     `json:"documents"`
}

type element struct {
	Content string `json:"content"`
}

type keyValuePair struct {
	Key        *element `json:"key"`
	Value      *element `json:"value"`
	Confidence float64  `json:"confidence"`
}

type table struct {
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
	Cells       []cell `json:"cells"`
}

type cell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

type document struct {
	DocType    string           `json:"docType"`
	Confidence float64          `json:"confidence"`
	Fields     map[string]field `json:"fields"`
}

type field struct {
	Type        string `json:"type"`
	Content     string `json:"content"`
	ValueString string `json:"valueString"`
	ValueDate   string `json:"valueDate"`
}

func (f field) text() string {
	for _, v := range []string{f.Content, f.ValueString, f.ValueDate} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (op *operation) toAnalysis(requested string) *entity.Analysis {
	a := &entity.Analysis{ModelID: requested}
	r := op.AnalyzeResult
	if r == nil {
		return a
	}
	if r.ModelID != "" {
		a.ModelID = r.ModelID
	}
	a.Content = r.Content

	// the first document with a value wins per field name
	for _, d := range r.Documents {
		names := make([]string, 0, len(d.Fields))
		for name := range d.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := d.Fields[name].text()
			if v == "" {
				continue
			}
			if a.StructuredFields == nil {
				a.StructuredFields = make(map[string]string)
			}
			if _, ok := a.StructuredFields[name]; !ok {
				a.StructuredFields[name] = v
			}
		}
	}

	for _, kv := range r.KeyValuePairs {
		if kv.Key == nil || strings.TrimSpace(kv.Key.Content) == "" {
			continue
		}
		pair := entity.KeyValue{Key: strings.TrimSpace(kv.Key.Content), Confidence: kv.Confidence}
		if kv.Value != nil {
			pair.Value = strings.TrimSpace(kv.Value.Content)
		}
		a.KeyValuePairs = append(a.KeyValuePairs, pair)
	}

	for _, t := range r.Tables {
		out := entity.Table{RowCount: t.RowCount, ColumnCount: t.ColumnCount}
		for _, c := range t.Cells {
			out.Cells = append(out.Cells, entity.TableCell{Row: c.RowIndex, Column: c.ColumnIndex, Content: c.Content})
		}
		a.Tables = append(a.Tables, out)
	}
	return a
}
