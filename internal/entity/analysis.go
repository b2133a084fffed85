package entity

// Analysis is the provider-neutral output of a document-AI call.
type Analysis struct {
	ModelID          string            `json:"model_id"`
	StructuredFields map[string]string `json:"structured_fields,omitempty"`
	KeyValuePairs    []KeyValue        `json:"key_value_pairs,omitempty"`
	Tables           []Table           `json:"tables,omitempty"`
	Content          string            `json:"content,omitempty"`
}

type KeyValue struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
}

type Table struct {
	RowCount    int         `json:"row_count"`
	ColumnCount int         `json:"column_count"`
	Cells       []TableCell `json:"cells"`
}

type TableCell struct {
	Row     int    `json:"row"`
	Column  int    `json:"column"`
	Content string `json:"content"`
}

// Empty reports whether the analysis carries nothing usable.
func (a *Analysis) Empty() bool {
	if a == nil {
		return true
	}
	return len(a.StructuredFields) == 0 && len(a.KeyValuePairs) == 0 && len(a.Tables) == 0 && a.Content == ""
}
