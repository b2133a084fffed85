package entity

import "github.com/joseph-ayodele/orderbridge/constants"

// Candidate is one proposed value for one canonical field.
type Candidate struct {
	Field  constants.Field  `json:"field"`
	Value  string           `json:"value"`
	Source constants.Source `json:"source"`
	Key    string           `json:"key,omitempty"`  // label text as it appeared in the document
	Rule   string           `json:"rule,omitempty"` // regex rule name
}
