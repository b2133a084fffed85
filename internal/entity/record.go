package entity

import (
	"strings"

	"github.com/joseph-ayodele/orderbridge/constants"
)

// Supplementary attribute keys copied from the input row.
const (
	AttrServiceLine     = "serviceLine"
	AttrSex             = "sex"
	AttrPayor           = "payor"
	AttrInsuranceNumber = "insuranceNumber"
	AttrHelperID        = "helperId"
)

// CanonicalRecord is the resolved view of one document: every canonical
// field is present, unresolved ones hold "".
type CanonicalRecord struct {
	DocID      string                     `json:"doc_id"`
	Fields     map[constants.Field]string `json:"fields"`
	Attributes map[string]string          `json:"attributes,omitempty"`
}

func NewCanonicalRecord(docID string) CanonicalRecord {
	fields := make(map[constants.Field]string, len(constants.Fields()))
	for _, f := range constants.Fields() {
		fields[f] = ""
	}
	return CanonicalRecord{DocID: docID, Fields: fields, Attributes: map[string]string{}}
}

func (r CanonicalRecord) Get(f constants.Field) string {
	return r.Fields[f]
}

func (r CanonicalRecord) Attr(key string) string {
	return r.Attributes[key]
}

// Clone returns a deep copy.
func (r CanonicalRecord) Clone() CanonicalRecord {
	out := CanonicalRecord{
		DocID:      r.DocID,
		Fields:     make(map[constants.Field]string, len(r.Fields)),
		Attributes: make(map[string]string, len(r.Attributes)),
	}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	for k, v := range r.Attributes {
		out.Attributes[k] = v
	}
	return out
}

// IsLowConfidence is true when nothing that identifies the patient or the
// episode was resolved.
func (r CanonicalRecord) IsLowConfidence() bool {
	for _, f := range []constants.Field{constants.MRN, constants.DOB, constants.StartOfCare, constants.EpisodeStart, constants.EpisodeEnd} {
		if strings.TrimSpace(r.Fields[f]) != "" {
			return false
		}
	}
	return true
}
