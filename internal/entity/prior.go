package entity

import (
	"time"

	"github.com/joseph-ayodele/orderbridge/constants"
)

// PriorKnownRecord is what a ledger remembers about an entity handled by an
// earlier run. Patients are keyed by MRN, orders by order number or doc id.
type PriorKnownRecord struct {
	Kind       constants.RecordKind   `json:"kind"`
	Key        string                 `json:"key"`
	Status     constants.ResultStatus `json:"status"`
	ExternalID string                 `json:"external_id,omitempty"`
	DocID      string                 `json:"doc_id,omitempty"`
	RecordedAt time.Time              `json:"recorded_at"`
}
