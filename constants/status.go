package constants

// ResultStatus is the terminal outcome recorded for one input row.
type ResultStatus string

// Stable values (written verbatim into the report and the ledger).
const (
	StatusCreated       ResultStatus = "Created"
	StatusAlreadyExists ResultStatus = "AlreadyExists"
	StatusFailed        ResultStatus = "Failed"
	StatusSkipped       ResultStatus = "Skipped"
	StatusLowConfidence ResultStatus = "LowConfidence"
)

// IsSuccess reports whether a prior result with this status means the entity exists upstream.
func (s ResultStatus) IsSuccess() bool {
	return s == StatusCreated || s == StatusAlreadyExists
}

// ParseStatus accepts the values written by this tool as well as the
// free-form comments older reports carry ("Created", "Already Exists", "Passed").
func ParseStatus(v string) (ResultStatus, bool) {
	switch v {
	case string(StatusCreated), "Passed":
		return StatusCreated, true
	case string(StatusAlreadyExists), "Already Exists":
		return StatusAlreadyExists, true
	case string(StatusFailed):
		return StatusFailed, true
	case string(StatusSkipped):
		return StatusSkipped, true
	case string(StatusLowConfidence):
		return StatusLowConfidence, true
	}
	return "", false
}

// RecordKind selects the entity a row reconciles against.
type RecordKind string

const (
	KindPatient RecordKind = "patient"
	KindOrder   RecordKind = "order"
)

func ParseKind(v string) (RecordKind, bool) {
	switch RecordKind(v) {
	case KindPatient, KindOrder:
		return RecordKind(v), true
	}
	return "", false
}
