package entity

import (
	"time"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
)

// ReconciliationResult is the terminal outcome for one record. Fields are
// unexported; a retry produces a new result instead of editing this one.
type ReconciliationResult struct {
	record     CanonicalRecord
	status     constants.ResultStatus
	message    string
	errorKind  common.ErrorKind
	externalID string
	decidedAt  time.Time
}

func NewResult(record CanonicalRecord, status constants.ResultStatus, message string) ReconciliationResult {
	return ReconciliationResult{
		record:    record.Clone(),
		status:    status,
		message:   message,
		decidedAt: time.Now().UTC(),
	}
}

// NewFailure builds a Failed result classified from err.
func NewFailure(record CanonicalRecord, err error) ReconciliationResult {
	res := NewResult(record, constants.StatusFailed, common.Message(err))
	res.errorKind = common.Classify(err)
	return res
}

// NewCreated builds a Created result carrying the id assigned upstream.
func NewCreated(record CanonicalRecord, externalID, message string) ReconciliationResult {
	res := NewResult(record, constants.StatusCreated, message)
	res.externalID = externalID
	return res
}

func (r ReconciliationResult) Record() CanonicalRecord        { return r.record.Clone() }
func (r ReconciliationResult) Status() constants.ResultStatus { return r.status }
func (r ReconciliationResult) Message() string                { return r.message }
func (r ReconciliationResult) ErrorKind() common.ErrorKind    { return r.errorKind }
func (r ReconciliationResult) ExternalID() string             { return r.externalID }
func (r ReconciliationResult) DecidedAt() time.Time           { return r.decidedAt }
