package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
)

const (
	MsgAlreadyExists = "Already Exists"
	MsgLowConfidence = "No identifying fields were extracted"
	MsgDryRun        = "Dry run: not created"
)

// Creation is what the upstream system reports for a new entity.
type Creation struct {
	ExternalID string
	Message    string
}

// Creator creates the entity a record describes. A rejection by the remote
// side is returned as a *common.CollaboratorError carrying its message.
type Creator interface {
	Create(ctx context.Context, rec entity.CanonicalRecord) (Creation, error)
}

// Ledger is the prior-record store consulted before creating anything.
type Ledger interface {
	Lookup(ctx context.Context, kind constants.RecordKind, key string) (*entity.PriorKnownRecord, error)
	Remember(ctx context.Context, rec entity.PriorKnownRecord) error
}

// Required argument names, checked in this order.
var (
	PatientRequired = []string{"firstName", "lastName", "dob", "certFrom", "certTo", "physicianNpi"}
	OrderRequired   = []string{"orderNumber", "patientName"}
)

type Reconciler struct {
	kind     constants.RecordKind
	required []string
	creator  Creator
	ledger   Ledger
	logger   *slog.Logger
}

type Option func(*Reconciler)

// WithRequired replaces the kind's default required arguments.
func WithRequired(names ...string) Option {
	return func(r *Reconciler) {
		if len(names) > 0 {
			r.required = names
		}
	}
}

// NewReconciler builds a reconciler for kind. A nil creator makes every
// valid, unseen record Skipped; a nil ledger disables the duplicate check.
func NewReconciler(kind constants.RecordKind, creator Creator, ledger Ledger, logger *slog.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{kind: kind, creator: creator, ledger: ledger, logger: logger}
	switch kind {
	case constants.KindOrder:
		r.required = OrderRequired
	default:
		r.required = PatientRequired
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile decides the outcome for one record. It never returns an error:
// every failure becomes a Failed result.
func (r *Reconciler) Reconcile(ctx context.Context, rec entity.CanonicalRecord) entity.ReconciliationResult {
	if rec.IsLowConfidence() {
		r.logger.Warn("reconcile.low_confidence", "doc_id", rec.DocID)
		return entity.NewResult(rec, constants.StatusLowConfidence, MsgLowConfidence)
	}

	if err := r.validate(rec); err != nil {
		r.logger.Info("reconcile.invalid", "doc_id", rec.DocID, "error", err)
		return entity.NewFailure(rec, err)
	}

	key := Key(r.kind, rec)
	if r.ledger != nil && key != "" {
		prior, err := r.ledger.Lookup(ctx, r.kind, key)
		if err != nil {
			r.logger.Error("reconcile.lookup.error", "doc_id", rec.DocID, "key", key, "error", err)
			return entity.NewFailure(rec, err)
		}
		if prior != nil && prior.Status.IsSuccess() {
			r.logger.Info("reconcile.already_exists", "doc_id", rec.DocID, "key", key, "prior_doc_id", prior.DocID)
			return entity.NewResult(rec, constants.StatusAlreadyExists, MsgAlreadyExists)
		}
	}

	if r.creator == nil {
		return entity.NewResult(rec, constants.StatusSkipped, MsgDryRun)
	}

	created, err := r.creator.Create(ctx, rec)
	if err != nil {
		r.logger.Warn("reconcile.create.failed", "doc_id", rec.DocID, "key", key, "error", err)
		return entity.NewFailure(rec, err)
	}
	res := entity.NewCreated(rec, created.ExternalID, created.Message)
	r.logger.Info("reconcile.create.ok", "doc_id", rec.DocID, "key", key, "external_id", created.ExternalID)

	if r.ledger != nil && key != "" {
		err := r.ledger.Remember(ctx, entity.PriorKnownRecord{
			Kind:       r.kind,
			Key:        key,
			Status:     constants.StatusCreated,
			ExternalID: created.ExternalID,
			DocID:      rec.DocID,
			RecordedAt: time.Now().UTC(),
		})
		if err != nil {
			r.logger.Error("reconcile.remember.error", "doc_id", rec.DocID, "key", key, "error", err)
		}
	}
	return res
}

func (r *Reconciler) validate(rec entity.CanonicalRecord) error {
	args := Arguments(rec)
	v := common.NewValidator()
	for _, name := range r.required {
		value, ok := args[name]
		if !ok {
			return common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown required argument %q", name), common.ErrInvalidInput)
		}
		v.Field(name, value, common.Required)
	}
	return v.BlankError()
}

// Arguments names every value a required-argument list may refer to.
func Arguments(rec entity.CanonicalRecord) map[string]string {
	p := rec.Patient()
	return map[string]string{
		"firstName":    p.FirstName,
		"lastName":     p.LastName,
		"dob":          p.DOB,
		"certFrom":     p.CertFrom,
		"certTo":       p.CertTo,
		"physicianNpi": p.PhysicianNPI,
		"mrn":          p.MRN,
		"startOfCare":  p.StartOfCare,
		"orderNumber":  rec.Get(constants.OrderNumber),
		"patientName":  rec.Get(constants.PatientName),
		"icdCodes":     rec.Get(constants.ICDCodes),
	}
}

// Key is the ledger key of a record: the MRN for patients, the order number
// (or the document id when none was extracted) for orders.
func Key(kind constants.RecordKind, rec entity.CanonicalRecord) string {
	switch kind {
	case constants.KindOrder:
		if k := strings.TrimSpace(rec.Get(constants.OrderNumber)); k != "" {
			return k
		}
		return strings.TrimSpace(rec.DocID)
	default:
		return strings.TrimSpace(rec.Get(constants.MRN))
	}
}

// CheckRequired reports names that no record argument answers to.
func CheckRequired(names []string) error {
	known := Arguments(entity.NewCanonicalRecord(""))
	var unknown []string
	for _, n := range names {
		if _, ok := known[n]; !ok {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return common.NewAppError(common.CodeConfig, "unknown required arguments: "+strings.Join(unknown, ", "), common.ErrInvalidInput)
	}
	return nil
}
