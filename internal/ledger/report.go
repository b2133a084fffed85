package ledger

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/report"
)

// Columns read from an earlier report. The second name in each list is the
// header used by the agency template workbooks.
var (
	reportMRNColumns    = []string{"mrn", "Medical Record No"}
	reportOrderColumns  = []string{"order_number", "Order Number"}
	reportStatusColumns = []string{"creation_status", "DA Upload Status"}
)

// ReportStore answers lookups from a previous run's report. Remember only
// updates the in-memory view; the file is never written.
type ReportStore struct {
	mu      sync.RWMutex
	records map[string]entity.PriorKnownRecord
	logger  *slog.Logger
}

// OpenReport loads the CSV or XLSX report at path.
func OpenReport(path string, logger *slog.Logger) (*ReportStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := report.ReadTable(path)
	if err != nil {
		return nil, err
	}
	s := &ReportStore{records: make(map[string]entity.PriorKnownRecord), logger: logger}

	mrnCol := t.Column(reportMRNColumns...)
	orderCol := t.Column(reportOrderColumns...)
	statusCol := t.Column(reportStatusColumns...)
	docCol := t.Column(report.DocIDColumns...)
	for _, row := range t.Rows {
		status, ok := constants.ParseStatus(row.Get(statusCol))
		if !ok {
			continue
		}
		base := entity.PriorKnownRecord{Status: status, DocID: row.Get(docCol)}
		if mrn := row.Get(mrnCol); mrn != "" {
			rec := base
			rec.Kind, rec.Key = constants.KindPatient, mrn
			s.put(rec)
		}
		key := row.Get(orderCol)
		if key == "" {
			key = base.DocID
		}
		if key != "" {
			rec := base
			rec.Kind, rec.Key = constants.KindOrder, key
			s.put(rec)
		}
	}
	logger.Info("ledger.report.loaded", "path", path, "rows", len(t.Rows), "records", len(s.records))
	return s, nil
}

// put keeps a success over a later failure for the same key.
func (s *ReportStore) put(rec entity.PriorKnownRecord) {
	k := reportKey(rec.Kind, rec.Key)
	if prior, ok := s.records[k]; ok && prior.Status.IsSuccess() && !rec.Status.IsSuccess() {
		return
	}
	s.records[k] = rec
}

func (s *ReportStore) Lookup(_ context.Context, kind constants.RecordKind, key string) (*entity.PriorKnownRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[reportKey(kind, key)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *ReportStore) Remember(_ context.Context, rec entity.PriorKnownRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(rec)
	return nil
}

func (s *ReportStore) Ping(context.Context) error { return nil }
func (s *ReportStore) Close() error               { return nil }

func reportKey(kind constants.RecordKind, key string) string {
	return string(kind) + "\x00" + strings.TrimSpace(key)
}
