package mapper

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
)

// Mapper resolves candidates into one CanonicalRecord.
type Mapper struct {
	logger *slog.Logger
}

func NewMapper(logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{logger: logger}
}

// Resolution records which candidate won a field.
type Resolution struct {
	Field  constants.Field
	Value  string
	Source constants.Source
	Key    string
	Rule   string
}

// Map picks, per field, the first non-blank candidate from the most trusted
// source. Within a source, candidates keep extraction order. The returned
// record always holds every canonical field.
func (m *Mapper) Map(docID string, cands []entity.Candidate) (entity.CanonicalRecord, []Resolution) {
	rec := entity.NewCanonicalRecord(docID)

	bySource := make(map[constants.Source][]entity.Candidate, len(constants.SourcesByPriority))
	for _, c := range cands {
		bySource[c.Source] = append(bySource[c.Source], c)
	}

	var resolved []Resolution
	for _, f := range constants.Fields() {
		for _, src := range constants.SourcesByPriority {
			r, ok := pick(f, bySource[src])
			if !ok {
				continue
			}
			rec.Fields[f] = r.Value
			resolved = append(resolved, r)
			break
		}
	}

	m.logger.Debug("mapper.resolved",
		"doc_id", docID,
		"candidates", len(cands),
		"resolved", len(resolved),
	)
	return rec, resolved
}

func pick(f constants.Field, cands []entity.Candidate) (Resolution, bool) {
	for _, c := range cands {
		if fieldOf(c) != f {
			continue
		}
		v := value(f, c.Value)
		if v == "" {
			continue
		}
		return Resolution{Field: f, Value: v, Source: c.Source, Key: c.Key, Rule: c.Rule}, true
	}
	return Resolution{}, false
}

func fieldOf(c entity.Candidate) constants.Field {
	if c.Field != "" {
		return c.Field
	}
	f, _ := constants.Canonicalize(c.Key)
	return f
}

// value cleans a raw candidate; dates that cannot be parsed count as blank
// so a lower tier gets a chance.
func value(f constants.Field, raw string) string {
	v := normalize.CleanValue(f, raw)
	if v == "" {
		return ""
	}
	if f.IsDate() {
		return normalize.DateOrEmpty(v)
	}
	return strings.TrimSpace(v)
}

// DefaultEpisodeEnd fills a blank episode end with the certified episode
// length counted from the resolved episode start, or from the start of care
// when no episode start exists. It reports whether rec changed.
func DefaultEpisodeEnd(rec entity.CanonicalRecord, serviceLine string) bool {
	if rec.Get(constants.EpisodeEnd) != "" {
		return false
	}
	start := rec.Get(constants.EpisodeStart)
	if start == "" {
		start = rec.Get(constants.StartOfCare)
	}
	if start == "" {
		return false
	}
	end, err := normalize.EpisodeEnd("", start, serviceLine)
	if err != nil || end == "" {
		return false
	}
	rec.Fields[constants.EpisodeEnd] = end
	return true
}
