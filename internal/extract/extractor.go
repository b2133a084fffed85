package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/orderbridge/constants"
	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/entity"
	"github.com/joseph-ayodele/orderbridge/internal/normalize"
)

var reNameStop = regexp.MustCompile(`(?i)\s+(?:dob|d\.o\.b|mrn?|mr\s*#|date of birth|sex|gender|phone|address|age|hic|soc)\b.*$`)

// Input is everything known about one document at extraction time.
type Input struct {
	DocID    string
	Text     string
	Analysis *entity.Analysis
}

// Extractor turns document text and document-AI output into candidates.
// It performs no I/O.
type Extractor struct {
	rules  []Rule
	logger *slog.Logger
}

func NewExtractor(rules []Rule, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Tier < ordered[j].Tier })
	return &Extractor{rules: ordered, logger: logger}
}

// Extract returns candidates from every source. Structured, key-value and
// table candidates keep their source label in Key and are resolved to a
// field by the mapper; regex candidates carry their field directly.
func (e *Extractor) Extract(in Input) ([]entity.Candidate, error) {
	text := normalize.Text(in.Text)
	if text == "" && in.Analysis != nil {
		text = normalize.Text(in.Analysis.Content)
	}
	if text == "" && in.Analysis.Empty() {
		return nil, common.WrapError(common.ErrDocumentUnreadable, fmt.Sprintf("doc %s: no text layer and no analysis", in.DocID))
	}

	var out []entity.Candidate
	out = append(out, fromAnalysis(in.Analysis)...)
	out = append(out, e.fromText(text)...)

	e.logger.Debug("extract.done",
		"doc_id", in.DocID,
		"candidates", len(out),
		"text_bytes", len(text),
	)
	return out, nil
}

func (e *Extractor) fromText(text string) []entity.Candidate {
	if text == "" {
		return nil
	}
	var out []entity.Candidate
	matched := make(map[constants.Field]int) // field -> tier that produced it
	for _, r := range e.rules {
		if allDone(r, matched) {
			continue
		}
		if r.All {
			var vals []string
			for _, m := range r.Pattern.FindAllStringSubmatch(text, -1) {
				if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
					vals = append(vals, strings.TrimSpace(m[1]))
				}
			}
			if len(vals) == 0 {
				continue
			}
			f := r.Fields[0]
			v, ok := fieldValue(f, strings.Join(unique(vals), ", "))
			if !ok {
				continue
			}
			out = append(out, entity.Candidate{Field: f, Value: v, Source: constants.SourceRegex, Rule: r.Name})
			matched[f] = r.Tier
			continue
		}

		m := r.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for i, f := range r.Fields {
			if f == "" || i+1 >= len(m) {
				continue
			}
			if _, done := matched[f]; done {
				continue
			}
			v, ok := fieldValue(f, m[i+1])
			if !ok {
				e.logger.Debug("extract.value.rejected", "rule", r.Name, "field", f, "raw", m[i+1])
				continue
			}
			out = append(out, entity.Candidate{Field: f, Value: v, Source: constants.SourceRegex, Rule: r.Name})
			matched[f] = r.Tier
		}
	}
	return out
}

// allDone reports whether every field r could fill already has a match.
func allDone(r Rule, matched map[constants.Field]int) bool {
	for _, f := range r.Fields {
		if f == "" {
			continue
		}
		if _, ok := matched[f]; !ok {
			return false
		}
	}
	return true
}

func fieldValue(f constants.Field, raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if f.IsDate() {
		d, err := normalize.Date(v)
		if err != nil || d == "" {
			return "", false
		}
		return d, true
	}
	if f == constants.ICDCodes {
		codes := normalize.ICDCodes(v)
		return strings.Join(codes, ", "), len(codes) > 0
	}
	if f == constants.PatientName {
		v = strings.TrimSpace(reNameStop.ReplaceAllString(v, ""))
		v = strings.TrimRight(v, " ,;")
	}
	return v, v != ""
}

func fromAnalysis(a *entity.Analysis) []entity.Candidate {
	if a.Empty() {
		return nil
	}
	var out []entity.Candidate

	names := make([]string, 0, len(a.StructuredFields))
	for k := range a.StructuredFields {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		out = append(out, entity.Candidate{Key: k, Value: strings.TrimSpace(a.StructuredFields[k]), Source: constants.SourceStructured})
	}

	for _, kv := range a.KeyValuePairs {
		out = append(out, entity.Candidate{Key: strings.TrimSpace(kv.Key), Value: strings.TrimSpace(kv.Value), Source: constants.SourceKeyValue})
	}

	for _, t := range a.Tables {
		out = append(out, tableCandidates(t)...)
	}
	return out
}

// tableCandidates pairs a label cell with the cell to its right, or the cell
// below when the label heads a column.
func tableCandidates(t entity.Table) []entity.Candidate {
	grid := make(map[[2]int]string, len(t.Cells))
	for _, c := range t.Cells {
		grid[[2]int{c.Row, c.Column}] = strings.TrimSpace(c.Content)
	}
	var out []entity.Candidate
	for _, c := range t.Cells {
		label := strings.TrimSpace(c.Content)
		if _, ok := constants.Canonicalize(label); !ok {
			continue
		}
		right := grid[[2]int{c.Row, c.Column + 1}]
		if right != "" {
			if _, isLabel := constants.Canonicalize(right); !isLabel {
				out = append(out, entity.Candidate{Key: label, Value: right, Source: constants.SourceTable})
				continue
			}
		}
		if below := grid[[2]int{c.Row + 1, c.Column}]; below != "" {
			out = append(out, entity.Candidate{Key: label, Value: below, Source: constants.SourceTable})
		}
	}
	return out
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
