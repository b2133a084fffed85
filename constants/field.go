package constants

import (
	"strings"
	"unicode"
)

// Field is one of the canonical attributes every record carries.
type Field string

const (
	PatientName  Field = "patientName"
	DOB          Field = "dob"
	MRN          Field = "mrn"
	StartOfCare  Field = "startOfCare"
	EpisodeStart Field = "episodeStart"
	EpisodeEnd   Field = "episodeEnd"
	NPI          Field = "npi"
	OrderNumber  Field = "orderNumber"
	ICDCodes     Field = "icdCodes"
)

var allFields = []Field{
	PatientName,
	DOB,
	MRN,
	StartOfCare,
	EpisodeStart,
	EpisodeEnd,
	NPI,
	OrderNumber,
	ICDCodes,
}

// Fields returns the canonical fields in report order.
func Fields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allFields))
	for i, f := range allFields {
		result[i] = string(f)
	}
	return result
}

// IsDate reports whether values of f are normalized as MM/DD/YYYY.
func (f Field) IsDate() bool {
	switch f {
	case DOB, StartOfCare, EpisodeStart, EpisodeEnd:
		return true
	}
	return false
}

// Column is the report header used for f.
func (f Field) Column() string {
	switch f {
	case PatientName:
		return "patient_name"
	case StartOfCare:
		return "start_of_care"
	case EpisodeStart:
		return "episode_start"
	case EpisodeEnd:
		return "episode_end"
	case OrderNumber:
		return "order_number"
	case ICDCodes:
		return "icd_codes"
	}
	return string(f)
}

type alias struct {
	text  string
	field Field // empty: known non-patient label, never mapped
	lead  bool  // only when the label starts with text
}

// aliases is checked top to bottom; specific labels sit above generic ones
// so that "patient id" resolves to mrn before "patient" resolves to a name.
// Alias texts match whole words of the label, never parts of a word.
var aliases = []alias{
	{text: "physician name"},
	{text: "doctor name"},
	{text: "agency name"},
	{text: "provider name"},
	{text: "company name"},
	{text: "facility"},
	{text: "insurance"},
	{text: "caregiver"},
	{text: "emergency contact"},
	{text: "referring"},
	{text: "social security"},
	{text: "ssn"},

	{text: "medical record", field: MRN},
	{text: "mrn", field: MRN},
	{text: "mr#", field: MRN},
	{text: "mr #", field: MRN},
	{text: "patient id", field: MRN},
	{text: "patient #", field: MRN},
	{text: "record number", field: MRN},
	{text: "chart #", field: MRN},
	{text: "chart number", field: MRN},

	{text: "date of birth", field: DOB},
	{text: "birth date", field: DOB},
	{text: "birthdate", field: DOB},
	{text: "d.o.b", field: DOB},
	{text: "dob", field: DOB},
	{text: "born", field: DOB},

	{text: "start of care", field: StartOfCare},
	{text: "care start", field: StartOfCare},
	{text: "admission date", field: StartOfCare},
	{text: "admit date", field: StartOfCare},
	{text: "soc", field: StartOfCare},

	{text: "episode start", field: EpisodeStart},
	{text: "episode from", field: EpisodeStart},
	{text: "cert period from", field: EpisodeStart},
	{text: "certification from", field: EpisodeStart},
	{text: "cert from", field: EpisodeStart},
	{text: "period from", field: EpisodeStart},
	{text: "from date", field: EpisodeStart, lead: true},
	{text: "soe", field: EpisodeStart},

	{text: "episode end", field: EpisodeEnd},
	{text: "episode to", field: EpisodeEnd},
	{text: "cert period to", field: EpisodeEnd},
	{text: "certification to", field: EpisodeEnd},
	{text: "cert to", field: EpisodeEnd},
	{text: "period to", field: EpisodeEnd},
	{text: "to date", field: EpisodeEnd, lead: true},
	{text: "eoe", field: EpisodeEnd},

	{text: "npi", field: NPI},

	{text: "order number", field: OrderNumber},
	{text: "order no", field: OrderNumber},
	{text: "order #", field: OrderNumber},
	{text: "order id", field: OrderNumber},

	{text: "icd", field: ICDCodes},
	{text: "diagnosis code", field: ICDCodes},
	{text: "dx code", field: ICDCodes},
	{text: "primary diagnosis", field: ICDCodes},

	{text: "patient name", field: PatientName},
	{text: "client name", field: PatientName},
	{text: "patient", field: PatientName},
	{text: "name", field: PatientName},
}

// Canonicalize maps a free-form label (a document-AI key, a structured
// field name, a report header) to its canonical field. The label is split
// into lower-case words ("certPeriodFrom" reads as "cert period from",
// "date_of_birth" as "date of birth") and matched against the alias table.
func Canonicalize(label string) (Field, bool) {
	words := labelWords(label)
	if words == "" {
		return "", false
	}

	for _, a := range aliases {
		if !a.matches(words) {
			continue
		}
		if a.field == "" {
			return "", false
		}
		return a.field, true
	}

	// canonical names spelled without separators ("episodestart")
	compact := strings.ReplaceAll(words, " ", "")
	for _, f := range allFields {
		if compact == strings.ToLower(string(f)) {
			return f, true
		}
	}
	return "", false
}

func (a alias) matches(words string) bool {
	if a.lead {
		return strings.HasPrefix(words, a.text) && boundary(words, len(a.text))
	}
	for from := 0; from < len(words); {
		i := strings.Index(words[from:], a.text)
		if i < 0 {
			return false
		}
		i += from
		if boundary(words, i-1) && boundary(words, i+len(a.text)) {
			return true
		}
		from = i + 1
	}
	return false
}

// boundary reports whether position i of s is outside s or not a letter or digit.
func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

// Aliases returns the alias texts registered for f, in match order.
func Aliases(f Field) []string {
	var out []string
	for _, a := range aliases {
		if a.field == f {
			out = append(out, a.text)
		}
	}
	return out
}

// labelWords lower-cases label and splits it into space-separated words at
// separators, camel-case humps ("ICDCodes" too) and letter/digit changes.
func labelWords(label string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(label))
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(r),
				unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]),
				unicode.IsLetter(prev) && unicode.IsDigit(r),
				unicode.IsDigit(prev) && unicode.IsLetter(r):
				b.WriteByte(' ')
			}
		}
		switch r {
		case '_', '-', ':', '/', '\t', '\n':
			b.WriteByte(' ')
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
