package normalize

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/orderbridge/constants"
)

var (
	// a date not glued to surrounding digits, so "1950-02-02" is never read as "50-02-02"
	reAnyDate   = regexp.MustCompile(`(?:^|[^\d])(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[/\-]\d{1,2}[/\-](?:\d{4}|\d{2}))(?:$|[^\d])`)
	reMRNLabel  = regexp.MustCompile(`(?i)(?:mrn|mr\s*#|medical record(?: no\.?| number)?)[:#\s]*([^\s,]+)`)
	reParens    = regexp.MustCompile(`\(([^)]+)\)`)
	reICD       = regexp.MustCompile(`\b[A-Z][0-9]{2}(?:\.[0-9A-Z]{1,4})?\b`)
	reNPIDigits = regexp.MustCompile(`\b\d{10}\b`)
)

// Leading labels stripped per field. Bare one-word labels need a colon so
// names like "To Nguyen" survive.
var fieldLabels = map[constants.Field][]*regexp.Regexp{
	constants.DOB: {
		regexp.MustCompile(`(?i)^date of birth[:\s]+`),
		regexp.MustCompile(`(?i)^d\.?o\.?b\.?[:\s]+`),
	},
	constants.StartOfCare: {
		regexp.MustCompile(`(?i)^start of care[:\s]+`),
		regexp.MustCompile(`(?i)^soc[:\s]+`),
	},
	constants.EpisodeStart: {
		regexp.MustCompile(`(?i)^from\s*:\s*`),
	},
	constants.EpisodeEnd: {
		regexp.MustCompile(`(?i)^to\s*:\s*`),
	},
	constants.MRN: {
		regexp.MustCompile(`(?i)^mrn[:\s]+`),
		regexp.MustCompile(`(?i)^medical record no\.?[:\s]+`),
	},
	constants.PatientName: {
		regexp.MustCompile(`(?i)^patient name[:\s]+`),
		regexp.MustCompile(`(?i)^patient\s*:\s*`),
		regexp.MustCompile(`(?i)^name\s*:\s*`),
	},
	constants.NPI: {
		regexp.MustCompile(`(?i)^npi[:#\s]+`),
	},
	constants.OrderNumber: {
		regexp.MustCompile(`(?i)^order (?:number|no\.?|#)[:\s]+`),
	},
}

// CleanValue reduces a verbose captured value ("Date of Birth: 02/02/1950")
// to the bare value expected for field. Dates are not reformatted here.
func CleanValue(field constants.Field, raw string) string {
	value := Null(raw)
	if value == "" {
		return ""
	}

	switch {
	case field.IsDate():
		if _, err := ParseDate(value); err == nil {
			return value
		}
		if m := reAnyDate.FindStringSubmatch(value); m != nil {
			return m[1]
		}
	case field == constants.MRN:
		if m := reMRNLabel.FindStringSubmatch(value); m != nil {
			return strings.TrimSpace(m[1])
		}
		if m := reParens.FindStringSubmatch(value); m != nil {
			return strings.TrimSpace(m[1])
		}
	case field == constants.ICDCodes:
		if codes := ICDCodes(value); len(codes) > 0 {
			return strings.Join(codes, ", ")
		}
	case field == constants.NPI:
		if m := reNPIDigits.FindString(value); m != "" {
			return m
		}
	}

	for _, re := range fieldLabels[field] {
		value = strings.TrimSpace(re.ReplaceAllString(value, ""))
	}
	return Collapse(value)
}

// ICDCodes returns the distinct ICD-10 shaped codes in v, in order.
func ICDCodes(v string) []string {
	return dedupe(reICD.FindAllString(strings.ToUpper(v), -1))
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
