package extract

import (
	"regexp"

	"github.com/joseph-ayodele/orderbridge/constants"
)

// Rule is one named pattern. Capture group i+1 feeds Fields[i]; an empty
// entry ignores that group. Rules run ordered by Tier, then table order.
type Rule struct {
	Name    string
	Tier    int
	Pattern *regexp.Regexp
	Fields  []constants.Field
	All     bool // join every match instead of taking the first
}

const (
	// TierLabeled holds the exact labels printed on known order and 485 layouts.
	TierLabeled = 1
	// TierGeneric holds looser patterns for layouts nobody wrote a rule for.
	TierGeneric = 2
)

// anyDate also accepts spreadsheet serial day numbers.
const (
	date     = `(\d{1,2}/\d{1,2}/\d{4})`
	anyDate  = `(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{5}(?:\.\d+)?)`
	ident    = `([A-Za-z0-9][A-Za-z0-9\-]*)`
	lineRest = `([^\n]+)`
)

func rule(name string, tier int, pattern string, fields ...constants.Field) Rule {
	return Rule{Name: name, Tier: tier, Pattern: regexp.MustCompile(pattern), Fields: fields}
}

// DefaultRules returns the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		rule("npi.label", TierLabeled, `\bNPI\s*[:#]\s*(\d+)`, constants.NPI),
		rule("dob.label", TierLabeled, `\bDOB\s*:\s*`+anyDate, constants.DOB),
		rule("mrn.colon", TierLabeled, `\bMRN?\s*#?\s*:\s*`+ident, constants.MRN),
		rule("mrn.hash", TierLabeled, `\bMRN?\s*#\s*`+ident, constants.MRN),
		rule("episode.range", TierLabeled, date+`\s*-\s*`+date, constants.EpisodeStart, constants.EpisodeEnd),
		rule("episode.range_mrn", TierLabeled, date+`\s*-\s*`+date+`\s+(\d+(?:-\d+)?)\b`, constants.EpisodeStart, constants.EpisodeEnd, constants.MRN),
		rule("episode.start_label", TierLabeled, `(?i)Episode\s+Start\s+Date\s*:\s*`+anyDate, constants.EpisodeStart),
		rule("episode.end_label", TierLabeled, `(?i)Episode\s+End\s+Date\s*:\s*`+anyDate, constants.EpisodeEnd),
		rule("order.label", TierLabeled, `(?i)\bOrder\s*(?:#|No\.?|Number)\s*:?\s*(\d[A-Za-z0-9\-]*)`, constants.OrderNumber),
		rule("patient.label", TierLabeled, `(?i)\bPatient\s*Name\s*:\s*`+lineRest, constants.PatientName),

		rule("dob.generic", TierGeneric, `(?i)(?:\bdob\b|d\.o\.b\.?|date\s*of\s*birth|birth\s*date|\bborn\b)[:\s]*`+anyDate, constants.DOB),
		rule("soc.generic", TierGeneric, `(?i)(?:start\s*of\s*care|\bsoc\b|care\s*start|admission\s*date|admit\s*date)[:\s]*`+anyDate, constants.StartOfCare),
		rule("cert.from_to", TierGeneric, `(?i)\bfrom[:\s]*`+anyDate+`\s*(?:to|thru|through)[:\s]*`+anyDate, constants.EpisodeStart, constants.EpisodeEnd),
		rule("episode.start_generic", TierGeneric, `(?i)(?:episode\s*start|cert(?:ification)?\s*period\s*from|episode\s*from|from\s*date|period\s*from)[:\s]*`+anyDate, constants.EpisodeStart),
		rule("episode.end_generic", TierGeneric, `(?i)(?:episode\s*end|cert(?:ification)?\s*period\s*to|episode\s*to|\bto\s*date|period\s*to)[:\s]*`+anyDate, constants.EpisodeEnd),
		rule("mrn.generic", TierGeneric, `(?i)(?:medical\s*record(?:\s*(?:no\.?|number))?|patient\s*id|record\s*number|chart\s*#)[:#\s]*`+ident, constants.MRN),
		rule("npi.generic", TierGeneric, `(?i)\bNPI\b[^0-9\n]{0,20}(\d{10})\b`, constants.NPI),
		rule("patient.generic", TierGeneric, `(?i)(?:patient|client)\s*name[:\s]+`+lineRest, constants.PatientName),
		rule("patient.bare", TierGeneric, `(?i)\bpatient\s*:\s*`+lineRest, constants.PatientName),
		rule("icd.label", TierGeneric, `(?i:icd(?:-?10)?(?:\s*codes?)?|diagnosis\s*codes?|dx\s*codes?)\s*:?\s*`+lineRest, constants.ICDCodes),
		{
			Name:    "icd.coded",
			Tier:    TierGeneric,
			Pattern: regexp.MustCompile(`\b([A-Z][0-9][0-9A-Z]\.[0-9A-Z]{1,4})\b`),
			Fields:  []constants.Field{constants.ICDCodes},
			All:     true,
		},
	}
}
