package constants

// Source tags where a candidate value came from.
type Source string

const (
	SourceStructured Source = "structuredField"
	SourceKeyValue   Source = "keyValuePair"
	SourceTable      Source = "tableCell"
	SourceRegex      Source = "regexPattern"
)

// SourcesByPriority lists sources highest priority first.
var SourcesByPriority = []Source{SourceStructured, SourceKeyValue, SourceTable, SourceRegex}

// Rank is 0 for the most trusted source; unknown sources rank last.
func (s Source) Rank() int {
	for i, v := range SourcesByPriority {
		if v == s {
			return i
		}
	}
	return len(SourcesByPriority)
}
