package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^[ \t]*[_\-=]{3,}[ \t]*$`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// Text collapses noisy whitespace in OCR or text-layer output.
// Keeps line breaks and form feeds; collapses >2 newlines into a single blank line.
func Text(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reBoxNoise.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

var nullish = map[string]struct{}{
	"none": {},
	"nan":  {},
	"null": {},
	"nil":  {},
	"n/a":  {},
}

// Null trims v and maps placeholder values spreadsheets and JSON
// encoders leave behind ("None", "NaN", "null") to "".
func Null(v string) string {
	v = strings.TrimSpace(v)
	if _, ok := nullish[strings.ToLower(v)]; ok {
		return ""
	}
	return v
}

// Collapse folds every whitespace run into one space.
func Collapse(v string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(v, " "))
}
