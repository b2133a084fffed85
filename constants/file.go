package constants

import "strings"

// Input formats accepted for run manifests and report formats produced.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// AllowedInputExtensions holds the manifest extensions a run can read.
var AllowedInputExtensions = map[string]struct{}{
	FormatCSV:  {},
	FormatXLSX: {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsTabular reports whether ext names a manifest/report format.
func IsTabular(ext string) bool {
	_, ok := AllowedInputExtensions[NormalizeExt(ext)]
	return ok
}

const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
