package entity

import "time"

// RawDocument is a fetched source document. It is not modified after fetch.
type RawDocument struct {
	DocID     string    `json:"doc_id"`
	Bytes     []byte    `json:"-"`
	Text      string    `json:"text,omitempty"`
	Pages     int       `json:"pages"`
	FetchedAt time.Time `json:"fetched_at"`
	// Fields holds values the document platform itself recorded for the
	// document (start of care, certification period), keyed by its names.
	Fields map[string]string `json:"fields,omitempty"`
}

// HasText reports whether a usable text layer is attached.
func (d RawDocument) HasText() bool {
	for _, r := range d.Text {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' && r != '\f' {
			return true
		}
	}
	return false
}
