package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/orderbridge/internal/common"
	"github.com/joseph-ayodele/orderbridge/internal/ingest"
)

// Subdirectories input files are moved into once their run ends.
const (
	DirProcessed = "processed"
	DirFailed    = "failed"
)

// Inbox is a directory the daemon polls for input spreadsheets.
type Inbox struct {
	Dir string
}

// Pending lists the tabular files directly inside the inbox, oldest name
// first. Hidden and lock files ("~$x.xlsx") are ignored.
func (i Inbox) Pending() ([]string, error) {
	entries, err := os.ReadDir(i.Dir)
	if err != nil {
		return nil, common.WrapError(err, "read inbox "+i.Dir)
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(i.Dir, e.Name())
		if e.IsDir() || !ingest.Allowed(p) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Archive moves path into processed/ or failed/ and returns the new path.
// An existing file of the same name is kept; the moved one gets a suffix.
func (i Inbox) Archive(path string, ok bool, now time.Time) (string, error) {
	sub := DirProcessed
	if !ok {
		sub = DirFailed
	}
	dir := filepath.Join(i.Dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", common.WrapError(err, "create "+dir)
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(filepath.Base(path), ext)
		dest = filepath.Join(dir, fmt.Sprintf("%s_%s%s", base, now.Format("2006-01-02_15-04-05"), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		return "", common.WrapError(err, "archive "+path)
	}
	return dest, nil
}
