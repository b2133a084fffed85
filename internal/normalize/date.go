package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical date format for every date field.
const Layout = "01/02/2006"

var ErrInvalidDate = errors.New("invalid date")

// spreadsheet serial day zero
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const maxSerial = 2958465 // 9999-12-31

var (
	reSerial   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	reDateHead = regexp.MustCompile(`^\d{1,4}[/\-.]\d{1,2}[/\-.]\d{1,4}$`)
)

var layouts = []string{
	"1/2/2006",
	"1-2-2006",
	"1.2.2006",
	"2006-1-2",
	"2006/1/2",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"Jan 2 2006",
}

var shortYearLayouts = []string{
	"1/2/06",
	"1-2-06",
}

// Date normalizes v to MM/DD/YYYY. Blank input yields "" without error.
func Date(v string) (string, error) {
	t, err := ParseDate(v)
	if err != nil || t.IsZero() {
		return "", err
	}
	return t.Format(Layout), nil
}

// DateOrEmpty is Date with unparseable input mapped to "".
func DateOrEmpty(v string) string {
	out, _ := Date(v)
	return out
}

// ParseDate accepts the date shapes seen in documents and spreadsheets,
// including serial day numbers and values carrying a time of day.
func ParseDate(v string) (time.Time, error) {
	v = Null(v)
	if v == "" {
		return time.Time{}, nil
	}
	v = stripTime(v)

	if reSerial.MatchString(v) {
		days, err := strconv.ParseFloat(v, 64)
		if err != nil || days < 1 || days > maxSerial {
			return time.Time{}, fmt.Errorf("%w: serial %q out of range", ErrInvalidDate, v)
		}
		return serialEpoch.AddDate(0, 0, int(days)), nil
	}

	for _, l := range layouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, nil
		}
	}
	for _, l := range shortYearLayouts {
		if t, err := time.Parse(l, v); err == nil {
			if t.After(time.Now()) {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, v)
}

// stripTime drops a trailing time component ("01/15/2024 00:00:00",
// "2024-01-15T10:30:00Z") when the head already looks like a date.
func stripTime(v string) string {
	i := strings.IndexAny(v, " T")
	if i <= 0 {
		return v
	}
	head := v[:i]
	if reDateHead.MatchString(head) || reSerial.MatchString(head) {
		return head
	}
	return v
}

// AddDays shifts an MM/DD/YYYY date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(Layout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.AddDate(0, 0, n).Format(Layout), nil
}

// InRange reports whether the date in v falls within [from, to]; zero bounds are open.
func InRange(v string, from, to time.Time) (bool, error) {
	t, err := ParseDate(v)
	if err != nil {
		return false, err
	}
	if t.IsZero() {
		return false, nil
	}
	if !from.IsZero() && t.Before(from) {
		return false, nil
	}
	if !to.IsZero() && t.After(to) {
		return false, nil
	}
	return true, nil
}
