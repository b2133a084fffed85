package normalize

import "strings"

// Certified episode lengths, counted from the episode start day.
const (
	HomeHealthEpisodeDays = 59
	OtherEpisodeDays      = 79
)

// EpisodeEnd returns the explicit end date when present, otherwise derives it
// from start: 59 days for home health (or an unknown service line), 79 otherwise.
// No start and no explicit end yields "".
func EpisodeEnd(explicit, start, serviceLine string) (string, error) {
	if end := Null(explicit); end != "" {
		return Date(end)
	}
	s, err := Date(start)
	if err != nil || s == "" {
		return "", err
	}
	days := OtherEpisodeDays
	if sl := Null(serviceLine); sl == "" || strings.Contains(strings.ToLower(sl), "home") {
		days = HomeHealthEpisodeDays
	}
	return AddDays(s, days)
}
