package normalize

import "strings"

// PersonName is a patient name split into parts.
type PersonName struct {
	First  string
	Middle string
	Last   string
}

// SplitName splits "Last, First Middle" or "Last, First, Middle".
// A name without a comma is read as "First [Middle] Last".
func SplitName(full string) PersonName {
	full = Collapse(Null(full))
	if full == "" {
		return PersonName{}
	}
	if strings.Contains(full, ",") {
		parts := strings.Split(full, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		n := PersonName{Last: parts[0]}
		if len(parts) >= 3 {
			n.First, n.Middle = parts[1], parts[2]
			return n
		}
		if len(parts) == 2 {
			given := strings.Fields(parts[1])
			if len(given) > 0 {
				n.First = given[0]
			}
			if len(given) > 1 {
				n.Middle = strings.Join(given[1:], " ")
			}
		}
		return n
	}
	words := strings.Fields(full)
	switch len(words) {
	case 1:
		return PersonName{First: words[0]}
	case 2:
		return PersonName{First: words[0], Last: words[1]}
	}
	return PersonName{First: words[0], Middle: strings.Join(words[1:len(words)-1], " "), Last: words[len(words)-1]}
}

// Full renders the name as "First Middle Last".
func (n PersonName) Full() string {
	return Collapse(strings.Join([]string{n.First, n.Middle, n.Last}, " "))
}

// Formatted renders the name as "Last, First", the form reports and search boxes use.
func (n PersonName) Formatted() string {
	if n.Last == "" {
		return n.First
	}
	if n.First == "" {
		return n.Last
	}
	return n.Last + ", " + n.First
}
