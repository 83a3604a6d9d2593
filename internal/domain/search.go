package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used by search queries and bill entries.
const DateLayout = "2006-01-02"

// SearchKind selects which filter a search query maps to.
type SearchKind int

const (
	// SearchByName matches tasks whose description contains Name.
	SearchByName SearchKind = iota
	// SearchByNameAndTime matches description substring and exact scheduled time.
	SearchByNameAndTime
	// SearchByDate matches tasks notified on Date in the configured zone.
	SearchByDate
)

func (k SearchKind) String() string {
	switch k {
	case SearchByNameAndTime:
		return "name_time"
	case SearchByDate:
		return "date"
	default:
		return "name"
	}
}

// SearchFilter is the parsed form of a free-text search query.
type SearchFilter struct {
	Kind SearchKind
	Name string
	At   TimeOfDay
	Date string
}

// ParseSearchQuery maps a query to a filter:
//
//	"Run"        -> description contains "Run"
//	"Run:06:30"  -> description contains "Run" and scheduled at 06:30
//	"2025-02-18" -> notified on that date
//
// A query that looks like one of the structured forms but does not parse falls
// back to a description match on the whole query.
func ParseSearchQuery(query string) (SearchFilter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchFilter{}, NewValidationError("q", "cannot be empty", ErrEmptyContent)
	}

	if name, rest, ok := strings.Cut(query, ":"); ok {
		if at, err := ParseTimeOfDay(rest); err == nil {
			return SearchFilter{Kind: SearchByNameAndTime, Name: strings.TrimSpace(name), At: at}, nil
		}
		return SearchFilter{Kind: SearchByName, Name: query}, nil
	}

	if strings.Count(query, "-") == 2 {
		if _, err := time.Parse(DateLayout, query); err == nil {
			return SearchFilter{Kind: SearchByDate, Date: query}, nil
		}
	}

	return SearchFilter{Kind: SearchByName, Name: query}, nil
}
