package article

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoDate is returned by ParseDate when the input is empty.
var ErrNoDate = errors.New("no date")

const dateLayout = "2006-01-02"

// isoLayouts are the accepted ISO-8601 shapes: an extended or basic date,
// optionally followed by a "T" or space and a time of hour, minute or second
// precision with an optional numeric offset. time.Parse also accepts a
// fractional second after any seconds field.
var isoLayouts = buildISOLayouts()

func buildISOLayouts() []string {
	dates := []string{dateLayout, "20060102"}
	times := []string{"15:04:05", "15:04", "150405", "1504", "15"}
	zones := []string{"", "Z07:00", "-0700", "-07"}

	layouts := make([]string, 0, len(dates)*(1+2*len(times)*len(zones)))
	for _, d := range dates {
		for _, sep := range []string{"T", " "} {
			for _, tm := range times {
				for _, z := range zones {
					layouts = append(layouts, d+sep+tm+z)
				}
			}
		}
		layouts = append(layouts, d)
	}
	return layouts
}

// ParseDate reduces an ISO-8601 timestamp to its calendar date (YYYY-MM-DD).
// "Z" zone markers are stripped first, so UTC stamps keep their written date.
func ParseDate(raw string) (string, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "Z", ""))
	if s == "" {
		return "", ErrNoDate
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout), nil
		}
	}
	return "", fmt.Errorf("parse date %q: not ISO-8601", raw)
}
