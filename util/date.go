package util

import (
	"fmt"
	"strings"
	"time"
)

//DateLayouts are tried in order by ParseDate.
var DateLayouts = []string{"20060102", "2006-01-02", "2006/01/02"}

//ParseDate parses a date string using the compact layout first, then the dashed
//and slashed forms. The result is in UTC at midnight.
func ParseDate(s string) (t time.Time, e error) {
	s = strings.TrimSpace(s)
	for _, l := range DateLayouts {
		if t, e = time.Parse(l, s); e == nil {
			return t, nil
		}
	}
	return t, fmt.Errorf("unable to parse date from string %q using layouts %v", s, DateLayouts)
}

//Today returns the current local date at midnight UTC, comparable with ParseDate results.
func Today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
