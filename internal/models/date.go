package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the short form accepted for due dates.
const DateLayout = "2006-01-02"

// ParseDueDate accepts either a calendar date (YYYY-MM-DD, read as the end
// of that day in UTC) or a full RFC 3339 timestamp.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d.Add(24*time.Hour - time.Second).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}
