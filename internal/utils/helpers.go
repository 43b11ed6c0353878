package utils

import (
	"time"
)

// NeverExpires is the due date the inventory system uses for products that
// do not expire.
const NeverExpires = "2999-12-31"

func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func Ptr[T any](v T) *T {
	return &v
}

func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	// strip time to midnight UTC to match DATE semantics
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FormatYMD renders a date for the inventory API.
func FormatYMD(t time.Time) string {
	return t.Format("2006-01-02")
}

// DueDateOrNever formats an optional due date, mapping nil to NeverExpires.
func DueDateOrNever(t *time.Time) string {
	if t == nil {
		return NeverExpires
	}
	return FormatYMD(*t)
}
