package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	// DeadlineLayout is the canonical DD/MM/YY text form.
	DeadlineLayout = "02/01/06"
	// deadlineParseLayout also accepts single digit days and months.
	deadlineParseLayout = "2/1/06"
)

// Deadline is the raw deadline text as entered. It is kept verbatim even when it does not parse.
type Deadline string

// NoDeadline is the zero value.
const NoDeadline Deadline = ""

// NewDeadline formats a date in the canonical layout.
func NewDeadline(d time.Time) Deadline {
	return Deadline(d.Format(DeadlineLayout))
}

// IsSet reports whether any deadline text is present.
func (d Deadline) IsSet() bool {
	return strings.TrimSpace(string(d)) != ""
}

// Date parses the deadline as a local calendar date. A missing deadline and an unparseable
// one both yield a *ParseError; callers treat either as "no usable deadline".
func (d Deadline) Date() (time.Time, error) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return time.Time{}, &ParseError{Value: string(d), Err: errEmptyDeadline}
	}
	t, err := time.ParseInLocation(deadlineParseLayout, s, time.Local)
	if err != nil {
		return time.Time{}, &ParseError{Value: string(d), Err: err}
	}
	return t, nil
}

// Usable reports whether the deadline parses.
func (d Deadline) Usable() bool {
	_, err := d.Date()
	return err == nil
}

func (d Deadline) String() string {
	return string(d)
}

// Value stores an empty deadline as NULL, matching rows written by earlier versions.
func (d Deadline) Value() (driver.Value, error) {
	if !d.IsSet() {
		return nil, nil
	}
	return string(d), nil
}

func (d *Deadline) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = NoDeadline
	case string:
		*d = Deadline(v)
	case []byte:
		*d = Deadline(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Deadline", src)
	}
	return nil
}

// DateOf truncates a wall-clock instant to local midnight.
func DateOf(t time.Time) time.Time {
	y, m, day := t.In(time.Local).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.Local)
}

// DaysBetween counts whole calendar days from a to b; negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	a, b = DateOf(a), DateOf(b)
	// Dates are normalised through UTC so DST shifts do not skew the count.
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
