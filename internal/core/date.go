package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the ISO-8601 calendar date layout used for storage and output.
const DateFormat = "2006-01-02"

// readDateFormat accepts single-digit months and days.
const readDateFormat = "2006-1-2"

var ErrInvalidDate = fmt.Errorf("%w: invalid date", ErrValidation)

// Date is a calendar day. The embedded time is always midnight UTC so two
// dates compare by day only.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate reads YYYY-MM-DD, also accepting single-digit month and day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(readDateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.Join(ErrInvalidDate, errors.New("date cannot be zero"))
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateFormat)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after e.
func (d Date) Compare(e Date) int {
	return d.Time.Compare(e.Time)
}

// Within reports whether start <= d <= end.
func (d Date) Within(start, end Date) bool {
	return d.Compare(start) >= 0 && d.Compare(end) <= 0
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	// Values written by browsers may carry a time part.
	if len(s) > len(DateFormat) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			*d = DateOf(t)
			return nil
		}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
