package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// ISODateLayout is the storage and wire representation of calendar dates.
	ISODateLayout = "2006-01-02"
	// DisplayDateLayout is only used when rendering dates for people.
	DisplayDateLayout = "02/01/2006"
)

// Date is a calendar date without time of day. The zero value means "no date"
// and is how batches without an expiration date are keyed.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYY-MM-DD, DD/MM/YYYY and RFC3339 timestamps. An empty
// string yields the zero Date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, nil
	}

	if strings.Contains(value, "/") {
		return parseDisplayDate(value)
	}

	if len(value) > len(ISODateLayout) {
		ts, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return Date{}, fmt.Errorf("parse date %q: %w", value, err)
		}
		return DateOf(ts), nil
	}

	t, err := time.Parse(ISODateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return DateOf(t), nil
}

// parseDisplayDate reads D/M/YYYY with optional zero padding.
func parseDisplayDate(value string) (Date, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("parse date %q: expected DD/MM/YYYY", value)
	}

	day, errDay := strconv.Atoi(parts[0])
	month, errMonth := strconv.Atoi(parts[1])
	year, errYear := strconv.Atoi(parts[2])
	if errDay != nil || errMonth != nil || errYear != nil {
		return Date{}, fmt.Errorf("parse date %q: expected DD/MM/YYYY", value)
	}

	if year < 1000 || year > 3000 || month < 1 || month > 12 {
		return Date{}, fmt.Errorf("parse date %q: out of range", value)
	}

	d := Date{Year: year, Month: time.Month(month), Day: day}
	if day < 1 || day > daysIn(d.Month, year) {
		return Date{}, fmt.Errorf("parse date %q: out of range", value)
	}
	return d, nil
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Compare returns -1, 0 or +1. The zero Date sorts before every real date.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// String renders YYYY-MM-DD, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(ISODateLayout)
}

// FormatDisplay renders DD/MM/YYYY, or "N/A" for the zero Date.
func (d Date) FormatDisplay() string {
	if d.IsZero() {
		return "N/A"
	}
	return d.Time().Format(DisplayDateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null, "" and any layout understood by ParseDate.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*d = Date{}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
