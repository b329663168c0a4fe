// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package typeconv

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	TimestampLayout = "2006-01-02 15:04:05.999999999"
)

// timestampLayouts are tried in order when parsing a driver string.
var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseTime parses the textual timestamp forms drivers return.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", s)
}

// Date is a calendar date stored as midnight UTC.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the date part of t.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	t, err := scanTime(src)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// TimeOfDay is a time of day without a date, stored on January 1st of
// year 0 in UTC.
type TimeOfDay struct {
	time.Time
}

// NewTimeOfDay returns the TimeOfDay for the given clock reading.
func NewTimeOfDay(hour, min, sec int) TimeOfDay {
	return TimeOfDay{time.Date(0, time.January, 1, hour, min, sec, 0, time.UTC)}
}

// TimeOfDayOf returns the clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Clock())
}

func (t TimeOfDay) String() string {
	return t.Format(TimeLayout)
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner.
func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	}
	tt, err := scanTime(src)
	if err != nil {
		return err
	}
	*t = TimeOfDayOf(tt)
	return nil
}

func (t *TimeOfDay) parse(s string) error {
	tt, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		if tt, err = ParseTime(s); err != nil {
			return err
		}
	}
	*t = TimeOfDayOf(tt)
	return nil
}

func scanTime(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case string:
		return ParseTime(v)
	case []byte:
		return ParseTime(string(v))
	case int64:
		return time.UnixMilli(v).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot scan %T into a time", src)
}
