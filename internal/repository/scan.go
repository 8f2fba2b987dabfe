package repository

import (
	"fmt"
	"strings"
	"time"
)

// Drivers disagree on how DATE and DATETIME come back: MySQL with
// parseTime gives time.Time, SQLite may give text.  dbTime accepts both.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

type dbTime struct{ t *time.Time }

func (d dbTime) Scan(v any) error {
	switch x := v.(type) {
	case time.Time:
		*d.t = x.UTC()
		return nil
	case []byte:
		return d.parse(string(x))
	case string:
		return d.parse(x)
	case nil:
		*d.t = time.Time{}
		return nil
	}
	return fmt.Errorf("repository: cannot scan %T into time", v)
}

func (d dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			*d.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("repository: unrecognised time %q", s)
}

// dbNullTime scans a nullable timestamp into a *time.Time.
type dbNullTime struct{ t **time.Time }

func (d dbNullTime) Scan(v any) error {
	if v == nil {
		*d.t = nil
		return nil
	}
	var t time.Time
	if err := (dbTime{&t}).Scan(v); err != nil {
		return err
	}
	*d.t = &t
	return nil
}
