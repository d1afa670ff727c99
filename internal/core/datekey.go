package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// ISOLayout is the canonical date format used inside the pipeline.
	ISOLayout = "2006-01-02"
	// APILayout is the day-month-year format spoken by the legacy backend.
	APILayout = "02-01-2006"
)

// DateKey identifies a calendar date independently of time zone and of the
// string convention it was read from. It is comparable and can be used as a
// map key.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDateKey builds a DateKey, normalizing out-of-range values the way
// time.Date does (e.g. Jan 32 becomes Feb 1).
func NewDateKey(year int, month time.Month, day int) DateKey {
	return DateKeyOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateKeyOf returns the calendar date of t in t's own location.
func DateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// ParseDateKey accepts "yyyy-mm-dd" (optionally followed by a time part
// starting with 'T' or a space) and "dd-mm-yyyy".
func ParseDateKey(s string) (DateKey, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "T "); i == 10 {
		s = s[:i]
	}
	if len(s) != 10 {
		return DateKey{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	layout := ISOLayout
	if s[2] == '-' && s[5] == '-' {
		layout = APILayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return DateKey{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateKeyOf(t), nil
}

// MustParseDateKey is ParseDateKey for literals known to be valid.
func MustParseDateKey(s string) DateKey {
	k, err := ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k DateKey) IsZero() bool { return k == DateKey{} }

// Time returns midnight UTC of the date.
func (k DateKey) Time() time.Time {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

func (k DateKey) String() string {
	if k.IsZero() {
		return ""
	}
	return k.Time().Format(ISOLayout)
}

// APIString formats the date as dd-mm-yyyy.
func (k DateKey) APIString() string {
	if k.IsZero() {
		return ""
	}
	return k.Time().Format(APILayout)
}

func (k DateKey) AddDays(n int) DateKey {
	return DateKeyOf(k.Time().AddDate(0, 0, n))
}

func (k DateKey) Weekday() time.Weekday {
	return k.Time().Weekday()
}

// Compare returns -1, 0 or +1.
func (k DateKey) Compare(o DateKey) int {
	switch {
	case k.Year != o.Year:
		return cmpInt(k.Year, o.Year)
	case k.Month != o.Month:
		return cmpInt(int(k.Month), int(o.Month))
	default:
		return cmpInt(k.Day, o.Day)
	}
}

func (k DateKey) Before(o DateKey) bool { return k.Compare(o) < 0 }
func (k DateKey) After(o DateKey) bool  { return k.Compare(o) > 0 }

// DaysUntil returns the number of days from k to o (negative if o is earlier).
func (k DateKey) DaysUntil(o DateKey) int {
	return int(o.Time().Sub(k.Time()).Hours() / 24)
}

func (k DateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *DateKey) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*k = DateKey{}
		return nil
	}
	parsed, err := ParseDateKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func SortDateKeys(keys []DateKey) {
	slices.SortFunc(keys, DateKey.Compare)
}
