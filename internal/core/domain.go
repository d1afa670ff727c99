package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type (
	// WorkSession is a display-only sub-session inside a day.
	WorkSession struct {
		StartTime string `json:"startTime"`
		EndTime   string `json:"endTime"`
		Duration  string `json:"duration"` // HH:MM:SS
	}

	// WorkEntry is one calendar date's work record within a period.
	WorkEntry struct {
		Date         DateKey       `json:"date"`
		StartTime    string        `json:"startTime,omitempty"`
		EndTime      string        `json:"endTime,omitempty"`
		Duration     int           `json:"duration"` // tracked minutes
		ExtraMinutes int           `json:"extraMinutes"`
		Description  string        `json:"description,omitempty"`
		DetailedWork []WorkSession `json:"detailedWork"`
	}

	// RawRecord is what a data source hands back before normalization.
	// Field names follow the legacy backend payload; encoding/json matches
	// keys case-insensitively so "extraMinutes" decodes too.
	RawRecord struct {
		Date         string          `json:"date"`
		Hours        FlexInt         `json:"hours"`
		Minutes      FlexInt         `json:"minutes"`
		Seconds      FlexInt         `json:"seconds"`
		ExtraMinutes FlexInt         `json:"extraminutes"`
		DetailedWork json.RawMessage `json:"detailedWork,omitempty"`
		Description  string          `json:"description,omitempty"`
		StartTime    string          `json:"startTime,omitempty"`
		EndTime      string          `json:"endTime,omitempty"`
	}

	// TodayWidget is the live snapshot of today's tracked time. Extra
	// minutes are not included.
	TodayWidget struct {
		Hours        int           `json:"hours"`
		Minutes      int           `json:"minutes"`
		TotalMinutes int           `json:"totalMinutes"`
		DetailedWork []WorkSession `json:"detailedWork,omitempty"`
	}

	Settings struct {
		HourlyRate  float64 `json:"hourlyRate"`
		TargetHours int     `json:"targetHours"`
	}

	CurrencyRate struct {
		Code string  `json:"currencyCode"`
		Rate float64 `json:"dollarRate"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidViewMode = errors.New("invalid view mode")
	ErrInvalidMinutes  = errors.New("invalid minutes")
	ErrInvalidHours    = errors.New("invalid hours")
)

const MaxExtraMinutes = 24 * 60

// HasData reports whether the entry carries tracked time or a description.
func (e WorkEntry) HasData() bool {
	return e.Duration > 0 || strings.TrimSpace(e.Description) != ""
}

// TotalMinutes is tracked duration plus extra minutes.
func (e WorkEntry) TotalMinutes() int {
	return e.Duration + e.ExtraMinutes
}

// TrackedMinutes returns hours*60+minutes, ignoring seconds and extra minutes.
func (r RawRecord) TrackedMinutes() int {
	m := int(r.Hours)*60 + int(r.Minutes)
	if m < 0 {
		return 0
	}
	return m
}

func ValidateExtraMinutes(minutes int) error {
	if minutes < 0 || minutes > MaxExtraMinutes {
		return ErrInvalidMinutes
	}
	return nil
}

func ValidateTargetHours(hours int) error {
	if hours <= 0 || hours > 7*24 {
		return ErrInvalidHours
	}
	return nil
}

// FlexInt decodes JSON numbers, numeric strings, null and empty strings.
// Anything unparsable decodes to zero.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}
