// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// date keys and ranges from query strings, and JSON or form bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"workhours/internal/core"
)

// maxBodyBytes caps request bodies; every payload here is a few fields.
const maxBodyBytes = 64 << 10

// maxLiveDates bounds the dates list of a live lookup.
const maxLiveDates = 31

// ParseDateParam reads key from query. Both YYYY-MM-DD and DD-MM-YYYY are
// accepted. An empty value yields def.
func ParseDateParam(query url.Values, key string, def core.DateKey) (core.DateKey, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	d, err := core.ParseDateKey(v)
	if err != nil {
		return core.DateKey{}, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseRangeParams reads startDate and endDate. startDate is required; a
// missing endDate falls back to startDate unless requireEnd is set.
func ParseRangeParams(query url.Values, requireEnd bool) (core.DateRange, error) {
	start, err := ParseDateParam(query, "startDate", core.DateKey{})
	if err != nil {
		return core.DateRange{}, err
	}
	if start.IsZero() {
		return core.DateRange{}, fmt.Errorf("startDate is required: %w", core.ErrInvalidDate)
	}
	end, err := ParseDateParam(query, "endDate", core.DateKey{})
	if err != nil {
		return core.DateRange{}, err
	}
	if end.IsZero() {
		if requireEnd {
			return core.DateRange{}, fmt.Errorf("endDate is required: %w", core.ErrInvalidDate)
		}
		end = start
	}
	if end.Before(start) {
		return core.DateRange{}, fmt.Errorf("endDate before startDate: %w", core.ErrInvalidDate)
	}
	return core.DateRange{Start: start, End: end}, nil
}

// ParseDatesParam reads a comma-separated dates list in either convention.
// Unparsable entries are skipped; an empty list means today.
func ParseDatesParam(query url.Values, today core.DateKey) ([]core.DateKey, error) {
	raw := strings.TrimSpace(query.Get("dates"))
	if raw == "" {
		return []core.DateKey{today}, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxLiveDates {
		return nil, fmt.Errorf("too many dates (max %d)", maxLiveDates)
	}
	out := make([]core.DateKey, 0, len(parts))
	for _, p := range parts {
		d, err := core.ParseDateKey(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return []core.DateKey{today}, nil
	}
	return out, nil
}

// ParseIntValue parses a whole number, tolerating a zero fraction ("30.0")
// as sent by JSON clients.
func ParseIntValue(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("missing value")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number: %q", s)
	}
	return int(f), nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Int returns the first of keys that holds a whole number.
func (p *RequestBodyParser) Int(keys ...string) (int, error) {
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			return ParseIntValue(v)
		}
	}
	return 0, fmt.Errorf("missing %s", strings.Join(keys, " or "))
}

func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
