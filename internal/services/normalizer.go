package services

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"workhours/internal/core"
)

// Normalize maps raw records onto every date of r, in ascending order.
// Dates without a record get a zero placeholder; records outside r or with
// unparsable dates are dropped. When several records share a date the last
// one wins.
func Normalize(raw []core.RawRecord, r core.DateRange) []core.WorkEntry {
	byDate := make(map[core.DateKey]core.RawRecord, len(raw))
	for _, rec := range raw {
		k, err := core.ParseDateKey(rec.Date)
		if err != nil {
			slog.Debug("Skipping record with invalid date", "date", rec.Date)
			continue
		}
		byDate[k] = rec
	}

	dates := core.EnumerateDates(r)
	out := make([]core.WorkEntry, 0, len(dates))
	for _, d := range dates {
		rec, ok := byDate[d]
		if !ok {
			out = append(out, placeholder(d))
			continue
		}
		out = append(out, ToEntry(d, rec))
	}
	return out
}

// ToEntry converts a single raw record. Extra minutes stay separate from the
// tracked duration.
func ToEntry(date core.DateKey, rec core.RawRecord) core.WorkEntry {
	return core.WorkEntry{
		Date:         date,
		StartTime:    rec.StartTime,
		EndTime:      rec.EndTime,
		Duration:     rec.TrackedMinutes(),
		ExtraMinutes: max(int(rec.ExtraMinutes), 0),
		Description:  rec.Description,
		DetailedWork: DecodeDetailedWork(rec.DetailedWork),
	}
}

func placeholder(d core.DateKey) core.WorkEntry {
	return core.WorkEntry{Date: d, DetailedWork: []core.WorkSession{}}
}

// DecodeDetailedWork accepts a JSON array of sessions or a JSON string that
// itself holds such an array. Anything malformed yields an empty slice.
func DecodeDetailedWork(raw json.RawMessage) []core.WorkSession {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []core.WorkSession{}
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			slog.Debug("Discarding undecodable detailed work", "error", err)
			return []core.WorkSession{}
		}
		raw = []byte(inner)
		if len(bytes.TrimSpace(raw)) == 0 {
			return []core.WorkSession{}
		}
	}
	var sessions []core.WorkSession
	if err := json.Unmarshal(raw, &sessions); err != nil {
		slog.Debug("Discarding undecodable detailed work", "error", err)
		return []core.WorkSession{}
	}
	if sessions == nil {
		return []core.WorkSession{}
	}
	return sessions
}
