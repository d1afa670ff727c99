package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"workhours/internal/core"
)

const (
	settingHourlyRate  = "hourly_rate"
	settingTargetHours = "target_hours"
)

// Canonical worklog columns, A through I.
var worklogHeaders = []string{"Date", "Hours", "Minutes", "Seconds", "Extra Minutes", "Description", "Start", "End", "Detailed Work"}

// worklog is a parsed sheet. rowNumbers holds the 1-based sheet row of each
// record.
type worklog struct {
	records    []core.RawRecord
	rowNumbers []int
	index      map[core.DateKey]int

	hasHeader bool
	// 0-based header positions; extraCol is -1 when the column is missing
	dateCol, extraCol int
}

// parseWorklog converts a values matrix (as returned by the Sheets API) into
// records. The first row must be a header containing at least "Date";
// other columns are located by name so they may appear in any order. Rows
// with an unparsable date are skipped.
func parseWorklog(values [][]any) (worklog, error) {
	wl := worklog{index: map[core.DateKey]int{}, extraCol: -1}
	if len(values) == 0 {
		return wl, nil
	}
	headers := toStrings(values[0])
	col := func(name string) int { return indexOf(headers, name) }
	colDate := col("Date")
	if colDate == -1 {
		return worklog{}, fmt.Errorf("unexpected worklog header: missing Date; got headers=%v", headers)
	}
	colHours, colMinutes, colSeconds := col("Hours"), col("Minutes"), col("Seconds")
	colExtra, colDesc := col("Extra Minutes"), col("Description")
	colStart, colEnd, colDetail := col("Start"), col("End"), col("Detailed Work")
	wl.hasHeader, wl.dateCol, wl.extraCol = true, colDate, colExtra

	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		date, err := core.ParseDateKey(safeGet(row, colDate))
		if err != nil {
			continue
		}
		rec := core.RawRecord{
			Date:         date.String(),
			Hours:        core.FlexInt(parseNumber(safeGet(row, colHours))),
			Minutes:      core.FlexInt(parseNumber(safeGet(row, colMinutes))),
			Seconds:      core.FlexInt(parseNumber(safeGet(row, colSeconds))),
			ExtraMinutes: core.FlexInt(parseNumber(safeGet(row, colExtra))),
			Description:  strings.TrimSpace(safeGet(row, colDesc)),
			StartTime:    strings.TrimSpace(safeGet(row, colStart)),
			EndTime:      strings.TrimSpace(safeGet(row, colEnd)),
		}
		if detail := strings.TrimSpace(safeGet(row, colDetail)); detail != "" {
			// keep the cell as an encoded string; decoding is the normalizer's job
			b, _ := json.Marshal(detail)
			rec.DetailedWork = b
		}
		if prev, ok := wl.index[date]; ok {
			// a later row for the same date replaces the earlier one
			wl.records[prev] = rec
			wl.rowNumbers[prev] = i + 1
			continue
		}
		wl.index[date] = len(wl.records)
		wl.records = append(wl.records, rec)
		wl.rowNumbers = append(wl.rowNumbers, i+1)
	}
	return wl, nil
}

// sheetWrite is a single values request against the worklog sheet.
type sheetWrite struct {
	Range  string
	Values [][]any
	Append bool
}

// extraMinutesWrite builds the request that sets extra minutes for date.
// An existing row only has its Extra Minutes cell touched, so tracked time
// and descriptions already in the sheet survive. A missing day is appended
// with just the date and extra minutes; an empty sheet gets the canonical
// header first.
func extraMinutesWrite(wl worklog, sheet string, date core.DateKey, minutes int) (sheetWrite, error) {
	if i, ok := wl.index[date]; ok {
		if wl.extraCol < 0 {
			return sheetWrite{}, errors.New("worklog sheet has no Extra Minutes column")
		}
		row := wl.rowNumbers[i]
		return sheetWrite{
			Range:  fmt.Sprintf("%s!%s%d", sheet, columnLetter(wl.extraCol), row),
			Values: [][]any{{minutes}},
		}, nil
	}

	if !wl.hasHeader {
		header := make([]any, len(worklogHeaders))
		for i, h := range worklogHeaders {
			header[i] = h
		}
		row := make([]any, len(worklogHeaders))
		for i := range row {
			row[i] = ""
		}
		row[0], row[4] = date.String(), minutes
		return sheetWrite{
			Range:  fmt.Sprintf("%s!A:%s", sheet, columnLetter(len(worklogHeaders)-1)),
			Values: [][]any{header, row},
			Append: true,
		}, nil
	}
	if wl.extraCol < 0 {
		return sheetWrite{}, errors.New("worklog sheet has no Extra Minutes column")
	}
	row := make([]any, max(wl.dateCol, wl.extraCol)+1)
	for i := range row {
		row[i] = ""
	}
	row[wl.dateCol], row[wl.extraCol] = date.String(), minutes
	return sheetWrite{
		Range:  fmt.Sprintf("%s!A:%s", sheet, columnLetter(len(row)-1)),
		Values: [][]any{row},
		Append: true,
	}, nil
}

// columnLetter converts a 0-based column index to A1 notation (0 -> A, 26 -> AA).
func columnLetter(i int) string {
	var b []byte
	for i >= 0 {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
	}
	return string(b)
}

// parseSettings reads key/value rows; keys are lowercased with spaces
// turned into underscores.
func parseSettings(values [][]any) map[string]string {
	out := map[string]string{}
	for _, r := range values {
		row := toStrings(r)
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(safeGet(row, 0)), " ", "_"))
		val := strings.TrimSpace(safeGet(row, 1))
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

func parseNumber(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case nil:
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func indexOf(headers []string, target string) int {
	norm := func(s string) string { return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) }
	for i, h := range headers {
		if norm(h) == norm(target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
