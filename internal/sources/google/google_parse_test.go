package google

import (
	"encoding/json"
	"testing"

	"workhours/internal/core"
)

func TestParseWorklog(t *testing.T) {
	values := [][]any{
		{"Date", "Hours", "Minutes", "Seconds", "Extra Minutes", "Description", "Start", "End", "Detailed Work"},
		{"2024-01-03", 4.0, 30.0, 12.0, 15.0, "API work", "09:05", "17:40", `[{"startTime":"09:05:00","endTime":"10:00:00","duration":"00:55:00"}]`},
		{"05-01-2024", "2", "", nil, "0", "", "", ""},
		{"", 1.0},
		{"not a date", 8.0},
	}
	wl, err := parseWorklog(values)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(wl.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(wl.records))
	}

	first := wl.records[0]
	if first.Date != "2024-01-03" || first.TrackedMinutes() != 270 || first.ExtraMinutes != 15 || first.Seconds != 12 {
		t.Errorf("unexpected first record: %+v", first)
	}
	var detail string
	if err := json.Unmarshal(first.DetailedWork, &detail); err != nil {
		t.Fatalf("detailed work should be an encoded string: %v", err)
	}
	if detail == "" {
		t.Error("detailed work lost")
	}

	second := wl.records[1]
	if second.Date != "2024-01-05" || second.TrackedMinutes() != 120 || second.DetailedWork != nil {
		t.Errorf("unexpected second record: %+v", second)
	}
	if wl.rowNumbers[1] != 3 {
		t.Errorf("row number = %d, want 3", wl.rowNumbers[1])
	}
	if i, ok := wl.index[core.MustParseDateKey("2024-01-05")]; !ok || i != 1 {
		t.Errorf("index lookup failed: %d %v", i, ok)
	}
}

func TestParseWorklogColumnOrderAndDuplicates(t *testing.T) {
	values := [][]any{
		{"minutes", "DATE", "hours", "extraminutes"},
		{10.0, "2024-02-01", 1.0, 5.0},
		{20.0, "2024-02-01", 2.0, 0.0},
	}
	wl, err := parseWorklog(values)
	if err != nil {
		t.Fatal(err)
	}
	if len(wl.records) != 1 {
		t.Fatalf("duplicates should collapse, got %d", len(wl.records))
	}
	if wl.records[0].TrackedMinutes() != 140 || wl.rowNumbers[0] != 3 {
		t.Errorf("later row should win: %+v row %d", wl.records[0], wl.rowNumbers[0])
	}
}

func TestParseWorklogRequiresDateHeader(t *testing.T) {
	if _, err := parseWorklog([][]any{{"Hours", "Minutes"}}); err == nil {
		t.Fatal("expected error for missing Date header")
	}
	wl, err := parseWorklog(nil)
	if err != nil || len(wl.records) != 0 {
		t.Fatalf("empty sheet: %v %+v", err, wl)
	}
}

func canonicalHeader() []any {
	header := make([]any, len(worklogHeaders))
	for i, h := range worklogHeaders {
		header[i] = h
	}
	return header
}

func TestExtraMinutesWriteTouchesOnlyExtraCell(t *testing.T) {
	wl, err := parseWorklog([][]any{
		canonicalHeader(),
		{"2024-06-09", "6", "0", "0", "0", "", "", "", ""},
		{"10-06-2024", "7", "45", "0", "5", "tracked", "09:00", "17:30", `[{"startTime":"09:00"}]`},
	})
	if err != nil {
		t.Fatal(err)
	}

	w, err := extraMinutesWrite(wl, "Worklog", core.MustParseDateKey("2024-06-10"), 30)
	if err != nil {
		t.Fatal(err)
	}
	if w.Append {
		t.Fatal("existing day must be updated in place")
	}
	if w.Range != "Worklog!E3" {
		t.Errorf("range = %q, want Worklog!E3", w.Range)
	}
	if len(w.Values) != 1 || len(w.Values[0]) != 1 || w.Values[0][0] != 30 {
		t.Errorf("values = %v, want a single cell with 30", w.Values)
	}
}

func TestExtraMinutesWriteFollowsHeaderOrder(t *testing.T) {
	wl, err := parseWorklog([][]any{
		{"Description", "Date", "Hours", "Minutes", "Extra Minutes"},
		{"old", "2024-06-10", "7", "45", "0"},
	})
	if err != nil {
		t.Fatal(err)
	}

	w, err := extraMinutesWrite(wl, "Worklog", core.MustParseDateKey("2024-06-10"), 15)
	if err != nil {
		t.Fatal(err)
	}
	if w.Range != "Worklog!E2" {
		t.Errorf("range = %q, want Worklog!E2", w.Range)
	}

	w, err = extraMinutesWrite(wl, "Worklog", core.MustParseDateKey("2024-06-11"), 20)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Append || w.Range != "Worklog!A:E" {
		t.Fatalf("new day should append to A:E, got %+v", w)
	}
	row := w.Values[0]
	if row[1] != "2024-06-11" || row[4] != 20 || row[0] != "" || row[2] != "" {
		t.Errorf("appended row = %v", row)
	}
}

func TestExtraMinutesWriteEmptySheet(t *testing.T) {
	wl, err := parseWorklog(nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := extraMinutesWrite(wl, "Worklog", core.MustParseDateKey("2024-06-10"), 30)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Append || len(w.Values) != 2 {
		t.Fatalf("empty sheet should get header and row, got %+v", w)
	}
	if w.Values[0][0] != "Date" || w.Values[1][0] != "2024-06-10" || w.Values[1][4] != 30 {
		t.Errorf("unexpected rows: %v", w.Values)
	}

	// round trip through the parser
	back, err := parseWorklog(w.Values)
	if err != nil {
		t.Fatal(err)
	}
	if got := back.records[0]; got.ExtraMinutes != 30 || got.TrackedMinutes() != 0 {
		t.Errorf("parsed row = %+v", got)
	}
}

func TestExtraMinutesWriteMissingColumn(t *testing.T) {
	wl, err := parseWorklog([][]any{{"Date", "Hours"}, {"2024-06-10", "7"}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := extraMinutesWrite(wl, "Worklog", core.MustParseDateKey("2024-06-10"), 30); err == nil {
		t.Error("expected an error without an Extra Minutes column")
	}
}

func TestColumnLetter(t *testing.T) {
	tests := map[int]string{0: "A", 4: "E", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"}
	for in, want := range tests {
		if got := columnLetter(in); got != want {
			t.Errorf("columnLetter(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseSettings(t *testing.T) {
	s := parseSettings([][]any{
		{"Hourly Rate", 55.5},
		{"target_hours", "36"},
		{"", "ignored"},
		{"empty"},
	})
	if s[settingHourlyRate] != "55.5" || s[settingTargetHours] != "36" {
		t.Fatalf("unexpected settings: %v", s)
	}
	if _, ok := s["empty"]; ok {
		t.Error("keys without values are skipped")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := newClient(nil, Config{SpreadsheetID: "sheet"})
	if c.worklogSheet != DefaultWorklogSheet || c.settingsSheet != DefaultSettingsSheet {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if _, err := c.FetchRange(t.Context(), core.MustParseDateKey("2024-01-01"), core.MustParseDateKey("2024-01-07")); err == nil {
		t.Fatal("expected error without a sheets service")
	}
}
