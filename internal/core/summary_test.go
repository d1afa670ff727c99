package core

import "testing"

func TestAggregate(t *testing.T) {
	cases := []struct {
		name    string
		entries []WorkEntry
		hours   int
		minutes int
	}{
		{"empty", nil, 0, 0},
		{"duration only", []WorkEntry{{Duration: 270}}, 4, 30},
		{"extra minutes folded in", []WorkEntry{{Duration: 50}, {Duration: 0, ExtraMinutes: 15}}, 1, 5},
		{"exact hours", []WorkEntry{{Duration: 120}, {Duration: 60}}, 3, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Aggregate(tc.entries)
			if got.TotalHours != tc.hours || got.TotalMinutes != tc.minutes {
				t.Fatalf("got %dh %dm, want %dh %dm", got.TotalHours, got.TotalMinutes, tc.hours, tc.minutes)
			}
			sum := 0
			for _, e := range tc.entries {
				sum += e.Duration + e.ExtraMinutes
			}
			if got.RawMinutes() != sum || got.TotalMinutes < 0 || got.TotalMinutes >= 60 {
				t.Fatalf("invariant broken: %+v vs sum %d", got, sum)
			}
		})
	}
}

func TestDailyTotals(t *testing.T) {
	entries := []WorkEntry{
		{Date: MustParseDateKey("2024-01-03"), Duration: 30},
		{Date: MustParseDateKey("2024-01-01"), Duration: 60, ExtraMinutes: 10},
		{Date: MustParseDateKey("2024-01-03"), Duration: 15},
	}
	got := DailyTotals(entries)
	if len(got) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got))
	}
	if got[0].Date.String() != "2024-01-01" || got[0].Minutes != 70 {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Date.String() != "2024-01-03" || got[1].Minutes != 45 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestWorkEntryHasData(t *testing.T) {
	if (WorkEntry{}).HasData() {
		t.Error("zero entry should have no data")
	}
	if (WorkEntry{ExtraMinutes: 30}).HasData() {
		t.Error("extra minutes alone do not count as tracked data")
	}
	if !(WorkEntry{Description: "standup"}).HasData() {
		t.Error("description counts as data")
	}
	if !(WorkEntry{Duration: 1}).HasData() {
		t.Error("duration counts as data")
	}
}
