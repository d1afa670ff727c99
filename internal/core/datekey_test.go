package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDateKey(t *testing.T) {
	cases := []struct {
		in   string
		want DateKey
		ok   bool
	}{
		{"2024-01-03", DateKey{2024, time.January, 3}, true},
		{"03-01-2024", DateKey{2024, time.January, 3}, true},
		{"2024-06-10T08:15:00Z", DateKey{2024, time.June, 10}, true},
		{" 2024-06-10 ", DateKey{2024, time.June, 10}, true},
		{"2024-02-30", DateKey{}, false},
		{"31-04-2024", DateKey{}, false},
		{"2024/01/03", DateKey{}, false},
		{"", DateKey{}, false},
	}
	for _, tc := range cases {
		got, err := ParseDateKey(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseDateKey(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseDateKey(%q) = %v, want %v", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDateKey(%q) expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateKeyConventionsAgree(t *testing.T) {
	iso := MustParseDateKey("2024-12-31")
	dmy := MustParseDateKey("31-12-2024")
	if iso != dmy {
		t.Fatalf("expected same key, got %v and %v", iso, dmy)
	}
	if iso.String() != "2024-12-31" || iso.APIString() != "31-12-2024" {
		t.Fatalf("unexpected formatting: %s / %s", iso.String(), iso.APIString())
	}
}

func TestDateKeyArithmetic(t *testing.T) {
	d := MustParseDateKey("2024-02-28")
	if got := d.AddDays(1).String(); got != "2024-02-29" {
		t.Errorf("leap day: got %s", got)
	}
	if got := d.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("month roll: got %s", got)
	}
	if n := d.DaysUntil(MustParseDateKey("2024-03-07")); n != 8 {
		t.Errorf("DaysUntil = %d, want 8", n)
	}
	if !d.Before(d.AddDays(1)) || d.After(d) || d.Compare(d) != 0 {
		t.Errorf("comparison helpers inconsistent")
	}
}

func TestDateKeyJSON(t *testing.T) {
	b, err := json.Marshal(MustParseDateKey("2024-01-07"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-01-07"` {
		t.Fatalf("marshal = %s", b)
	}
	var k DateKey
	if err := json.Unmarshal([]byte(`"07-01-2024"`), &k); err != nil {
		t.Fatal(err)
	}
	if k.String() != "2024-01-07" {
		t.Fatalf("unmarshal = %s", k)
	}
}

func TestSortDateKeys(t *testing.T) {
	keys := []DateKey{MustParseDateKey("2024-03-01"), MustParseDateKey("2023-12-31"), MustParseDateKey("2024-01-15")}
	SortDateKeys(keys)
	want := []string{"2023-12-31", "2024-01-15", "2024-03-01"}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Fatalf("index %d: got %s want %s", i, k, want[i])
		}
	}
}

func TestRawRecordDecoding(t *testing.T) {
	var recs []RawRecord
	payload := `[
		{"date":"03-01-2024","hours":"4","minutes":30,"extraminutes":"15"},
		{"date":"2024-01-04","hours":null,"minutes":"","extraMinutes":5}
	]`
	if err := json.Unmarshal([]byte(payload), &recs); err != nil {
		t.Fatal(err)
	}
	if recs[0].TrackedMinutes() != 270 || recs[0].ExtraMinutes != 15 {
		t.Errorf("first record: %+v", recs[0])
	}
	if recs[1].TrackedMinutes() != 0 || recs[1].ExtraMinutes != 5 {
		t.Errorf("second record: %+v", recs[1])
	}
}
