package indiaquant

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input    string
		expected Date
		err      bool
	}{
		{"2025-01-15", NewDate(2025, time.January, 15), false},
		{"2025-7-1", NewDate(2025, time.July, 1), false},
		{"invalid-date", Date{}, true},
		{"2025-13-40", Date{}, true},
		{"", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.err {
				t.Errorf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.err)
				return
			}
			if !tt.err && got != tt.expected {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDateNormalization(t *testing.T) {
	// day zero of next month is the last day of this month
	if got := NewDate(2024, time.March, 0); got != NewDate(2024, time.February, 29) {
		t.Errorf("NewDate(2024, 3, 0) = %v, want 2024-02-29", got)
	}
	if got := NewDate(2023, time.January, 32); got != NewDate(2023, time.February, 1) {
		t.Errorf("NewDate(2023, 1, 32) = %v, want 2023-02-01", got)
	}
}

func TestDateCompare(t *testing.T) {
	a, b := NewDate(2024, time.May, 10), NewDate(2024, time.May, 11)
	if !a.Before(b) || b.Before(a) || !b.After(a) {
		t.Errorf("ordering broken between %v and %v", a, b)
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Errorf("Compare inconsistent between %v and %v", a, b)
	}
	if a.Add(1) != b {
		t.Errorf("%v.Add(1) = %v, want %v", a, a.Add(1), b)
	}
}

func TestStartEndOf(t *testing.T) {
	wed := NewDate(2024, time.January, 10) // a Wednesday
	tests := []struct {
		period     Period
		start, end Date
	}{
		{Daily, wed, wed},
		{Weekly, NewDate(2024, time.January, 8), NewDate(2024, time.January, 14)},
		{Monthly, NewDate(2024, time.January, 1), NewDate(2024, time.January, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.period.String(), func(t *testing.T) {
			if got := wed.StartOf(tt.period); got != tt.start {
				t.Errorf("StartOf(%v) = %v, want %v", tt.period, got, tt.start)
			}
			if got := wed.EndOf(tt.period); got != tt.end {
				t.Errorf("EndOf(%v) = %v, want %v", tt.period, got, tt.end)
			}
		})
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, time.June, 3)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `"2024-06-03"` {
		t.Errorf("Marshal = %s, want \"2024-06-03\"", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back != d {
		t.Errorf("roundtrip = %v, want %v", back, d)
	}
	if err := json.Unmarshal([]byte(`"not-a-date"`), &back); err == nil {
		t.Error("Unmarshal accepted an invalid date")
	}
}
