package calendar

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Date
	}{
		{"2024-01-08", New(2024, time.January, 8)},
		{" 2024-02-29 ", New(2024, time.February, 29)},
		{"2024-01-08T23:30:00Z", New(2024, time.January, 8)},
		{"2024-01-08T23:30:00-05:00", New(2024, time.January, 8)},
		{"2024-01-09T01:00:00+09:00", New(2024, time.January, 9)},
		{"2024-01-08T07:15:00", New(2024, time.January, 8)},
	}

	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "tomorrow", "2024-13-01", "2024-02-30", "01/08/2024"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) should return error", input)
		}
	}
}

func TestArithmetic(t *testing.T) {
	d := New(2024, time.February, 28)

	if got := d.AddDays(2); got != New(2024, time.March, 1) {
		t.Errorf("AddDays(2) = %s, want 2024-03-01", got)
	}
	if got := New(2024, time.March, 1).DaysSince(d); got != 2 {
		t.Errorf("DaysSince = %d, want 2", got)
	}
	if got := d.DaysSince(New(2024, time.March, 1)); got != -2 {
		t.Errorf("DaysSince = %d, want -2", got)
	}
	if got := New(2025, time.January, 1).MonthIndex() - New(2024, time.November, 30).MonthIndex(); got != 2 {
		t.Errorf("month distance = %d, want 2", got)
	}
}

func TestDaysSinceLongSpan(t *testing.T) {
	tests := []struct {
		from, to Date
		want     int
	}{
		{New(1700, time.January, 1), New(2024, time.January, 1), 118338},
		{New(2024, time.January, 1), New(1700, time.January, 1), -118338},
		{New(1, time.January, 1), New(9999, time.December, 31), 3652058},
		{New(1969, time.December, 31), New(1970, time.January, 1), 1},
	}

	for _, tt := range tests {
		if got := tt.to.DaysSince(tt.from); got != tt.want {
			t.Errorf("%s.DaysSince(%s) = %d, want %d", tt.to, tt.from, got, tt.want)
		}
	}
}

func TestStartOfWeek(t *testing.T) {
	tests := []struct {
		day  Date
		want Date
	}{
		{New(2024, time.January, 1), New(2024, time.January, 1)}, // Monday
		{New(2024, time.January, 3), New(2024, time.January, 1)},
		{New(2024, time.January, 7), New(2024, time.January, 1)}, // Sunday
		{New(2024, time.January, 8), New(2024, time.January, 8)},
	}

	for _, tt := range tests {
		if got := tt.day.StartOfWeek(); got != tt.want {
			t.Errorf("StartOfWeek(%s) = %s, want %s", tt.day, got, tt.want)
		}
	}
}

func TestJSON(t *testing.T) {
	type payload struct {
		Day   Date `json:"day"`
		Empty Date `json:"empty"`
	}

	b, err := json.Marshal(payload{Day: New(2024, time.July, 4)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"day":"2024-07-04","empty":null}` {
		t.Errorf("marshal = %s", b)
	}

	var p payload
	if err := json.Unmarshal([]byte(`{"day":"2024-07-04T10:00:00Z","empty":""}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Day != New(2024, time.July, 4) {
		t.Errorf("Day = %s, want 2024-07-04", p.Day)
	}
	if !p.Empty.IsZero() {
		t.Errorf("Empty = %s, want zero", p.Empty)
	}

	if err := json.Unmarshal([]byte(`{"day":"not-a-date"}`), &p); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestScanValue(t *testing.T) {
	var d Date
	if err := d.Scan("2024-05-06"); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	if d != New(2024, time.May, 6) {
		t.Errorf("scan string = %s", d)
	}

	if err := d.Scan(nil); err != nil || !d.IsZero() {
		t.Errorf("scan nil = %s, %v", d, err)
	}

	if err := d.Scan(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)); err != nil || d != New(2024, time.May, 6) {
		t.Errorf("scan time = %s, %v", d, err)
	}

	v, err := New(2024, time.May, 6).Value()
	if err != nil || v != "2024-05-06" {
		t.Errorf("Value = %v, %v", v, err)
	}
	v, err = Date{}.Value()
	if err != nil || v != nil {
		t.Errorf("zero Value = %v, %v", v, err)
	}
}
