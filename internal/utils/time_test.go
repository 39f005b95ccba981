package utils

import (
	"testing"
	"time"
)

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "empty string returns local", timezone: "", wantErr: false},
		{name: "Local returns local", timezone: "Local", wantErr: false},
		{name: "valid timezone UTC", timezone: "UTC", wantErr: false},
		{name: "valid timezone America/New_York", timezone: "America/New_York", wantErr: false},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LoadLocation(tt.timezone)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && loc == nil {
				t.Errorf("LoadLocation() returned nil location without error")
			}
		})
	}
}

func TestParseDateInLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	got, err := ParseDateInLocation("2026-02-14", loc)
	if err != nil {
		t.Fatalf("ParseDateInLocation() unexpected error: %v", err)
	}
	if got.Hour() != 0 || got.Minute() != 0 {
		t.Errorf("expected midnight, got %v", got)
	}
	if got.Location() != loc {
		t.Errorf("expected location %v, got %v", loc, got.Location())
	}

	if _, err := ParseDateInLocation("14/02/2026", loc); err == nil {
		t.Error("expected error for invalid date format")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantDay string
		wantErr bool
	}{
		{name: "rfc3339", value: "2026-01-02T08:30:00Z", wantDay: "2026-01-02"},
		{name: "date and time", value: "2026-01-03 21:15", wantDay: "2026-01-03"},
		{name: "bare date", value: "2026-01-04", wantDay: "2026-01-04"},
		{name: "garbage", value: "yesterday-ish", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.value, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && DayKey(got) != tt.wantDay {
				t.Errorf("ParseTimestamp() day = %s, want %s", DayKey(got), tt.wantDay)
			}
		})
	}
}

func TestValidateTimezone(t *testing.T) {
	if !ValidateTimezone("") {
		t.Error("empty timezone should be valid")
	}
	if !ValidateTimezone("UTC") {
		t.Error("UTC should be valid")
	}
	if ValidateTimezone("Mars/Olympus_Mons") {
		t.Error("unknown timezone should be invalid")
	}
}
