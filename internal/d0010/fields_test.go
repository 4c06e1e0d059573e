package d0010

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMPAN(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      string
		wantFault string
	}{
		{name: "valid", raw: "1234567890123", want: "1234567890123"},
		{name: "surrounding whitespace", raw: "  1234567890123  ", want: "1234567890123"},
		{name: "internal spaces stripped", raw: "12 3456 7890 123", want: "1234567890123"},
		{name: "too short", raw: "123", wantFault: "Invalid MPAN format '123' (expected 13 digits)"},
		{name: "too long", raw: "12345678901234", wantFault: "Invalid MPAN format '12345678901234' (expected 13 digits)"},
		{name: "non-digit", raw: "123456789012X", wantFault: "Invalid MPAN format '123456789012X' (expected 13 digits)"},
		{name: "empty", raw: "", wantFault: "Empty MPAN"},
		{name: "spaces only", raw: "   ", wantFault: "Empty MPAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fault := parseMPAN(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFault, fault)
		})
	}
}

func TestParseSerial(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      string
		wantFault string
	}{
		{name: "valid", raw: "ABC123", want: "ABC123"},
		{name: "trimmed", raw: "  ABC123  ", want: "ABC123"},
		{name: "max length", raw: strings.Repeat("A", 50), want: strings.Repeat("A", 50)},
		{name: "too long", raw: strings.Repeat("A", 51), wantFault: "Meter serial too long (max 50 chars)"},
		{name: "empty", raw: "", wantFault: "Empty meter serial number"},
		{name: "spaces only", raw: "   ", wantFault: "Empty meter serial number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fault := parseSerial(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFault, fault)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantDate  time.Time
		wantClock *time.Time
		wantFault string
	}{
		{
			name:      "full stamp",
			raw:       "20240115143000",
			wantDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantClock: timePtr(time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)),
		},
		{
			name:     "date only",
			raw:      "20240115",
			wantDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "full stamp with seconds",
			raw:       "20240115143217",
			wantDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantClock: timePtr(time.Date(2024, 1, 15, 14, 32, 17, 0, time.UTC)),
		},
		{name: "empty", raw: "", wantFault: "Empty reading timestamp"},
		{name: "spaces only", raw: "  ", wantFault: "Empty reading timestamp"},
		{name: "wrong length", raw: "202401151430", wantFault: "Invalid datetime format '202401151430' (expected YYYYMMDDHHMMSS or YYYYMMDD)"},
		{name: "slashed date", raw: "15/01/2024", wantFault: "Invalid datetime format '15/01/2024' (expected YYYYMMDDHHMMSS or YYYYMMDD)"},
		{name: "impossible month", raw: "20241315143000", wantFault: "Invalid datetime format '20241315143000' (expected YYYYMMDDHHMMSS or YYYYMMDD)"},
		{name: "impossible day", raw: "20240230", wantFault: "Invalid datetime format '20240230' (expected YYYYMMDDHHMMSS or YYYYMMDD)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, clock, fault := parseTimestamp(tt.raw)
			assert.Equal(t, tt.wantFault, fault)
			if tt.wantFault != "" {
				return
			}
			assert.True(t, date.Equal(tt.wantDate), "date = %s", date)
			if tt.wantClock == nil {
				assert.Nil(t, clock)
			} else {
				require.NotNil(t, clock)
				assert.True(t, clock.Equal(*tt.wantClock), "clock = %s", clock)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		want      string
		wantFault string
	}{
		{name: "decimal", raw: "12345.67", want: "12345.67"},
		{name: "integer", raw: "42", want: "42"},
		{name: "zero", raw: "0", want: "0"},
		{name: "trimmed", raw: " 12345.67 ", want: "12345.67"},
		{name: "negative", raw: "-12345.67", wantFault: "Negative reading value -12345.67"},
		{name: "unparsable", raw: "12a45.67", wantFault: "Invalid decimal value '12a45.67'"},
		{name: "empty", raw: "", wantFault: "Empty reading value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fault := parseAmount(tt.raw)
			assert.Equal(t, tt.wantFault, fault)
			if tt.wantFault == "" {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestReadingTypeFromCode(t *testing.T) {
	tests := []struct {
		code string
		want ReadingType
	}{
		{code: "A", want: ReadingTypeActual},
		{code: "C", want: ReadingTypeCustomer},
		{code: "D", want: ReadingTypeDeemed},
		{code: "E", want: ReadingTypeEstimated},
		{code: "F", want: ReadingTypeFinal},
		{code: "I", want: ReadingTypeInitial},
		{code: "M", want: ReadingTypeManual},
		{code: "S", want: ReadingTypeSubsequent},
		{code: "a", want: ReadingTypeActual},
		{code: " e ", want: ReadingTypeEstimated},
		{code: "X", want: ReadingTypeActual},
		{code: "", want: ReadingTypeActual},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ReadingTypeFromCode(tt.code), "code %q", tt.code)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
