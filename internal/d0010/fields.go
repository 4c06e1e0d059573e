package d0010

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	defaultRegisterID = "01"
	mpanLength        = 13
	maxSerialLength   = 50

	dateTimeLayout = "20060102150405"
	dateLayout     = "20060102"
)

// Field validators return the parsed value plus a fault message. An empty
// fault means the value is valid; a non-empty fault is surfaced to the
// operator verbatim, prefixed with the line number by the caller.

// parseMPAN normalizes a meter point administration number. Spaces inside
// the field are dropped before the 13-digit check.
func parseMPAN(raw string) (string, string) {
	mpan := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if mpan == "" {
		return "", "Empty MPAN"
	}
	if len(mpan) != mpanLength || !allDigits(mpan) {
		return "", fmt.Sprintf("Invalid MPAN format '%s' (expected 13 digits)", mpan)
	}
	return mpan, ""
}

// parseSerial validates a meter serial number.
func parseSerial(raw string) (string, string) {
	serial := strings.TrimSpace(raw)
	if serial == "" {
		return "", "Empty meter serial number"
	}
	if utf8.RuneCountInString(serial) > maxSerialLength {
		return "", fmt.Sprintf("Meter serial too long (max %d chars)", maxSerialLength)
	}
	return serial, ""
}

// parseTimestamp accepts a 14-character YYYYMMDDHHMMSS stamp or an
// 8-character YYYYMMDD date. The returned date is the calendar day at
// midnight UTC; clock is nil when the stamp carried no time part.
func parseTimestamp(raw string) (date time.Time, clock *time.Time, fault string) {
	stamp := strings.TrimSpace(raw)
	if stamp == "" {
		return time.Time{}, nil, "Empty reading timestamp"
	}

	switch len(stamp) {
	case len(dateTimeLayout):
		if ts, err := time.Parse(dateTimeLayout, stamp); err == nil {
			return midnight(ts), &ts, ""
		}
	case len(dateLayout):
		if ts, err := time.Parse(dateLayout, stamp); err == nil {
			return midnight(ts), nil, ""
		}
	}
	return time.Time{}, nil, fmt.Sprintf("Invalid datetime format '%s' (expected YYYYMMDDHHMMSS or YYYYMMDD)", stamp)
}

// parseAmount parses a non-negative decimal reading value.
func parseAmount(raw string) (decimal.Decimal, string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Decimal{}, "Empty reading value"
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Sprintf("Invalid decimal value '%s'", value)
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, fmt.Sprintf("Negative reading value %s", amount)
	}
	return amount, ""
}

func midnight(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
