package d0010

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReadingType classifies how a register reading was obtained.
type ReadingType string

const (
	ReadingTypeActual     ReadingType = "actual"
	ReadingTypeCustomer   ReadingType = "customer"
	ReadingTypeDeemed     ReadingType = "deemed"
	ReadingTypeEstimated  ReadingType = "estimated"
	ReadingTypeFinal      ReadingType = "final"
	ReadingTypeInitial    ReadingType = "initial"
	ReadingTypeManual     ReadingType = "manual"
	ReadingTypeSubsequent ReadingType = "subsequent"
)

// readingTypeCodes maps the one-letter flag carried on a reading record to
// the stored reading type.
var readingTypeCodes = map[string]ReadingType{
	"A": ReadingTypeActual,
	"C": ReadingTypeCustomer,
	"D": ReadingTypeDeemed,
	"E": ReadingTypeEstimated,
	"F": ReadingTypeFinal,
	"I": ReadingTypeInitial,
	"M": ReadingTypeManual,
	"S": ReadingTypeSubsequent,
}

// ReadingTypeFromCode maps a type flag to its ReadingType. Absent or
// unrecognized codes default to ReadingTypeActual without a diagnostic.
func ReadingTypeFromCode(code string) ReadingType {
	if t, ok := readingTypeCodes[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return t
	}
	return ReadingTypeActual
}

// Severity distinguishes structural faults from validation rejections.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic describes one problem found while scanning a flow file.
type Diagnostic struct {
	Severity Severity
	Line     int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("Line %d: %s", d.Line, d.Message)
}

// Reading is one register reading extracted from a flow file, bound to the
// meter point and meter serial active at the line it appeared on.
type Reading struct {
	MPAN        string
	MeterSerial string
	ReadingDate time.Time
	ReadingTime *time.Time
	RegisterID  string
	Value       decimal.Decimal
	Type        ReadingType
}

// ParseResult holds everything extracted from one flow file: the readings
// in file order, the content digest, and the diagnostics split by severity.
type ParseResult struct {
	Readings []Reading
	FileHash string
	Errors   []Diagnostic
	Warnings []Diagnostic
}

func (r *ParseResult) errorf(line int, format string, args ...any) {
	r.Errors = append(r.Errors, Diagnostic{
		Severity: SeverityError,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (r *ParseResult) warnf(line int, format string, args ...any) {
	r.Warnings = append(r.Warnings, Diagnostic{
		Severity: SeverityWarning,
		Line:     line,
		Message:  fmt.Sprintf(format, args...),
	})
}
