// Package d0010 parses D0010 meter reading flow files.
//
// A flow file is a stream of pipe-delimited records: a ZHV header naming
// the flow type, 026 records carrying a meter point, 028 records carrying
// a meter serial, 030 records carrying register readings, and a ZPT footer.
// A reading binds to the most recent meter point and serial seen above it.
// Malformed rows never abort the scan; they are reported as diagnostics on
// the result.
package d0010

import (
	"fmt"
	"os"
	"strings"
)

// Record type codes recognized in a flow file. Anything else is skipped.
const (
	recordHeader     = "ZHV"
	recordMeterPoint = "026"
	recordMeter      = "028"
	recordReading    = "030"
	recordFooter     = "ZPT"
)

const (
	fieldDelimiter   = "|"
	formatIdentifier = "D0010"

	minHeaderFields  = 3
	minContextFields = 2
	minReadingFields = 4
	readingTypeIndex = 7
)

// Parser extracts meter readings from D0010 flow files. A Parser holds no
// scan state and is safe for concurrent use.
type Parser struct {
	encodings []Encoding
}

// NewParser returns a parser that tries the given encodings in order when
// decoding file content. With no arguments the default candidates are used.
func NewParser(encodings ...Encoding) *Parser {
	if len(encodings) == 0 {
		encodings = DefaultEncodings()
	}
	return &Parser{encodings: encodings}
}

// ParseFile reads and parses the flow file at path. The returned error
// reports I/O failures only; malformed content is reported through the
// result diagnostics.
func (p *Parser) ParseFile(path string) (ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("d0010: read %s: %w", path, err)
	}
	return p.Parse(data), nil
}

// Parse parses raw flow file content. The digest is computed over the raw
// bytes before any decoding, so it is stable across encoding choices. When
// no candidate encoding can decode the content the result carries the
// digest and nothing else.
func (p *Parser) Parse(data []byte) ParseResult {
	fileHash := digest(data)
	content := stripBOM(data)

	for _, enc := range p.encodings {
		text, err := decode(content, enc)
		if err != nil {
			continue
		}
		result := scan(text)
		result.FileHash = fileHash
		return result
	}

	return ParseResult{FileHash: fileHash}
}

// scanContext carries the meter identity that reading records attach to.
// Both fields must be set before a reading can be emitted.
type scanContext struct {
	mpan   string
	serial string
}

func scan(text string) ParseResult {
	var (
		result ParseResult
		active scanContext
	)

	for i, rawLine := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		fields := strings.Split(line, fieldDelimiter)
		switch fields[0] {
		case recordHeader:
			if stop := scanHeader(fields, lineNo, &result); stop {
				return result
			}
		case recordMeterPoint:
			scanMeterPoint(fields, lineNo, &active, &result)
		case recordMeter:
			scanMeter(fields, lineNo, &active, &result)
		case recordReading:
			scanReading(fields, lineNo, active, &result)
		case recordFooter:
			return result
		}
	}
	return result
}

// scanHeader validates the ZHV record. It returns true when scanning must
// stop because the file is not a D0010 flow.
func scanHeader(fields []string, line int, result *ParseResult) bool {
	if len(fields) < minHeaderFields {
		result.errorf(line, "Invalid header record (expected at least %d fields, got %d)", minHeaderFields, len(fields))
		return false
	}
	if !strings.HasPrefix(fields[2], formatIdentifier) {
		result.errorf(line, "Not a D0010 file (found '%s')", fields[2])
		return true
	}
	return false
}

// scanMeterPoint handles an 026 record. A valid MPAN replaces the active
// one; a rejected value leaves the context untouched.
func scanMeterPoint(fields []string, line int, active *scanContext, result *ParseResult) {
	if len(fields) < minContextFields {
		result.errorf(line, "Invalid meter point record (expected at least %d fields, got %d)", minContextFields, len(fields))
		return
	}

	mpan, fault := parseMPAN(fields[1])
	if fault != "" {
		result.warnf(line, "%s", fault)
		return
	}
	active.mpan = mpan
}

// scanMeter handles an 028 record the same way 026 handles the meter point.
func scanMeter(fields []string, line int, active *scanContext, result *ParseResult) {
	if len(fields) < minContextFields {
		result.errorf(line, "Invalid meter record (expected at least %d fields, got %d)", minContextFields, len(fields))
		return
	}

	serial, fault := parseSerial(fields[1])
	if fault != "" {
		result.warnf(line, "%s", fault)
		return
	}
	active.serial = serial
}

// scanReading handles an 030 record. Without a complete active context the
// row is rejected before any field validation.
func scanReading(fields []string, line int, active scanContext, result *ParseResult) {
	if active.mpan == "" || active.serial == "" {
		result.warnf(line, "Reading without context (missing meter point or serial)")
		return
	}
	if len(fields) < minReadingFields {
		result.warnf(line, "Invalid reading record (expected at least %d fields, got %d)", minReadingFields, len(fields))
		return
	}

	register := strings.TrimSpace(fields[1])
	if register == "" {
		register = defaultRegisterID
	}

	date, clock, fault := parseTimestamp(fields[2])
	if fault != "" {
		result.warnf(line, "%s", fault)
		return
	}

	value, fault := parseAmount(fields[3])
	if fault != "" {
		result.warnf(line, "%s", fault)
		return
	}

	readingType := ReadingTypeActual
	if len(fields) > readingTypeIndex {
		readingType = ReadingTypeFromCode(fields[readingTypeIndex])
	}

	result.Readings = append(result.Readings, Reading{
		MPAN:        active.mpan,
		MeterSerial: active.serial,
		ReadingDate: date,
		ReadingTime: clock,
		RegisterID:  register,
		Value:       value,
		Type:        readingType,
	})
}
