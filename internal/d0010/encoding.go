package d0010

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names a candidate character encoding for flow file content.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingLatin1      Encoding = "latin-1"
	EncodingWindows1252 Encoding = "cp1252"
)

// DefaultEncodings returns the candidate order tried when decoding a flow
// file: utf-8 first, then the single-byte fallbacks senders still produce.
func DefaultEncodings() []Encoding {
	return []Encoding{EncodingUTF8, EncodingLatin1, EncodingWindows1252}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// decode converts raw bytes to text using the named encoding. It fails when
// the bytes are not valid for that encoding so the caller can try the next
// candidate.
func decode(data []byte, enc Encoding) (string, error) {
	switch enc {
	case EncodingUTF8:
		if !utf8.Valid(data) {
			return "", errors.New("d0010: invalid utf-8 byte sequence")
		}
		return string(data), nil
	case EncodingLatin1:
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("d0010: decode latin-1: %w", err)
		}
		return string(decoded), nil
	case EncodingWindows1252:
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("d0010: decode cp1252: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("d0010: unsupported encoding %q", enc)
	}
}
