package upload

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding is a text encoding seen in retailer CSV exports
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding reports UTF-8 for valid UTF-8 input and Windows-1250
// otherwise. Croatian exports that are not UTF-8 are almost always 1250.
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1250
}

// Decode converts data to a UTF-8 string, dropping a leading BOM
func Decode(data []byte) (string, Encoding, error) {
	enc := DetectEncoding(data)
	if enc == EncodingUTF8 {
		return string(bytes.TrimPrefix(data, utf8BOM)), enc, nil
	}
	decoded, err := charmap.Windows1250.NewDecoder().Bytes(data)
	if err != nil {
		return "", enc, fmt.Errorf("failed to decode %s: %w", enc, err)
	}
	return string(decoded), enc, nil
}
