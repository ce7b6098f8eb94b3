package analysis

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeText decodes an XML part as UTF-8. A byte-order mark switches the
// decoder to UTF-16 when present; invalid sequences become U+FFFD.
func DecodeText(b []byte) string {
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// TextLength is the length of s in characters, not bytes.
func TextLength(s string) int64 {
	return int64(utf8.RuneCountInString(s))
}
