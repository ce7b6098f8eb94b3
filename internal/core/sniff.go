package core

import (
	"bytes"
	"fmt"

	"github.com/h2non/filetype"

	"github.com/docshield/docshield/internal/analysis"
)

// sniffHeaderLen is how much of the document the content matchers need.
const sniffHeaderLen = 8192

// zipLocalHeader opens every OPC package. Content matchers may report a
// ZIP-based DOCX as docx, zip or jar depending on the first entry.
var zipLocalHeader = []byte("PK\x03\x04")

// compatibleKinds lists the detected extensions accepted for each declared
// format.
var compatibleKinds = map[analysis.Format][]string{
	analysis.FormatDOCX: {"docx", "zip"},
	analysis.FormatPDF:  {"pdf"},
}

// DetectFormat derives the format from the file name and cross-checks it
// against the content. Content that cannot be identified is accepted and
// left to the scanner; content positively identified as something else is
// rejected.
func DetectFormat(name string, data []byte) (analysis.Format, error) {
	format, err := analysis.FormatFromName(name)
	if err != nil {
		return "", err
	}

	if format == analysis.FormatDOCX && bytes.HasPrefix(data, zipLocalHeader) {
		return format, nil
	}

	head := data
	if len(head) > sniffHeaderLen {
		head = head[:sniffHeaderLen]
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return format, nil
	}
	for _, ext := range compatibleKinds[format] {
		if kind.Extension == ext {
			return format, nil
		}
	}
	return "", fmt.Errorf("%w: %q is named .%s but its content is %s (%s)",
		analysis.ErrUnsupportedFormat, name, format, kind.Extension, kind.MIME.Value)
}
