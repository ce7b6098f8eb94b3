package analysis

import "errors"

var (
	// ErrUnsupportedFormat is returned for anything that is not a DOCX or PDF.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrMalformedContainer is returned when a DOCX package cannot be opened as a ZIP archive.
	ErrMalformedContainer = errors.New("malformed document container")
	// ErrTextExtractionFailed is returned when the PDF text/metadata extractor fails.
	ErrTextExtractionFailed = errors.New("pdf text extraction failed")
	// ErrOracleUnavailable means the risk oracle could not produce a verdict.
	// It never reaches API callers: the fallback scorer takes over.
	ErrOracleUnavailable = errors.New("risk oracle unavailable")
	// ErrFileTooLarge is returned when a document exceeds the upload cap.
	ErrFileTooLarge = errors.New("document exceeds size limit")
	// ErrEmptyDocument is returned for zero-length input.
	ErrEmptyDocument = errors.New("empty document")
)
