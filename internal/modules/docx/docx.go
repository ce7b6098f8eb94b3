package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/analysis"
)

// ModuleName is the config key and registry name of the DOCX scanner.
const ModuleName = "docx_scanner"

// maxPartSize bounds how much of a single XML part is read into memory.
// Parts larger than this are truncated, which can only under-report.
const maxPartSize = 64 << 20

// Scanner walks a WordprocessingML package and extracts concealment signals
// from its parts.
type Scanner struct {
	logger zerolog.Logger
}

// New creates a DOCX scanner.
func New(logger zerolog.Logger) *Scanner {
	return &Scanner{logger: logger.With().Str("module", ModuleName).Logger()}
}

func (s *Scanner) Name() string { return ModuleName }

func (s *Scanner) Description() string {
	return "Walks DOCX packages for embedded objects, comments, hidden runs, revisions, metadata and encoded blocks"
}

func (s *Scanner) Format() analysis.Format { return analysis.FormatDOCX }

// Scan opens the package and folds the signals of every entry.
func (s *Scanner) Scan(ctx context.Context, t *analysis.Target) (*analysis.Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(t.Data), t.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrMalformedContainer, err)
	}

	var acc partSignals
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		sig, err := scanEntry(f)
		if err != nil {
			return nil, err
		}
		acc = acc.merge(sig)
	}

	result := analysis.Aggregate(analysis.FormatDOCX, t.Size, acc.signals())
	s.logger.Debug().
		Str("file", t.Name).
		Int("entries", len(zr.File)).
		Int64("hidden_bytes", result.HiddenBytes).
		Int("findings", len(result.Findings)).
		Msg("docx scan complete")
	return result, nil
}

func scanEntry(f *zip.File) (partSignals, error) {
	cat := Classify(f.Name)
	switch cat {
	case EntryEmbedding, EntryMedia:
		return scanEmbedded(f.UncompressedSize64), nil
	case EntryOther:
		return partSignals{}, nil
	}

	text, err := readPart(f)
	if err != nil {
		return partSignals{}, err
	}
	switch cat {
	case EntryComments:
		return scanComments(text), nil
	case EntryDocumentBody:
		return scanBody(text), nil
	default:
		return scanMetadata(text), nil
	}
}

func readPart(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", analysis.ErrMalformedContainer, f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", analysis.ErrMalformedContainer, f.Name, err)
	}
	return analysis.DecodeText(data), nil
}
