package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/analysis"
)

// ModuleName is the config key and registry name of the PDF scanner.
const ModuleName = "pdf_scanner"

// Raw byte markers. Object streams are not decoded, so each occurrence
// contributes a fixed size estimate instead of a measured one.
var (
	embeddedFileMarker = []byte("/EmbeddedFile")
	annotationMarker   = []byte("/Annot")
	invisibleTextMode  = []byte("3 Tr")
)

const (
	embeddedFileEstimate  = 1024
	annotationEstimate    = 256
	invisibleTextEstimate = 50

	creatorProducerBonus   = 10
	excessiveMetadataAt    = 10
	excessiveMetadataBonus = 20
)

// Scanner searches a PDF's raw bytes and extracted text layer for
// concealment markers.
type Scanner struct {
	logger    zerolog.Logger
	extractor Extractor
}

// New creates a PDF scanner. A nil extractor selects LedongthucExtractor.
func New(logger zerolog.Logger, extractor Extractor) *Scanner {
	if extractor == nil {
		extractor = LedongthucExtractor{}
	}
	return &Scanner{
		logger:    logger.With().Str("module", ModuleName).Logger(),
		extractor: extractor,
	}
}

func (s *Scanner) Name() string { return ModuleName }

func (s *Scanner) Description() string {
	return "Searches PDF byte streams for embedded files, annotations, invisible text and encoded blocks"
}

func (s *Scanner) Format() analysis.Format { return analysis.FormatPDF }

// Scan extracts the text layer, then combines text and raw-byte signals.
// Extraction failure ends the scan.
func (s *Scanner) Scan(ctx context.Context, t *analysis.Target) (*analysis.Result, error) {
	ext, err := s.extractor.Extract(ctx, t.Data)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", analysis.ErrTextExtractionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig := scanSignals(t.Data, ext)
	result := analysis.Aggregate(analysis.FormatPDF, t.Size, sig)
	s.logger.Debug().
		Str("file", t.Name).
		Int("text_chars", len(ext.Text)).
		Int("info_fields", len(ext.Info)).
		Int64("hidden_bytes", result.HiddenBytes).
		Int("findings", len(result.Findings)).
		Msg("pdf scan complete")
	return result, nil
}

func scanSignals(raw []byte, ext *Extraction) analysis.Signals {
	var (
		b        analysis.SignalBreakdown
		d        analysis.ScanDetails
		findings []analysis.Finding
	)
	add := func(cat analysis.FindingCategory, format string, args ...any) {
		findings = append(findings, analysis.Finding{Category: cat, Text: fmt.Sprintf(format, args...)})
	}

	if n := bytes.Count(raw, embeddedFileMarker); n > 0 {
		b.EmbeddedFileBytes += int64(n) * embeddedFileEstimate
		d.EmbeddedObjectCount = n
		add(analysis.CategoryEmbeddedObject, "Embedded objects found in PDF: %d embedded file markers", n)
	}
	if n := bytes.Count(raw, annotationMarker); n > 0 {
		b.CommentsBytes += int64(n) * annotationEstimate
		add(analysis.CategoryComments, "Annotations present: %d annotation markers", n)
	}
	if n := bytes.Count(raw, invisibleTextMode); n > 0 {
		b.HiddenTextBytes += int64(n) * invisibleTextEstimate
		add(analysis.CategoryHiddenText, "Invisible text rendering mode used: %d occurrences", n)
	}

	d.MetadataFieldCount = len(ext.Info)
	if hasAny(ext.Info, "Creator", "Producer") {
		b.MetadataScore += creatorProducerBonus
	}
	if len(ext.Info) > excessiveMetadataAt {
		b.MetadataScore += excessiveMetadataBonus
		add(analysis.CategoryMetadata, "Excessive metadata fields: %d entries in document info", len(ext.Info))
	}

	enc := analysis.ScanEncodedBlocks(ext.Text)
	b.EncodedBlockBytes = enc.TotalSize
	d.EncodedBlockCount = enc.Count
	d.MaxEntropy = enc.MaxEntropy
	if enc.Count > 0 {
		add(analysis.CategoryEncodedBlock, "Base64-like encoded blocks detected: %d blocks, %d characters", enc.Count, enc.TotalSize)
	}

	return analysis.Signals{Breakdown: b, Details: d, Findings: findings}
}

func hasAny(m map[string]string, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
