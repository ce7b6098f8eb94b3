package analysis

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the container family of a scanned document.
type Format string

const (
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

func (f Format) String() string { return string(f) }

// FormatFromName derives the document format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return FormatDOCX, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Target is an opened document handed to exactly one scan.
type Target struct {
	Name   string
	Format Format
	Size   int64
	Data   []byte
}

// NewTarget wraps a document buffer. Size is taken from the buffer.
func NewTarget(name string, format Format, data []byte) (*Target, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	return &Target{
		Name:   name,
		Format: format,
		Size:   int64(len(data)),
		Data:   data,
	}, nil
}

// FindingCategory tags a finding with the concealment signal that produced it.
type FindingCategory string

const (
	CategoryHiddenText     FindingCategory = "hidden-text"
	CategoryEmbeddedObject FindingCategory = "embedded-object"
	CategoryComments       FindingCategory = "comments"
	CategoryEncodedBlock   FindingCategory = "encoded-block"
	CategoryMetadata       FindingCategory = "metadata"
	CategoryRevision       FindingCategory = "revision"
)

// Finding is a human-readable observation. On the wire it is just its text.
type Finding struct {
	Category FindingCategory
	Text     string
}

func (f Finding) String() string { return f.Text }

func (f Finding) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Text)
}

// SignalBreakdown holds the per-signal counters. Counters only grow during a scan.
type SignalBreakdown struct {
	HiddenTextBytes   int64 `json:"hidden_text"`
	EmbeddedFileBytes int64 `json:"embedded_files"`
	EncodedBlockBytes int64 `json:"base64_blocks"`
	MetadataScore     int64 `json:"metadata_score"`
	CommentsBytes     int64 `json:"comments_size"`
}

// Add returns the component-wise sum of two breakdowns.
func (b SignalBreakdown) Add(o SignalBreakdown) SignalBreakdown {
	return SignalBreakdown{
		HiddenTextBytes:   b.HiddenTextBytes + o.HiddenTextBytes,
		EmbeddedFileBytes: b.EmbeddedFileBytes + o.EmbeddedFileBytes,
		EncodedBlockBytes: b.EncodedBlockBytes + o.EncodedBlockBytes,
		MetadataScore:     b.MetadataScore + o.MetadataScore,
		CommentsBytes:     b.CommentsBytes + o.CommentsBytes,
	}
}

// HiddenBytes is the byte-valued part of the breakdown. MetadataScore is a
// unitless score and is not included.
func (b SignalBreakdown) HiddenBytes() int64 {
	return b.HiddenTextBytes + b.EmbeddedFileBytes + b.EncodedBlockBytes + b.CommentsBytes
}

// ScanDetails are auxiliary counts that are not folded into the breakdown.
type ScanDetails struct {
	MaxEntropy          float64 `json:"entropyScore"`
	EncodedBlockCount   int     `json:"base64BlockCount"`
	EmbeddedObjectCount int     `json:"embeddedObjectCount"`
	MetadataFieldCount  int     `json:"metadataFieldsExtracted"`
	RevisionCount       int     `json:"revisionHistoryCount"`
}

// Result is the format-agnostic outcome of one scan.
type Result struct {
	Format      Format          `json:"format"`
	FileSize    int64           `json:"file_size"`
	HiddenBytes int64           `json:"hidden_bytes"`
	HiddenRatio float64         `json:"hidden_ratio"`
	Breakdown   SignalBreakdown `json:"breakdown"`
	Details     ScanDetails     `json:"details"`
	Findings    []Finding       `json:"findings"`
}

// FindingTexts returns the finding strings in order.
func (r *Result) FindingTexts() []string {
	out := make([]string, len(r.Findings))
	for i, f := range r.Findings {
		out[i] = f.Text
	}
	return out
}

// CountFindings returns how many findings carry the given category.
func (r *Result) CountFindings(cat FindingCategory) int {
	n := 0
	for _, f := range r.Findings {
		if f.Category == cat {
			n++
		}
	}
	return n
}

// RiskLevel is the coarse bucket of a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Risk level thresholds (inclusive lower bounds).
const (
	HighRiskThreshold   = 70.0
	MediumRiskThreshold = 30.0
)

// LevelForScore maps a 0-100 risk score to its level.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= HighRiskThreshold:
		return RiskHigh
	case score >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ParseRiskLevel accepts a level string in any case.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch RiskLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow, true
	case RiskMedium:
		return RiskMedium, true
	case RiskHigh:
		return RiskHigh, true
	}
	return "", false
}

// Verdict sources.
const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
)

// RiskVerdict is produced once per scan by the oracle or the fallback scorer.
type RiskVerdict struct {
	RiskScore  float64   `json:"riskScore"`
	RiskLevel  RiskLevel `json:"riskLevel"`
	Confidence int       `json:"confidence"`
	Verdict    string    `json:"verdict"`
	Source     string    `json:"source,omitempty"`
}
