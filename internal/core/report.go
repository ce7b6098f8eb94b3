package core

import (
	"math"
	"time"

	"github.com/docshield/docshield/internal/analysis"
)

// ScanReport is the host-facing response for one analyzed document. The
// dashboard relies on these exact JSON keys.
type ScanReport struct {
	ScanID        string                   `json:"scan_id"`
	FileName      string                   `json:"file_name"`
	Format        analysis.Format          `json:"format"`
	FileSize      int64                    `json:"file_size"`
	HiddenBytes   int64                    `json:"hidden_bytes"`
	HiddenRatio   float64                  `json:"hidden_ratio"`
	RiskScore     float64                  `json:"risk_score"`
	RiskLevel     analysis.RiskLevel       `json:"risk_level"`
	Confidence    int                      `json:"confidence"`
	Breakdown     analysis.SignalBreakdown `json:"breakdown"`
	Findings      []analysis.Finding       `json:"findings"`
	Details       analysis.ScanDetails     `json:"details"`
	Verdict       string                   `json:"verdict"`
	VerdictSource string                   `json:"verdict_source"`
	Timestamp     time.Time                `json:"timestamp"`
}

// NewScanReport combines a scan result and its verdict.
func NewScanReport(scanID, fileName string, r *analysis.Result, v analysis.RiskVerdict, ts time.Time) *ScanReport {
	findings := r.Findings
	if findings == nil {
		findings = []analysis.Finding{}
	}
	details := r.Details
	details.MaxEntropy = round2(details.MaxEntropy)

	return &ScanReport{
		ScanID:        scanID,
		FileName:      fileName,
		Format:        r.Format,
		FileSize:      r.FileSize,
		HiddenBytes:   r.HiddenBytes,
		HiddenRatio:   round2(r.HiddenRatio),
		RiskScore:     round2(v.RiskScore),
		RiskLevel:     v.RiskLevel,
		Confidence:    v.Confidence,
		Breakdown:     r.Breakdown,
		Findings:      findings,
		Details:       details,
		Verdict:       v.Verdict,
		VerdictSource: v.Source,
		Timestamp:     ts.UTC(),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
