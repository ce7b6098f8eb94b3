package analysis

// Signals is what a format scanner produces before aggregation.
type Signals struct {
	Breakdown SignalBreakdown
	Details   ScanDetails
	Findings  []Finding
}

// HiddenRatio returns hidden as a percentage of size, clamped to [0, 100].
func HiddenRatio(hidden, size int64) float64 {
	if size <= 0 || hidden <= 0 {
		return 0
	}
	ratio := float64(hidden) / float64(size) * 100
	if ratio > 100 {
		return 100
	}
	return ratio
}

// Aggregate shapes per-format signals into a Result. It is identical for
// every format so downstream scoring never needs to know the source.
func Aggregate(format Format, size int64, s Signals) *Result {
	hidden := s.Breakdown.HiddenBytes()
	findings := make([]Finding, len(s.Findings))
	copy(findings, s.Findings)
	return &Result{
		Format:      format,
		FileSize:    size,
		HiddenBytes: hidden,
		HiddenRatio: HiddenRatio(hidden, size),
		Breakdown:   s.Breakdown,
		Details:     s.Details,
		Findings:    findings,
	}
}
