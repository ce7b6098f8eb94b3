package analysis

import (
	"fmt"
	"math"
)

// Fallback scorer coefficients.
const (
	ratioWeight          = 2.0
	embeddedWeight       = 20.0
	entropyWeight        = 2.0
	metadataWeight       = 0.1
	findingsFloor        = 10.0
	findingsFloorBonus   = 15.0
	baseConfidence       = 80
	confidencePerFinding = 5
	maxConfidence        = 99
)

var verdictTemplates = map[RiskLevel]string{
	RiskHigh: "High likelihood of concealed data: %.2f%% of the document is hidden, embedded or encoded content. " +
		"Quarantine the file and review its embedded objects and hidden runs before sharing.",
	RiskMedium: "Moderate concealment indicators: %.2f%% of the document is hidden, embedded or encoded content. " +
		"Review the listed findings before the file leaves the organization.",
	RiskLow: "Low risk: %.2f%% of the document is hidden, embedded or encoded content. " +
		"No strong evidence of covert data was found.",
}

// FallbackVerdict scores a result without the oracle. It is deterministic:
// the same result always yields the same verdict.
func FallbackVerdict(r *Result) RiskVerdict {
	embedded := 0.0
	if r.Details.EmbeddedObjectCount > 0 {
		embedded = 1
	}

	score := r.HiddenRatio*ratioWeight +
		embedded*embeddedWeight +
		r.Details.MaxEntropy*entropyWeight +
		float64(r.Breakdown.MetadataScore)*metadataWeight
	if len(r.Findings) > 0 && score < findingsFloor {
		score += findingsFloorBonus
	}
	score = math.Max(0, math.Min(score, 100))

	level := LevelForScore(score)
	confidence := baseConfidence + len(r.Findings)*confidencePerFinding
	if confidence > maxConfidence {
		confidence = maxConfidence
	}

	return RiskVerdict{
		RiskScore:  score,
		RiskLevel:  level,
		Confidence: confidence,
		Verdict:    fmt.Sprintf(verdictTemplates[level], r.HiddenRatio),
		Source:     SourceFallback,
	}
}
