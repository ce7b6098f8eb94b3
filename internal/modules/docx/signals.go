package docx

import (
	"fmt"

	"github.com/docshield/docshield/internal/analysis"
)

// partSignals is the contribution of a single package entry. Entries are
// scanned independently and folded with merge, so the final result does
// not depend on entry order.
type partSignals struct {
	breakdown       analysis.SignalBreakdown
	embeddedObjects int
	metadataFields  int
	revisions       int
	encoded         analysis.EncodedBlocks
	bodyFindings    []analysis.Finding
}

func (p *partSignals) addBodyFinding(cat analysis.FindingCategory, text string) {
	p.bodyFindings = append(p.bodyFindings, analysis.Finding{Category: cat, Text: text})
}

func (p partSignals) merge(o partSignals) partSignals {
	out := partSignals{
		breakdown:       p.breakdown.Add(o.breakdown),
		embeddedObjects: p.embeddedObjects + o.embeddedObjects,
		metadataFields:  p.metadataFields + o.metadataFields,
		revisions:       p.revisions + o.revisions,
		encoded:         p.encoded.Merge(o.encoded),
	}
	seen := make(map[string]bool, len(p.bodyFindings)+len(o.bodyFindings))
	for _, f := range append(append([]analysis.Finding(nil), p.bodyFindings...), o.bodyFindings...) {
		if seen[f.Text] {
			continue
		}
		seen[f.Text] = true
		out.bodyFindings = append(out.bodyFindings, f)
	}
	return out
}

// signals renders the accumulated counters into analysis signals. Findings
// are emitted in a fixed order: embedded objects, comments, body, encoded.
func (p partSignals) signals() analysis.Signals {
	var findings []analysis.Finding
	if p.embeddedObjects > 0 {
		findings = append(findings, analysis.Finding{
			Category: analysis.CategoryEmbeddedObject,
			Text: fmt.Sprintf("Embedded objects found in document package: %d entries, %d bytes",
				p.embeddedObjects, p.breakdown.EmbeddedFileBytes),
		})
	}
	if p.breakdown.CommentsBytes > commentVolumeFindingAt {
		findings = append(findings, analysis.Finding{
			Category: analysis.CategoryComments,
			Text:     fmt.Sprintf("Significant volume of comments: %d characters", p.breakdown.CommentsBytes),
		})
	}
	findings = append(findings, p.bodyFindings...)
	if p.encoded.Count > 0 {
		findings = append(findings, analysis.Finding{
			Category: analysis.CategoryEncodedBlock,
			Text: fmt.Sprintf("Base64-like encoded blocks detected: %d blocks, %d characters",
				p.encoded.Count, p.encoded.TotalSize),
		})
	}

	return analysis.Signals{
		Breakdown: p.breakdown,
		Details: analysis.ScanDetails{
			MaxEntropy:          p.encoded.MaxEntropy,
			EncodedBlockCount:   p.encoded.Count,
			EmbeddedObjectCount: p.embeddedObjects,
			MetadataFieldCount:  p.metadataFields,
			RevisionCount:       p.revisions,
		},
		Findings: findings,
	}
}
