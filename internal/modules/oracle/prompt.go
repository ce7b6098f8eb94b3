package oracle

import (
	"fmt"
	"strings"

	"github.com/docshield/docshield/internal/core"
)

const maxPromptFindings = 20

// buildPrompt summarizes a scan result for the model. Only counters and
// finding texts are sent, never document content.
func buildPrompt(req core.OracleRequest) string {
	r := req.Result

	var b strings.Builder
	b.WriteString("You are a data-loss-prevention analyst reviewing a document for concealed or hidden data. ")
	b.WriteString("Assess the risk that it is being used to smuggle information. ")
	b.WriteString("Respond with ONLY a JSON object (no markdown, no explanation).\n\n")

	fmt.Fprintf(&b, "File name: %s\n", req.FileName)
	fmt.Fprintf(&b, "Format: %s\n", r.Format)
	fmt.Fprintf(&b, "File size: %d bytes\n", r.FileSize)
	fmt.Fprintf(&b, "Hidden bytes: %d (%.2f%% of the file)\n", r.HiddenBytes, r.HiddenRatio)
	fmt.Fprintf(&b, "Hidden text: %d, embedded files: %d, encoded blocks: %d, comments: %d bytes\n",
		r.Breakdown.HiddenTextBytes, r.Breakdown.EmbeddedFileBytes, r.Breakdown.EncodedBlockBytes, r.Breakdown.CommentsBytes)
	fmt.Fprintf(&b, "Embedded objects: %d\n", r.Details.EmbeddedObjectCount)
	fmt.Fprintf(&b, "Base64-like blocks: %d (max entropy %.2f bits/char)\n", r.Details.EncodedBlockCount, r.Details.MaxEntropy)
	fmt.Fprintf(&b, "Metadata score: %d (%d fields)\n", r.Breakdown.MetadataScore, r.Details.MetadataFieldCount)
	fmt.Fprintf(&b, "Revision marks: %d\n", r.Details.RevisionCount)

	b.WriteString("Findings:\n")
	if len(r.Findings) == 0 {
		b.WriteString("- none\n")
	}
	for i, f := range r.Findings {
		if i == maxPromptFindings {
			fmt.Fprintf(&b, "- (%d more)\n", len(r.Findings)-i)
			break
		}
		fmt.Fprintf(&b, "- %s\n", f.Text)
	}

	b.WriteString(`
Respond with:
{"riskScore": 0-100, "riskLevel": "LOW|MEDIUM|HIGH", "confidence": 0-100, "verdict": "2-3 sentence explanation with a recommended action"}

Use HIGH for scores of 70 and above and MEDIUM for 30 to 69.`)
	return b.String()
}
