package docx

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docshield/docshield/internal/analysis"
)

// XML signals are pulled out with regular expressions rather than an XML
// parser. The output of these heuristics is the contract; real OOXML
// semantics (style inheritance, theme colors) are not modelled.

// runTextTail skips the remaining run-property tags and consumes the run's
// <w:t> element. It cannot cross a closing </w:r>.
const runTextTail = `(?:<(?:/w:rPr|w:[A-Za-z]+[^>]*)>)*?<w:t(?:\s[^>]*)?>[^<]*</w:t>`

var (
	revisionPattern  = regexp.MustCompile(`<w:(?:ins|del)[\s>/]`)
	vanishRunPattern = regexp.MustCompile(`<w:vanish(?:\s+w:val="(?:true|1|on)")?\s*/>` + runTextTail)
	whiteRunPattern  = regexp.MustCompile(`<w:color\s+w:val="(?i:FFFFFF)"[^>]*/>` + runTextTail)
	elementPattern   = regexp.MustCompile(`<[A-Za-z_][^>]*>`)
)

// Markers that identify authorship metadata in the document properties.
var creatorMarkers = []string{"dc:creator", "cp:lastModifiedBy"}

const (
	metadataCreatorBonus   = 10
	commentVolumeFindingAt = 500
)

// runMatches returns the number of matching runs and the summed length of
// the matched markup, from the property tag through the closing </w:t>.
func runMatches(re *regexp.Regexp, body string) (runs int, chars int64) {
	for _, m := range re.FindAllString(body, -1) {
		runs++
		chars += analysis.TextLength(m)
	}
	return runs, chars
}

// scanBody extracts revision, hidden-text and encoded-block signals from
// the main document part.
func scanBody(body string) partSignals {
	var sig partSignals

	sig.revisions = len(revisionPattern.FindAllStringIndex(body, -1))
	if sig.revisions > 0 {
		sig.addBodyFinding(analysis.CategoryRevision,
			fmt.Sprintf("Tracked changes present: %d revision marks (insertions/deletions) in document body", sig.revisions))
	}

	// A run that is both vanished and white is counted by both patterns.
	if runs, chars := runMatches(vanishRunPattern, body); runs > 0 {
		sig.breakdown.HiddenTextBytes += chars
		sig.addBodyFinding(analysis.CategoryHiddenText,
			fmt.Sprintf("Hidden (vanish) text detected: %d runs, %d characters", runs, chars))
	}
	if runs, chars := runMatches(whiteRunPattern, body); runs > 0 {
		sig.breakdown.HiddenTextBytes += chars
		sig.addBodyFinding(analysis.CategoryHiddenText,
			fmt.Sprintf("White-on-white text detected: %d runs, %d characters", runs, chars))
	}

	sig.encoded = analysis.ScanEncodedBlocks(body)
	sig.breakdown.EncodedBlockBytes += sig.encoded.TotalSize
	return sig
}

func scanComments(text string) partSignals {
	var sig partSignals
	sig.breakdown.CommentsBytes = analysis.TextLength(text)
	return sig
}

func scanMetadata(text string) partSignals {
	var sig partSignals
	sig.metadataFields = len(elementPattern.FindAllStringIndex(text, -1))
	for _, marker := range creatorMarkers {
		if strings.Contains(text, marker) {
			sig.breakdown.MetadataScore += metadataCreatorBonus
			break
		}
	}
	return sig
}

func scanEmbedded(size uint64) partSignals {
	var sig partSignals
	sig.breakdown.EmbeddedFileBytes = int64(size)
	sig.embeddedObjects = 1
	return sig
}
