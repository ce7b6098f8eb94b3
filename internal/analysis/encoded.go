package analysis

import "regexp"

// encodedBlockPattern matches runs of at least ten base64 quads with optional
// padding. Ordinary prose can match too; the scanner is a heuristic signal.
var encodedBlockPattern = regexp.MustCompile(`(?:[A-Za-z0-9+/]{4}){10,}(?:[A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?`)

// EncodedBlocks summarizes base64-like runs found in a text.
type EncodedBlocks struct {
	Count      int
	TotalSize  int64
	MaxEntropy float64
}

// Merge sums counts and sizes and keeps the larger entropy.
func (e EncodedBlocks) Merge(o EncodedBlocks) EncodedBlocks {
	out := EncodedBlocks{
		Count:      e.Count + o.Count,
		TotalSize:  e.TotalSize + o.TotalSize,
		MaxEntropy: e.MaxEntropy,
	}
	if o.MaxEntropy > out.MaxEntropy {
		out.MaxEntropy = o.MaxEntropy
	}
	return out
}

// ScanEncodedBlocks finds all non-overlapping base64-like runs in text,
// left to right, and scores each one with Entropy.
func ScanEncodedBlocks(text string) EncodedBlocks {
	var blocks EncodedBlocks
	for _, m := range encodedBlockPattern.FindAllString(text, -1) {
		blocks.Count++
		blocks.TotalSize += int64(len(m))
		if e := Entropy(m); e > blocks.MaxEntropy {
			blocks.MaxEntropy = e
		}
	}
	return blocks
}
