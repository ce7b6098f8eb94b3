package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// Extraction is the text layer and info dictionary of a PDF.
type Extraction struct {
	Text string
	Info map[string]string
}

// Extractor pulls plain text and document info out of raw PDF bytes.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Extraction, error)
}

// LedongthucExtractor extracts text page by page with github.com/ledongthuc/pdf.
type LedongthucExtractor struct {
	// MaxPages bounds the number of pages decoded. Zero means all pages.
	MaxPages int
}

// Extract never panics: the parser can panic on hostile input, and that is
// reported as an error.
func (e LedongthucExtractor) Extract(ctx context.Context, data []byte) (out *Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	pages := reader.NumPage()
	if e.MaxPages > 0 && pages > e.MaxPages {
		pages = e.MaxPages
	}

	var text strings.Builder
	for i := 1; i <= pages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		text.WriteString(content)
		text.WriteByte('\n')
	}

	return &Extraction{Text: text.String(), Info: infoDict(reader)}, nil
}

func infoDict(reader *lpdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	out := make(map[string]string)
	if info.IsNull() {
		return out
	}
	for _, key := range info.Keys() {
		v := info.Key(key)
		if v.Kind() == lpdf.String {
			out[key] = v.Text()
		} else {
			out[key] = v.String()
		}
	}
	return out
}
