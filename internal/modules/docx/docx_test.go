package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/docshield/docshield/internal/analysis"
)

type entry struct {
	name string
	body string
}

func buildDocx(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		if err != nil {
			t.Fatalf("create %s: %v", e.name, err)
		}
		if _, err := w.Write([]byte(e.body)); err != nil {
			t.Fatalf("write %s: %v", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func runeLen(s string) int64 { return int64(len([]rune(s))) }

func wrapBody(inner string) string {
	return `<w:document><w:body><w:p>` + inner + `</w:p></w:body></w:document>`
}

func scan(t *testing.T, data []byte) *analysis.Result {
	t.Helper()
	tgt, err := analysis.NewTarget("test.docx", analysis.FormatDOCX, data)
	if err != nil {
		t.Fatalf("NewTarget: %v", err)
	}
	r, err := New(zerolog.Nop()).Scan(context.Background(), tgt)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return r
}

// ─── Classify ────────────────────────────────────────────────────────────────

func TestClassify(t *testing.T) {
	tests := map[string]EntryCategory{
		"word/embeddings/oleObject1.bin": EntryEmbedding,
		"word/media/image1.png":          EntryMedia,
		"word/comments.xml":              EntryComments,
		"word/document.xml":              EntryDocumentBody,
		"docProps/core.xml":              EntryCoreMetadata,
		"docProps/app.xml":               EntryAppMetadata,
		"word/styles.xml":                EntryOther,
		"[Content_Types].xml":            EntryOther,
		"WORD/DOCUMENT.XML":              EntryOther,
	}
	for name, want := range tests {
		if got := Classify(name); got != want {
			t.Errorf("Classify(%q) = %s, want %s", name, got, want)
		}
	}
}

// ─── Scanner ─────────────────────────────────────────────────────────────────

func TestScanner_Identity(t *testing.T) {
	s := New(zerolog.Nop())
	if s.Name() != ModuleName {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.Format() != analysis.FormatDOCX {
		t.Errorf("Format() = %q", s.Format())
	}
	if s.Description() == "" {
		t.Error("Description() should not be empty")
	}
}

func TestScan_PlainDocument(t *testing.T) {
	r := scan(t, buildDocx(t, entry{"word/document.xml", wrapBody(`<w:r><w:t>Hello world</w:t></w:r>`)}))
	if r.Breakdown != (analysis.SignalBreakdown{}) {
		t.Errorf("Breakdown = %+v, want zero", r.Breakdown)
	}
	if r.Details.EmbeddedObjectCount != 0 {
		t.Errorf("EmbeddedObjectCount = %d, want 0", r.Details.EmbeddedObjectCount)
	}
	if len(r.Findings) != 0 {
		t.Errorf("Findings = %v, want none", r.FindingTexts())
	}
	if r.HiddenBytes != 0 || r.HiddenRatio != 0 {
		t.Errorf("HiddenBytes/Ratio = %d/%v, want 0/0", r.HiddenBytes, r.HiddenRatio)
	}
}

func TestScan_EmbeddedObjects(t *testing.T) {
	r := scan(t, buildDocx(t,
		entry{"word/document.xml", wrapBody(`<w:r><w:t>see attachment</w:t></w:r>`)},
		entry{"word/embeddings/oleObject1.bin", strings.Repeat("\x00", 1000)},
		entry{"word/media/image1.png", strings.Repeat("\x01", 500)},
	))
	if r.Breakdown.EmbeddedFileBytes != 1500 {
		t.Errorf("EmbeddedFileBytes = %d, want 1500", r.Breakdown.EmbeddedFileBytes)
	}
	if r.Details.EmbeddedObjectCount != 2 {
		t.Errorf("EmbeddedObjectCount = %d, want 2", r.Details.EmbeddedObjectCount)
	}
	if len(r.Findings) == 0 || r.Findings[0].Category != analysis.CategoryEmbeddedObject {
		t.Fatalf("first finding should be the embedded object summary, got %v", r.FindingTexts())
	}
	if !strings.Contains(r.Findings[0].Text, "2 entries") {
		t.Errorf("embedded finding = %q", r.Findings[0].Text)
	}
}

func TestScan_DirectoryEntriesIgnored(t *testing.T) {
	r := scan(t, buildDocx(t,
		entry{"word/document.xml", wrapBody(`<w:r><w:t>no attachments</w:t></w:r>`)},
		entry{"word/media/", ""},
		entry{"word/embeddings/", ""},
	))
	if r.Details.EmbeddedObjectCount != 0 {
		t.Errorf("EmbeddedObjectCount = %d, want 0", r.Details.EmbeddedObjectCount)
	}
	for _, f := range r.FindingTexts() {
		if strings.Contains(f, "Embedded objects") {
			t.Errorf("unexpected finding %q", f)
		}
	}
}

func TestScan_VanishRun(t *testing.T) {
	match := `<w:vanish/></w:rPr><w:t>secret</w:t>`
	body := wrapBody(`<w:r><w:t>visible</w:t></w:r><w:r><w:rPr>` + match + `</w:r>`)
	r := scan(t, buildDocx(t, entry{"word/document.xml", body}))
	if want := runeLen(match); r.Breakdown.HiddenTextBytes != want {
		t.Errorf("HiddenTextBytes = %d, want %d", r.Breakdown.HiddenTextBytes, want)
	}
	if n := r.CountFindings(analysis.CategoryHiddenText); n != 1 {
		t.Errorf("hidden-text findings = %d, want 1 (%v)", n, r.FindingTexts())
	}
	if n := r.CountFindings(analysis.CategoryRevision); n != 0 {
		t.Errorf("revision findings = %d, want 0", n)
	}
	if r.Details.RevisionCount != 0 {
		t.Errorf("RevisionCount = %d, want 0", r.Details.RevisionCount)
	}
}

func TestScan_VanishExplicitFalseIgnored(t *testing.T) {
	body := wrapBody(`<w:r><w:rPr><w:vanish w:val="false"/></w:rPr><w:t>shown</w:t></w:r>`)
	r := scan(t, buildDocx(t, entry{"word/document.xml", body}))
	if r.Breakdown.HiddenTextBytes != 0 {
		t.Errorf("HiddenTextBytes = %d, want 0", r.Breakdown.HiddenTextBytes)
	}
}

func TestScan_WhiteRun(t *testing.T) {
	match := `<w:color w:val="FFFFFF"/></w:rPr><w:t xml:space="preserve">ab cd</w:t>`
	body := wrapBody(`<w:r><w:rPr>` + match + `</w:r>`)
	r := scan(t, buildDocx(t, entry{"word/document.xml", body}))
	if want := runeLen(match); r.Breakdown.HiddenTextBytes != want {
		t.Errorf("HiddenTextBytes = %d, want %d", r.Breakdown.HiddenTextBytes, want)
	}
	if len(r.Findings) != 1 || !strings.HasPrefix(r.Findings[0].Text, "White-on-white") {
		t.Errorf("Findings = %v", r.FindingTexts())
	}
}

func TestScan_VanishAndWhiteCountedTwice(t *testing.T) {
	white := `<w:color w:val="ffffff"/></w:rPr><w:t>four</w:t>`
	vanish := `<w:vanish/>` + white
	body := wrapBody(`<w:r><w:rPr>` + vanish + `</w:r>`)
	r := scan(t, buildDocx(t, entry{"word/document.xml", body}))
	if want := runeLen(vanish) + runeLen(white); r.Breakdown.HiddenTextBytes != want {
		t.Errorf("HiddenTextBytes = %d, want %d", r.Breakdown.HiddenTextBytes, want)
	}
	if n := r.CountFindings(analysis.CategoryHiddenText); n != 2 {
		t.Errorf("hidden-text findings = %d, want 2", n)
	}
}

func TestScan_HiddenTextCountsCharacters(t *testing.T) {
	match := `<w:vanish/></w:rPr><w:t>héllo</w:t>`
	body := wrapBody(`<w:r><w:rPr>` + match + `</w:r>`)
	r := scan(t, buildDocx(t, entry{"word/document.xml", body}))
	if r.Breakdown.HiddenTextBytes != 35 || runeLen(match) != 35 {
		t.Errorf("HiddenTextBytes = %d, want 35 characters (%d bytes)", r.Breakdown.HiddenTextBytes, len(match))
	}
}

func TestScan_Revisions(t *testing.T) {
	body := wrapBody(`<w:ins w:id="1"><w:r><w:t>new</w:t></w:r></w:ins>` +
		`<w:del w:id="2"><w:r><w:delText>old</w:delText></w:r></w:del>`)
	r := scan(t, buildDocx(t, entry{"word/document.xml", body}))
	if r.Details.RevisionCount != 2 {
		t.Errorf("RevisionCount = %d, want 2", r.Details.RevisionCount)
	}
	if n := r.CountFindings(analysis.CategoryRevision); n != 1 {
		t.Errorf("revision findings = %d, want 1", n)
	}
}

func TestScan_EncodedBlockInBody(t *testing.T) {
	payload := strings.Repeat("QUJD", 12)
	r := scan(t, buildDocx(t, entry{"word/document.xml", wrapBody(`<w:r><w:t>` + payload + `</w:t></w:r>`)}))
	if r.Details.EncodedBlockCount != 1 {
		t.Errorf("EncodedBlockCount = %d, want 1", r.Details.EncodedBlockCount)
	}
	if r.Breakdown.EncodedBlockBytes != 48 {
		t.Errorf("EncodedBlockBytes = %d, want 48", r.Breakdown.EncodedBlockBytes)
	}
	if r.Details.MaxEntropy != 2 {
		t.Errorf("MaxEntropy = %v, want 2", r.Details.MaxEntropy)
	}
	last := r.Findings[len(r.Findings)-1]
	if last.Category != analysis.CategoryEncodedBlock {
		t.Errorf("encoded finding should be last, got %v", r.FindingTexts())
	}
}

func TestScan_Metadata(t *testing.T) {
	r := scan(t, buildDocx(t,
		entry{"docProps/core.xml", `<?xml version="1.0"?><cp:coreProperties><dc:creator>Alice</dc:creator><dc:title>T</dc:title></cp:coreProperties>`},
		entry{"docProps/app.xml", `<Properties><Application>Word</Application></Properties>`},
		entry{"word/document.xml", wrapBody(`<w:r><w:t>x</w:t></w:r>`)},
	))
	if r.Details.MetadataFieldCount != 5 {
		t.Errorf("MetadataFieldCount = %d, want 5", r.Details.MetadataFieldCount)
	}
	if r.Breakdown.MetadataScore != 10 {
		t.Errorf("MetadataScore = %d, want 10", r.Breakdown.MetadataScore)
	}
	if r.HiddenBytes != 0 {
		t.Errorf("HiddenBytes = %d, metadata score must not count as bytes", r.HiddenBytes)
	}
}

func TestScan_CommentVolumeScoresMedium(t *testing.T) {
	r := scan(t, buildDocx(t,
		entry{"word/comments.xml", strings.Repeat("c", 2000)},
		entry{"word/document.xml", wrapBody(`<w:r><w:t>body</w:t></w:r>`)},
		entry{"word/styles.xml", strings.Repeat("s", 6000)},
	))
	if r.Breakdown.CommentsBytes != 2000 {
		t.Errorf("CommentsBytes = %d, want 2000", r.Breakdown.CommentsBytes)
	}
	if r.CountFindings(analysis.CategoryComments) != 1 {
		t.Fatalf("expected a comment volume finding, got %v", r.FindingTexts())
	}
	if !strings.Contains(r.Findings[0].Text, "2000 characters") {
		t.Errorf("comments finding = %q", r.Findings[0].Text)
	}
	if v := analysis.FallbackVerdict(r); v.RiskLevel != analysis.RiskMedium {
		t.Errorf("RiskLevel = %s (score %.2f, ratio %.2f), want MEDIUM", v.RiskLevel, v.RiskScore, r.HiddenRatio)
	}
}

func TestScan_SmallCommentsNoFinding(t *testing.T) {
	r := scan(t, buildDocx(t, entry{"word/comments.xml", strings.Repeat("c", 500)}))
	if r.Breakdown.CommentsBytes != 500 {
		t.Errorf("CommentsBytes = %d, want 500", r.Breakdown.CommentsBytes)
	}
	if len(r.Findings) != 0 {
		t.Errorf("Findings = %v, want none at the threshold", r.FindingTexts())
	}
}

func TestScan_EntryOrderIndependent(t *testing.T) {
	entries := []entry{
		{"docProps/core.xml", `<cp:coreProperties><dc:creator>A</dc:creator></cp:coreProperties>`},
		{"word/comments.xml", strings.Repeat("x", 700)},
		{"word/document.xml", wrapBody(`<w:ins w:id="1"/><w:r><w:rPr><w:vanish/></w:rPr><w:t>hid</w:t></w:r><w:r><w:t>` + strings.Repeat("Zm9v", 11) + `</w:t></w:r>`)},
		{"word/embeddings/a.bin", strings.Repeat("a", 64)},
	}
	reversed := make([]entry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	a := scan(t, buildDocx(t, entries...))
	b := scan(t, buildDocx(t, reversed...))
	if a.Breakdown != b.Breakdown {
		t.Errorf("Breakdown differs: %+v vs %+v", a.Breakdown, b.Breakdown)
	}
	if a.Details != b.Details {
		t.Errorf("Details differ: %+v vs %+v", a.Details, b.Details)
	}
	if !reflect.DeepEqual(a.FindingTexts(), b.FindingTexts()) {
		t.Errorf("Findings differ:\n%v\n%v", a.FindingTexts(), b.FindingTexts())
	}
}

// ─── Errors ──────────────────────────────────────────────────────────────────

func TestScan_MalformedContainer(t *testing.T) {
	tgt, _ := analysis.NewTarget("bad.docx", analysis.FormatDOCX, []byte("this is not a zip archive"))
	_, err := New(zerolog.Nop()).Scan(context.Background(), tgt)
	if !errors.Is(err, analysis.ErrMalformedContainer) {
		t.Errorf("err = %v, want ErrMalformedContainer", err)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	data := buildDocx(t, entry{"word/document.xml", wrapBody(`<w:r><w:t>x</w:t></w:r>`)})
	tgt, _ := analysis.NewTarget("c.docx", analysis.FormatDOCX, data)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(zerolog.Nop()).Scan(ctx, tgt)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
