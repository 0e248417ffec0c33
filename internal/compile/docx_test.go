package compile

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbanks7/applyflow/internal/model"
)

// writeTemplate drops a minimal .docx whose document.xml contains the raw
// placeholder tokens.
func writeTemplate(t *testing.T, extra string) string {
	t.Helper()
	data := buildDocx(nil)

	// Rewrite document.xml to carry the tokens verbatim.
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range r.File {
		content, _ := readZipFile(f)
		if f.Name == "word/document.xml" {
			doc := `<?xml version="1.0"?><w:document><w:body>` +
				`<w:p><w:r><w:t>{{DATE}}</w:t></w:r></w:p>` +
				`<w:p><w:r><w:t>{{ROLE}} at {{COMPANY}}</w:t></w:r></w:p>` +
				`<w:p><w:r><w:t xml:space="preserve">{{COVER_LETTER_BODY}}</w:t></w:r></w:p>` +
				extra +
				`</w:body></w:document>`
			content = []byte(doc)
		}
		out, _ := w.Create(f.Name)
		out.Write(content)
	}
	w.Close()

	path := filepath.Join(t.TempDir(), "template.docx")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func documentXML(t *testing.T, docxPath string) string {
	t.Helper()
	r, err := zip.OpenReader(docxPath)
	if err != nil {
		t.Fatalf("open %s: %v", docxPath, err)
	}
	defer r.Close()
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			rc, _ := f.Open()
			defer rc.Close()
			data, _ := io.ReadAll(rc)
			return string(data)
		}
	}
	t.Fatal("no word/document.xml in archive")
	return ""
}

func TestFillCoverLetterSubstitutesAllTokens(t *testing.T) {
	c := New(t.TempDir(), writeTemplate(t, ""), discardLogger())
	dst := filepath.Join(t.TempDir(), "cover_letter.docx")

	job := model.JobRecord{Company: "Acme & Sons", Title: "Go Engineer"}
	if err := c.fillCoverLetter(job, "First line.\nSecond line.", dst); err != nil {
		t.Fatalf("fillCoverLetter: %v", err)
	}

	doc := documentXML(t, dst)
	for _, token := range []string{tokenDate, tokenCompany, tokenRole, tokenBody} {
		if strings.Contains(doc, token) {
			t.Errorf("token %s survived substitution", token)
		}
	}
	if !strings.Contains(doc, "Acme &amp; Sons") {
		t.Error("company name was not XML-escaped into the document")
	}
	if !strings.Contains(doc, "Go Engineer") {
		t.Error("role missing from the document")
	}
	if !strings.Contains(doc, `<w:br/>`) {
		t.Error("body newline was not converted to a run break")
	}
}

func TestFillCoverLetterKeepsUnknownTokens(t *testing.T) {
	extra := `<w:p><w:r><w:t>{{SIGNATURE}}</w:t></w:r></w:p>`
	c := New(t.TempDir(), writeTemplate(t, extra), discardLogger())
	dst := filepath.Join(t.TempDir(), "cover_letter.docx")

	job := model.JobRecord{Company: "Initech", Title: "SRE"}
	if err := c.fillCoverLetter(job, "Body.", dst); err != nil {
		t.Fatalf("fillCoverLetter: %v", err)
	}

	// Unknown placeholders are warned about but left alone.
	if !strings.Contains(documentXML(t, dst), "{{SIGNATURE}}") {
		t.Error("unknown token should be left in place")
	}
}

func TestFillCoverLetterBuildsFromScratch(t *testing.T) {
	c := New(t.TempDir(), filepath.Join(t.TempDir(), "nope.docx"), discardLogger())
	dst := filepath.Join(t.TempDir(), "cover_letter.docx")

	job := model.JobRecord{Company: "Initech", Title: "SRE"}
	if err := c.fillCoverLetter(job, "I would like to apply.", dst); err != nil {
		t.Fatalf("fillCoverLetter: %v", err)
	}

	doc := documentXML(t, dst)
	if !strings.Contains(doc, "Re: SRE at Initech") {
		t.Error("from-scratch letter missing the subject line")
	}
	if !strings.Contains(doc, "I would like to apply.") {
		t.Error("from-scratch letter missing the body")
	}
}

func TestBuildDocxIsValidArchive(t *testing.T) {
	data := buildDocx([]string{"one", "two"})
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("archive does not open: %v", err)
	}
	names := map[string]bool{}
	for _, f := range r.File {
		names[f.Name] = true
	}
	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if !names[want] {
			t.Errorf("archive missing %s", want)
		}
	}
}
