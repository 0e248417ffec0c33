package compile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

// Placeholder tokens recognized in the cover letter template.
const (
	tokenDate    = "{{DATE}}"
	tokenCompany = "{{COMPANY}}"
	tokenRole    = "{{ROLE}}"
	tokenBody    = "{{COVER_LETTER_BODY}}"
)

var leftoverToken = regexp.MustCompile(`\{\{[A-Z_]+\}\}`)

// fillCoverLetter writes the filled cover letter to dst. If the configured
// template exists its placeholders are substituted in place; otherwise a
// minimal document is built from scratch so a missing template never blocks
// the job.
func (c *Compiler) fillCoverLetter(job model.JobRecord, body, dst string) error {
	values := map[string]string{
		tokenDate:    time.Now().Format("January 2, 2006"),
		tokenCompany: job.Company,
		tokenRole:    job.Title,
		tokenBody:    body,
	}

	if c.coverTemplate != "" {
		if _, err := os.Stat(c.coverTemplate); err == nil {
			return c.fillTemplate(c.coverTemplate, dst, values)
		}
		c.logger.Warn("cover letter template missing, building from scratch", "path", c.coverTemplate)
	}

	data := buildDocx([]string{
		values[tokenDate],
		"",
		fmt.Sprintf("Re: %s at %s", job.Title, job.Company),
		"",
		body,
		"",
		"Sincerely,",
	})
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return &model.CompilationError{Stage: model.StageCoverLetterFill, Err: err}
	}
	return nil
}

// fillTemplate copies the template archive entry by entry, substituting
// tokens inside word/document.xml.
func (c *Compiler) fillTemplate(src, dst string, values map[string]string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return &model.CompilationError{Stage: model.StageCoverLetterFill, Err: fmt.Errorf("open template: %w", err)}
	}
	defer r.Close()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range r.File {
		data, err := readZipFile(f)
		if err != nil {
			return &model.CompilationError{Stage: model.StageCoverLetterFill, Err: err}
		}
		if f.Name == "word/document.xml" {
			doc := string(data)
			for token, value := range values {
				doc = strings.ReplaceAll(doc, token, docxText(value))
			}
			for _, left := range leftoverToken.FindAllString(doc, -1) {
				c.logger.Warn("unresolved cover letter placeholder", "token", left)
			}
			data = []byte(doc)
		}
		out, err := w.Create(f.Name)
		if err != nil {
			return &model.CompilationError{Stage: model.StageCoverLetterFill, Err: err}
		}
		if _, err := out.Write(data); err != nil {
			return &model.CompilationError{Stage: model.StageCoverLetterFill, Err: err}
		}
	}
	if err := w.Close(); err != nil {
		return &model.CompilationError{Stage: model.StageCoverLetterFill, Err: err}
	}

	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
		return &model.CompilationError{Stage: model.StageCoverLetterFill, Err: err}
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// docxText escapes a value for insertion into document.xml. Newlines become
// run-level breaks so multi-paragraph bodies survive the substitution.
func docxText(s string) string {
	s = xmlEscape(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", `</w:t><w:br/><w:t xml:space="preserve">`)
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// buildDocx assembles a minimal WordprocessingML archive with one paragraph
// per entry.
func buildDocx(paragraphs []string) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		body.WriteString(docxText(p))
		body.WriteString(`</w:t></w:r></w:p>`)
	}

	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body>` + body.String() + `</w:body></w:document>`

	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	rels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range map[string]string{
		"[Content_Types].xml": contentTypes,
		"_rels/.rels":         rels,
		"word/document.xml":   document,
	} {
		f, _ := w.Create(name)
		f.Write([]byte(data))
	}
	w.Close()
	return buf.Bytes()
}
