package compile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tbanks7/applyflow/internal/model"
)

// auxExtensions are pdflatex byproducts removed after a successful compile.
var auxExtensions = []string{".aux", ".log", ".out", ".toc"}

// compileLaTeX runs pdflatex over texPath twice (the second pass resolves
// references) and returns the resulting PDF path.
func (c *Compiler) compileLaTeX(ctx context.Context, texPath string) (string, error) {
	dir := filepath.Dir(texPath)
	name := filepath.Base(texPath)

	var output string
	for pass := 1; pass <= 2; pass++ {
		out, err := c.runner.Run(ctx, dir, c.pdflatexBin,
			"-interaction=nonstopmode", "-halt-on-error", name)
		output = out
		if err != nil {
			return "", &model.CompilationError{
				Stage:  model.StageResumeCompile,
				Detail: tailOf(output, 800),
				Err:    fmt.Errorf("pdflatex pass %d: %w", pass, err),
			}
		}
	}

	pdf := strings.TrimSuffix(texPath, ".tex") + ".pdf"
	if _, err := os.Stat(pdf); err != nil {
		return "", &model.CompilationError{
			Stage:  model.StageResumeCompile,
			Detail: tailOf(output, 800),
			Err:    fmt.Errorf("pdflatex produced no PDF: %w", err),
		}
	}

	c.cleanupAux(texPath)
	return pdf, nil
}

// cleanupAux removes pdflatex side files. Failures are ignored, the files
// are harmless clutter.
func (c *Compiler) cleanupAux(texPath string) {
	base := strings.TrimSuffix(texPath, ".tex")
	for _, ext := range auxExtensions {
		os.Remove(base + ext)
	}
}

// convertToPDF converts a .docx to PDF with a headless LibreOffice run.
func (c *Compiler) convertToPDF(ctx context.Context, docxPath string) (string, error) {
	dir := filepath.Dir(docxPath)
	out, err := c.runner.Run(ctx, dir, c.sofficeBin,
		"--headless", "--convert-to", "pdf", "--outdir", dir, filepath.Base(docxPath))
	if err != nil {
		return "", &model.CompilationError{
			Stage:  model.StageCoverLetterCompile,
			Detail: tailOf(out, 800),
			Err:    fmt.Errorf("soffice convert: %w", err),
		}
	}

	pdf := strings.TrimSuffix(docxPath, ".docx") + ".pdf"
	if _, err := os.Stat(pdf); err != nil {
		return "", &model.CompilationError{
			Stage:  model.StageCoverLetterCompile,
			Detail: tailOf(out, 800),
			Err:    fmt.Errorf("soffice produced no PDF: %w", err),
		}
	}
	return pdf, nil
}
