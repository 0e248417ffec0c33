package compile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

// Ensure Compiler implements model.Compiler.
var _ model.Compiler = (*Compiler)(nil)

// commandRunner executes an external tool in a working directory and returns
// its combined output. Factored out so tests never shell out.
type commandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// execRunner runs real commands with a per-invocation timeout.
type execRunner struct {
	timeout time.Duration
}

func (r execRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// Compiler turns tailored content into the per-job artifact bundle: the
// edited .tex plus compiled PDF, the filled cover letter plus converted PDF,
// and the keyword report. Each failure is attributed to its stage so the
// orchestrator can skip the single job without aborting the run.
type Compiler struct {
	outputRoot    string
	coverTemplate string // path to the .docx template; empty or missing builds one from scratch
	pdflatexBin   string
	sofficeBin    string
	runner        commandRunner
	logger        *slog.Logger
}

// New creates a compiler writing bundles under outputRoot.
func New(outputRoot, coverTemplate string, logger *slog.Logger) *Compiler {
	return &Compiler{
		outputRoot:    outputRoot,
		coverTemplate: coverTemplate,
		pdflatexBin:   "pdflatex",
		sofficeBin:    "soffice",
		runner:        execRunner{timeout: 60 * time.Second},
		logger:        logger,
	}
}

// Render writes and compiles all artifacts for one job.
func (c *Compiler) Render(ctx context.Context, job model.JobRecord, content model.TailoredContent) (model.ArtifactBundle, error) {
	dir, err := c.makeOutputDir(job)
	if err != nil {
		return model.ArtifactBundle{}, &model.CompilationError{Stage: model.StageResumeEdit, Err: err}
	}

	bundle := model.ArtifactBundle{OutputDir: dir}

	// Stage: resume-edit — persist the tailored source and the report.
	bundle.ResumeTeX = filepath.Join(dir, "resume.tex")
	if err := os.WriteFile(bundle.ResumeTeX, []byte(content.ResumeTeX), 0o644); err != nil {
		return bundle, &model.CompilationError{Stage: model.StageResumeEdit, Err: err}
	}
	bundle.KeywordReport = filepath.Join(dir, "keyword_report.txt")
	if err := os.WriteFile(bundle.KeywordReport, []byte(content.KeywordReport), 0o644); err != nil {
		return bundle, &model.CompilationError{Stage: model.StageResumeEdit, Err: err}
	}

	// Stage: resume-compile.
	pdf, err := c.compileLaTeX(ctx, bundle.ResumeTeX)
	if err != nil {
		return bundle, err
	}
	bundle.ResumePDF = pdf

	// Stage: cover-letter-fill.
	bundle.CoverLetterDocx = filepath.Join(dir, "cover_letter.docx")
	if err := c.fillCoverLetter(job, content.CoverLetterBody, bundle.CoverLetterDocx); err != nil {
		return bundle, err
	}

	// Stage: cover-letter-compile.
	coverPDF, err := c.convertToPDF(ctx, bundle.CoverLetterDocx)
	if err != nil {
		return bundle, err
	}
	bundle.CoverLetterPDF = coverPDF

	c.logger.Info("artifact bundle complete",
		"company", job.Company,
		"title", job.Title,
		"dir", dir,
	)
	return bundle, nil
}

// nonWord strips everything outside letters, digits, spaces, hyphens and
// underscores from folder names.
var nonWord = regexp.MustCompile(`[^\w\s-]`)

// makeOutputDir creates output/{company_title}_{timestamp}. The timestamp
// keeps the name unique when the same company reposts a role.
func (c *Compiler) makeOutputDir(job model.JobRecord) (string, error) {
	safe := nonWord.ReplaceAllString(job.Company+"_"+job.Title, "")
	safe = strings.ReplaceAll(strings.TrimSpace(safe), " ", "_")
	if len(safe) > 60 {
		safe = safe[:60]
	}

	dir := filepath.Join(c.outputRoot, safe+"_"+time.Now().Format("20060102_1504"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}

// tailOf returns the last n characters of compiler output for error detail.
func tailOf(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
