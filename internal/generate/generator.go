package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tbanks7/applyflow/internal/model"
)

// Ensure Generator implements model.Generator.
var _ model.Generator = (*Generator)(nil)

// Truncation caps keep prompts inside the model's context comfortably.
const (
	maxDescriptionChars = 6000
	maxCoverDescChars   = 5000
)

// Generator tailors the candidate's resume and writes a cover letter body
// for one job, via an LLM provider.
type Generator struct {
	provider       LLMProvider
	candidate      string // free-text candidate profile
	resumeTemplate string // path to the base .tex resume
	logger         *slog.Logger
}

// NewGenerator creates a generator over the given provider. resumeTemplate
// is re-read on every call so edits between runs are picked up.
func NewGenerator(provider LLMProvider, candidate, resumeTemplate string, logger *slog.Logger) *Generator {
	return &Generator{
		provider:       provider,
		candidate:      candidate,
		resumeTemplate: resumeTemplate,
		logger:         logger,
	}
}

// Generate produces the tailored resume source, keyword report, and cover
// letter body for the job. Fails with GenerationError when the provider
// errors or returns empty content.
func (g *Generator) Generate(ctx context.Context, job model.JobRecord) (model.TailoredContent, error) {
	baseTeX, err := os.ReadFile(g.resumeTemplate)
	if err != nil {
		return model.TailoredContent{}, &model.GenerationError{Err: fmt.Errorf("read resume template: %w", err)}
	}

	g.logger.Info("tailoring resume", "company", job.Company, "title", job.Title)
	resumeOut, err := g.provider.Complete(ctx, resumeSystemPrompt, g.resumePrompt(job, string(baseTeX)))
	if err != nil {
		return model.TailoredContent{}, &model.GenerationError{Err: fmt.Errorf("resume: %w", err)}
	}

	tex, report := splitKeywordReport(resumeOut)
	if strings.TrimSpace(tex) == "" {
		return model.TailoredContent{}, &model.GenerationError{Err: fmt.Errorf("resume: empty LaTeX output")}
	}

	g.logger.Info("writing cover letter", "company", job.Company, "title", job.Title)
	body, err := g.provider.Complete(ctx, coverLetterSystemPrompt, g.coverLetterPrompt(job))
	if err != nil {
		return model.TailoredContent{}, &model.GenerationError{Err: fmt.Errorf("cover letter: %w", err)}
	}
	if strings.TrimSpace(body) == "" {
		return model.TailoredContent{}, &model.GenerationError{Err: fmt.Errorf("cover letter: empty output")}
	}

	return model.TailoredContent{
		ResumeTeX:       strings.TrimSpace(tex),
		KeywordReport:   report,
		CoverLetterBody: strings.TrimSpace(body),
	}, nil
}

func (g *Generator) resumePrompt(job model.JobRecord, baseTeX string) string {
	return fmt.Sprintf(`Job Title: %s
Company: %s
Location: %s

--- JOB DESCRIPTION START ---
%s
--- JOB DESCRIPTION END ---

--- CANDIDATE PROFILE ---
%s

--- CURRENT LATEX RESUME ---
%s

Tailor the LaTeX resume above for this specific role.
After the LaTeX, on a NEW LINE write exactly:
%s
Then list the top 10 keywords from the job description and where each appears
in the resume, one per line as: keyword, then the section (or "not present").`,
		job.Title, job.Company, job.Location,
		truncate(job.Description, maxDescriptionChars),
		g.candidate, baseTeX, keywordReportDelimiter)
}

func (g *Generator) coverLetterPrompt(job model.JobRecord) string {
	return fmt.Sprintf(`Job Title: %s
Company: %s
Location: %s

--- JOB DESCRIPTION ---
%s

--- CANDIDATE PROFILE ---
%s

Write the cover letter body paragraphs now.`,
		job.Title, job.Company, job.Location,
		truncate(job.Description, maxCoverDescChars), g.candidate)
}

// splitKeywordReport separates the LaTeX source from the keyword report.
// A missing delimiter is tolerated; the report is then a placeholder.
func splitKeywordReport(out string) (tex, report string) {
	if idx := strings.Index(out, keywordReportDelimiter); idx >= 0 {
		return strings.TrimSpace(out[:idx]), strings.TrimSpace(out[idx+len(keywordReportDelimiter):])
	}
	return strings.TrimSpace(out), "Keyword report not generated."
}

func truncate(s string, n int) string {
	if s == "" {
		return "No description available."
	}
	if len(s) <= n {
		return s
	}
	return s[:n]
}
