package model

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
)

// JobRecord is the unified representation of a posting from any job board.
// Immutable once fetched.
type JobRecord struct {
	Company     string     // company name
	Title       string     // job title
	Location    string     // location string as reported by the board
	URL         string     // direct posting link
	Description string     // raw description text
	Source      string     // board name (adzuna, jooble, remotive)
	PostedAt    *time.Time // nullable (not all APIs provide this)
	ScrapedAt   time.Time  // our clock (set on first encounter)
}

// Key returns the deterministic fingerprint used for deduplication:
// sha1 over lowercased, whitespace-collapsed company|title|url. It is stable
// across runs and process restarts and independent of board-assigned IDs.
func (j JobRecord) Key() string {
	norm := func(s string) string {
		return strings.Join(strings.Fields(strings.ToLower(s)), " ")
	}
	sum := sha1.Sum([]byte(norm(j.Company) + "|" + norm(j.Title) + "|" + norm(j.URL)))
	return hex.EncodeToString(sum[:])
}

// EligibilityDecision is the outcome of the filter engine for one job.
// Reason is set only when Eligible is false.
type EligibilityDecision struct {
	Eligible bool
	Reason   string
}

// Status of an application record. Transitions are forward-only: the
// pipeline writes ReadyToApply exactly once; Applied is set later by the
// user (review TUI or directly in Notion) and is never overwritten.
type Status string

const (
	StatusReadyToApply Status = "Ready to Apply"
	StatusApplied      Status = "Applied"
)

// ApplicationRecord is one row in the tracking log: a job that made it all
// the way through generation and compilation.
type ApplicationRecord struct {
	Key             string // JobRecord fingerprint
	Job             JobRecord
	OutputDir       string
	ResumePath      string // PDF if compiled, .tex otherwise
	CoverLetterPath string // PDF if converted, .docx otherwise
	KeywordReport   string
	NotionPageID    string
	Status          Status
	GeneratedAt     time.Time
}

// TailoredContent is the generator's output for one job.
type TailoredContent struct {
	ResumeTeX       string // complete LaTeX source, edited for this job
	KeywordReport   string // keyword → section mapping, plain text
	CoverLetterBody string // body paragraphs only
}

// ArtifactBundle holds the paths produced by the compiler for one job.
type ArtifactBundle struct {
	OutputDir       string
	ResumeTeX       string
	ResumePDF       string // empty if LaTeX compilation failed softly
	CoverLetterDocx string
	CoverLetterPDF  string
	KeywordReport   string
}

// JobSource fetches postings from one or more boards.
type JobSource interface {
	Fetch(ctx context.Context) ([]JobRecord, error)
}

// Board searches a single job board for one query/location pair.
type Board interface {
	Name() string
	Search(ctx context.Context, query, location string) ([]JobRecord, error)
}

// Filter decides whether a job is worth processing.
type Filter interface {
	Decide(job JobRecord) EligibilityDecision
}

// Generator produces tailored application content for a job.
type Generator interface {
	Generate(ctx context.Context, job JobRecord) (TailoredContent, error)
}

// Compiler renders tailored content into the per-job artifact bundle.
type Compiler interface {
	Render(ctx context.Context, job JobRecord, content TailoredContent) (ArtifactBundle, error)
}

// Sink persists an application record. Implementations dual-write to the
// local log and the remote tracker; the local write is authoritative.
type Sink interface {
	Record(ctx context.Context, rec *ApplicationRecord) error
}

// ProcessedSet is the authoritative in-memory set of fingerprints already
// handled. Append-only; durability comes from the local log the set was
// loaded from.
type ProcessedSet interface {
	IsNew(key string) bool
	MarkProcessed(key string)
}

// Notifier announces freshly prepared applications.
type Notifier interface {
	Notify(recs []ApplicationRecord) error
}
