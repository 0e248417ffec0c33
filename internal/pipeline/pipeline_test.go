package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	jobs []model.JobRecord
	err  error
}

func (s *fakeSource) Fetch(context.Context) ([]model.JobRecord, error) {
	return s.jobs, s.err
}

// keywordFilter rejects titles containing "senior", everything else passes.
type keywordFilter struct{}

func (keywordFilter) Decide(job model.JobRecord) model.EligibilityDecision {
	if strings.Contains(strings.ToLower(job.Title), "senior") {
		return model.EligibilityDecision{Reason: "seniority keyword"}
	}
	return model.EligibilityDecision{Eligible: true}
}

type memSet struct {
	seen map[string]bool
}

func newMemSet(keys ...string) *memSet {
	s := &memSet{seen: map[string]bool{}}
	for _, k := range keys {
		s.seen[k] = true
	}
	return s
}

func (s *memSet) IsNew(key string) bool    { return !s.seen[key] }
func (s *memSet) MarkProcessed(key string) { s.seen[key] = true }

// fakeGenerator fails for companies listed in failFor.
type fakeGenerator struct {
	failFor map[string]bool
	calls   int
}

func (g *fakeGenerator) Generate(_ context.Context, job model.JobRecord) (model.TailoredContent, error) {
	g.calls++
	if g.failFor[job.Company] {
		return model.TailoredContent{}, &model.GenerationError{Err: errors.New("llm said no")}
	}
	return model.TailoredContent{
		ResumeTeX:       "tex for " + job.Company,
		CoverLetterBody: "letter for " + job.Company,
	}, nil
}

type fakeCompiler struct {
	failFor map[string]bool
}

func (c *fakeCompiler) Render(_ context.Context, job model.JobRecord, _ model.TailoredContent) (model.ArtifactBundle, error) {
	if c.failFor[job.Company] {
		return model.ArtifactBundle{}, &model.CompilationError{
			Stage: model.StageResumeCompile, Err: errors.New("latex error"),
		}
	}
	return model.ArtifactBundle{
		OutputDir: "output/" + job.Company,
		ResumeTeX: "output/" + job.Company + "/resume.tex",
		ResumePDF: "output/" + job.Company + "/resume.pdf",
	}, nil
}

// recordingSink captures committed records and can simulate either store
// failing.
type recordingSink struct {
	recorded  []model.ApplicationRecord
	localErr  error
	remoteErr error
}

func (s *recordingSink) Record(_ context.Context, rec *model.ApplicationRecord) error {
	if s.localErr != nil {
		return &model.TrackingError{Target: model.TargetLocal, Err: s.localErr}
	}
	rec.NotionPageID = "page-1"
	s.recorded = append(s.recorded, *rec)
	if s.remoteErr != nil {
		return &model.TrackingError{Target: model.TargetRemote, Err: s.remoteErr}
	}
	return nil
}

type recordingNotifier struct {
	batches [][]model.ApplicationRecord
}

func (n *recordingNotifier) Notify(recs []model.ApplicationRecord) error {
	n.batches = append(n.batches, recs)
	return nil
}

func job(company, title string) model.JobRecord {
	return model.JobRecord{
		Company: company,
		Title:   title,
		URL:     "https://example.com/" + strings.ToLower(company),
		Source:  "adzuna",
	}
}

type deps struct {
	source    *fakeSource
	processed *memSet
	generator *fakeGenerator
	compiler  *fakeCompiler
	sink      *recordingSink
	notifier  *recordingNotifier
}

func newPipeline(d deps) *Pipeline {
	p := New(d.source, keywordFilter{}, d.processed, d.generator, d.compiler,
		d.sink, d.notifier, 0, discardLogger())
	p.sleep = func(context.Context, time.Duration) {}
	return p
}

func TestRunHappyPath(t *testing.T) {
	d := deps{
		source: &fakeSource{jobs: []model.JobRecord{
			job("Initech", "Backend Engineer"),
			job("Acme", "Go Developer"),
			job("Hooli", "Senior Architect"), // filtered out
		}},
		processed: newMemSet(),
		generator: &fakeGenerator{},
		compiler:  &fakeCompiler{},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Fetched != 3 || sum.Eligible != 2 || sum.New != 2 {
		t.Errorf("counts fetched=%d eligible=%d new=%d, want 3/2/2",
			sum.Fetched, sum.Eligible, sum.New)
	}
	if sum.Succeeded != 2 || sum.Failed != 0 {
		t.Errorf("succeeded=%d failed=%d, want 2/0", sum.Succeeded, sum.Failed)
	}
	if len(d.sink.recorded) != 2 {
		t.Fatalf("recorded %d jobs, want 2", len(d.sink.recorded))
	}
	rec := d.sink.recorded[0]
	if rec.Status != model.StatusReadyToApply {
		t.Errorf("status = %q, want %q", rec.Status, model.StatusReadyToApply)
	}
	if rec.ResumePath != "output/Initech/resume.pdf" {
		t.Errorf("resume path = %q, want the PDF", rec.ResumePath)
	}
	if !d.processed.seen[rec.Key] {
		t.Error("committed job was not marked processed")
	}
	if len(d.notifier.batches) != 1 || len(d.notifier.batches[0]) != 2 {
		t.Errorf("notifier batches = %+v, want one batch of 2", d.notifier.batches)
	}
}

func TestRunSecondRunIsIdempotent(t *testing.T) {
	jobs := []model.JobRecord{job("Initech", "Backend Engineer")}
	d := deps{
		source:    &fakeSource{jobs: jobs},
		processed: newMemSet(jobs[0].Key()),
		generator: &fakeGenerator{},
		compiler:  &fakeCompiler{},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.New != 0 || sum.Succeeded != 0 {
		t.Errorf("new=%d succeeded=%d, want 0/0 for an already processed job",
			sum.New, sum.Succeeded)
	}
	if d.generator.calls != 0 {
		t.Errorf("generator called %d times for a processed job", d.generator.calls)
	}
}

func TestRunIsolatesPerJobFailures(t *testing.T) {
	d := deps{
		source: &fakeSource{jobs: []model.JobRecord{
			job("Initech", "Backend Engineer"),
			job("Acme", "Go Developer"),
			job("Hooli", "Platform Engineer"),
		}},
		processed: newMemSet(),
		generator: &fakeGenerator{failFor: map[string]bool{"Acme": true}},
		compiler:  &fakeCompiler{},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run must not fail for a per-job error: %v", err)
	}
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("succeeded=%d failed=%d, want 2/1", sum.Succeeded, sum.Failed)
	}
	// The failed job stays unmarked so the next run retries it.
	if d.processed.seen[job("Acme", "Go Developer").Key()] {
		t.Error("failed job must not be marked processed")
	}
	for _, rec := range d.sink.recorded {
		if rec.Job.Company == "Acme" {
			t.Error("failed job must not be tracked")
		}
	}
}

func TestRunCompilationFailureSkipsJob(t *testing.T) {
	d := deps{
		source:    &fakeSource{jobs: []model.JobRecord{job("Initech", "Backend Engineer")}},
		processed: newMemSet(),
		generator: &fakeGenerator{},
		compiler:  &fakeCompiler{failFor: map[string]bool{"Initech": true}},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 || sum.Succeeded != 0 {
		t.Errorf("succeeded=%d failed=%d, want 0/1", sum.Succeeded, sum.Failed)
	}
	if len(d.sink.recorded) != 0 {
		t.Error("job with failed compilation must not be tracked")
	}
}

func TestRunCountsFailuresByStage(t *testing.T) {
	d := deps{
		source: &fakeSource{jobs: []model.JobRecord{
			job("Initech", "Backend Engineer"),
			job("Acme", "Go Developer"),
			job("Hooli", "Platform Engineer"),
		}},
		processed: newMemSet(),
		generator: &fakeGenerator{failFor: map[string]bool{"Acme": true}},
		compiler:  &fakeCompiler{failFor: map[string]bool{"Hooli": true}},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 2 {
		t.Errorf("succeeded=%d failed=%d, want 1/2", sum.Succeeded, sum.Failed)
	}
	want := map[string]int{
		model.StageGeneration:    1,
		model.StageResumeCompile: 1,
	}
	if !reflect.DeepEqual(sum.FailedByStage, want) {
		t.Errorf("failures by stage = %v, want %v", sum.FailedByStage, want)
	}
}

func TestRunCancelledContextRecordsError(t *testing.T) {
	d := deps{
		source:    &fakeSource{jobs: []model.JobRecord{job("Initech", "Backend Engineer")}},
		processed: newMemSet(),
		generator: &fakeGenerator{},
		compiler:  &fakeCompiler{},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := newPipeline(d).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if sum.Error == "" {
		t.Error("summary must carry the cancellation error")
	}
	if d.generator.calls != 0 {
		t.Error("no jobs may be processed after cancellation")
	}
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	d := deps{
		source:    &fakeSource{err: model.ErrSourceUnavailable},
		processed: newMemSet(),
		generator: &fakeGenerator{},
		compiler:  &fakeCompiler{},
		sink:      &recordingSink{},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if !errors.Is(err, model.ErrSourceUnavailable) {
		t.Fatalf("want ErrSourceUnavailable, got %v", err)
	}
	if sum.Error == "" {
		t.Error("summary must carry the fatal error")
	}
	if d.generator.calls != 0 {
		t.Error("no jobs may be processed when the fetch fails")
	}
}

func TestRunRemoteTrackingFailureIsNonFatal(t *testing.T) {
	jobs := []model.JobRecord{job("Initech", "Backend Engineer")}
	d := deps{
		source:    &fakeSource{jobs: jobs},
		processed: newMemSet(),
		generator: &fakeGenerator{},
		compiler:  &fakeCompiler{},
		sink:      &recordingSink{remoteErr: errors.New("notion down")},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Succeeded != 1 || sum.Failed != 0 {
		t.Errorf("succeeded=%d failed=%d, want 1/0", sum.Succeeded, sum.Failed)
	}
	if !d.processed.seen[jobs[0].Key()] {
		t.Error("locally committed job must be marked processed")
	}
}

func TestRunLocalTrackingFailureSkipsJob(t *testing.T) {
	jobs := []model.JobRecord{job("Initech", "Backend Engineer")}
	d := deps{
		source:    &fakeSource{jobs: jobs},
		processed: newMemSet(),
		generator: &fakeGenerator{},
		compiler:  &fakeCompiler{},
		sink:      &recordingSink{localErr: errors.New("disk full")},
		notifier:  &recordingNotifier{},
	}

	sum, err := newPipeline(d).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 1 {
		t.Errorf("failed=%d, want 1", sum.Failed)
	}
	if d.processed.seen[jobs[0].Key()] {
		t.Error("uncommitted job must not be marked processed")
	}
	if len(d.notifier.batches) != 0 {
		t.Error("nothing to announce when no job committed")
	}
}
