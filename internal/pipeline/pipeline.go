package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

// Pipeline owns one full run: fetch → filter → dedup → generate → compile →
// track → mark processed → notify. Every stage after dedup is per-job: one
// bad posting never takes down the run.
type Pipeline struct {
	source    model.JobSource
	filter    model.Filter
	processed model.ProcessedSet
	generator model.Generator
	compiler  model.Compiler
	sink      model.Sink
	notifier  model.Notifier
	minDelay  time.Duration // pause between jobs, keeps the LLM API happy
	logger    *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a pipeline wired with all its dependencies.
func New(
	source model.JobSource,
	filter model.Filter,
	processed model.ProcessedSet,
	generator model.Generator,
	compiler model.Compiler,
	sink model.Sink,
	notifier model.Notifier,
	minDelay time.Duration,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		source:    source,
		filter:    filter,
		processed: processed,
		generator: generator,
		compiler:  compiler,
		sink:      sink,
		notifier:  notifier,
		minDelay:  minDelay,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Run executes one complete cycle and reports what happened. The returned
// summary is filled in even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (model.RunSummary, error) {
	sum := model.RunSummary{StartedAt: p.now()}

	jobs, err := p.source.Fetch(ctx)
	if err != nil {
		sum.Error = err.Error()
		sum.FinishedAt = p.now()
		return sum, fmt.Errorf("fetching postings: %w", err)
	}
	sum.Fetched = len(jobs)

	var eligible []model.JobRecord
	for _, job := range jobs {
		decision := p.filter.Decide(job)
		if !decision.Eligible {
			p.logger.Debug("posting filtered out",
				"company", job.Company, "title", job.Title, "reason", decision.Reason)
			continue
		}
		eligible = append(eligible, job)
	}
	sum.Eligible = len(eligible)

	var fresh []model.JobRecord
	for _, job := range eligible {
		if p.processed.IsNew(job.Key()) {
			fresh = append(fresh, job)
		}
	}
	sum.New = len(fresh)

	var prepared []model.ApplicationRecord
	for i, job := range fresh {
		if ctx.Err() != nil {
			sum.Error = ctx.Err().Error()
			sum.FinishedAt = p.now()
			return sum, ctx.Err()
		}
		if i > 0 && p.minDelay > 0 {
			p.sleep(ctx, p.minDelay)
		}

		rec, err := p.processJob(ctx, job)
		if err != nil {
			stage := model.FailureStage(err)
			sum.Failed++
			if sum.FailedByStage == nil {
				sum.FailedByStage = make(map[string]int)
			}
			sum.FailedByStage[stage]++
			p.logger.Error("job failed, will retry next run",
				"company", job.Company, "title", job.Title, "stage", stage, "error", err)
			continue
		}
		sum.Succeeded++
		prepared = append(prepared, rec)
	}

	if len(prepared) > 0 && p.notifier != nil {
		if err := p.notifier.Notify(prepared); err != nil {
			p.logger.Warn("notification failed", "error", err)
		}
	}

	sum.FinishedAt = p.now()
	p.logger.Info("run complete",
		"fetched", sum.Fetched,
		"eligible", sum.Eligible,
		"new", sum.New,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"duration", sum.FinishedAt.Sub(sum.StartedAt),
	)
	return sum, nil
}

// processJob runs one posting through generation, compilation and tracking.
// The sink's local append is the commit point; only after it succeeds is the
// fingerprint marked processed, so a failure anywhere leaves the job eligible
// for the next run.
func (p *Pipeline) processJob(ctx context.Context, job model.JobRecord) (model.ApplicationRecord, error) {
	p.logger.Info("processing job",
		"company", job.Company, "title", job.Title, "source", job.Source)

	content, err := p.generator.Generate(ctx, job)
	if err != nil {
		return model.ApplicationRecord{}, err
	}

	bundle, err := p.compiler.Render(ctx, job, content)
	if err != nil {
		return model.ApplicationRecord{}, err
	}

	rec := model.ApplicationRecord{
		Key:             job.Key(),
		Job:             job,
		OutputDir:       bundle.OutputDir,
		ResumePath:      preferPDF(bundle.ResumePDF, bundle.ResumeTeX),
		CoverLetterPath: preferPDF(bundle.CoverLetterPDF, bundle.CoverLetterDocx),
		KeywordReport:   bundle.KeywordReport,
		Status:          model.StatusReadyToApply,
		GeneratedAt:     p.now(),
	}

	if err := p.sink.Record(ctx, &rec); err != nil {
		var terr *model.TrackingError
		if errors.As(err, &terr) && terr.Target == model.TargetRemote {
			// Local commit happened; the remote copy is best-effort.
			p.processed.MarkProcessed(rec.Key)
			return rec, nil
		}
		return model.ApplicationRecord{}, err
	}

	p.processed.MarkProcessed(rec.Key)
	return rec, nil
}

func preferPDF(pdf, source string) string {
	if pdf != "" {
		return pdf
	}
	return source
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
