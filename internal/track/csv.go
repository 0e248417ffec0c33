package track

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

// csvHeader is the fixed column layout of the local application log. The
// key column backs deduplication across runs; everything else is for human
// consumption and the review screen.
var csvHeader = []string{
	"key", "generated_at", "company", "title", "location", "url",
	"source", "status", "resume_path", "cover_letter_path",
	"output_dir", "notion_page_id",
}

// CSVLog is the authoritative local tracking store. Rows are appended once
// per processed job; the only in-place mutation is the status column.
type CSVLog struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

func NewCSVLog(path string, logger *slog.Logger) *CSVLog {
	return &CSVLog{path: path, logger: logger}
}

// Load reads every record from the log. A missing file is an empty log, not
// an error. Malformed rows are skipped with a warning so one bad line never
// blocks a run.
func (l *CSVLog) Load() ([]model.ApplicationRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *CSVLog) load() ([]model.ApplicationRecord, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	var recs []model.ApplicationRecord
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "key" {
			continue // header
		}
		if len(row) != len(csvHeader) {
			l.logger.Warn("skipping malformed tracking row", "line", i+1, "fields", len(row))
			continue
		}
		recs = append(recs, rowToRecord(row))
	}
	return recs, nil
}

// Keys returns the fingerprint set of every tracked job, used to seed
// cross-run deduplication.
func (l *CSVLog) Keys() (map[string]struct{}, error) {
	recs, err := l.Load()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		keys[rec.Key] = struct{}{}
	}
	return keys, nil
}

// Append writes one record to the end of the log. The write is the commit
// point for the job: once it returns, the job counts as processed forever.
func (l *CSVLog) Append(rec model.ApplicationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", l.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(recordToRow(rec)); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", l.path, err)
	}
	return f.Sync()
}

// UpdateStatus moves one record's status forward. The transition is
// monotonic: a record already at StatusApplied is never moved back, and
// asking for the same status twice is a no-op.
func (l *CSVLog) UpdateStatus(key string, status model.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	recs, err := l.load()
	if err != nil {
		return err
	}

	found := false
	for i := range recs {
		if recs[i].Key != key {
			continue
		}
		found = true
		if recs[i].Status == model.StatusApplied {
			return nil // forward-only
		}
		recs[i].Status = status
	}
	if !found {
		return fmt.Errorf("no tracked record with key %s", key)
	}
	return l.rewrite(recs)
}

// rewrite replaces the log atomically via a temp file rename.
func (l *CSVLog) rewrite(recs []model.ApplicationRecord) error {
	tmp := l.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range recs {
		if err := w.Write(recordToRow(rec)); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	return os.Rename(tmp, l.path)
}

func recordToRow(rec model.ApplicationRecord) []string {
	return []string{
		rec.Key,
		rec.GeneratedAt.Format(time.RFC3339),
		rec.Job.Company,
		rec.Job.Title,
		rec.Job.Location,
		rec.Job.URL,
		rec.Job.Source,
		string(rec.Status),
		rec.ResumePath,
		rec.CoverLetterPath,
		rec.OutputDir,
		rec.NotionPageID,
	}
}

func rowToRecord(row []string) model.ApplicationRecord {
	generatedAt, _ := time.Parse(time.RFC3339, row[1])
	return model.ApplicationRecord{
		Key: row[0],
		Job: model.JobRecord{
			Company:  row[2],
			Title:    row[3],
			Location: row[4],
			URL:      row[5],
			Source:   row[6],
		},
		GeneratedAt:     generatedAt,
		Status:          model.Status(row[7]),
		ResumePath:      row[8],
		CoverLetterPath: row[9],
		OutputDir:       row[10],
		NotionPageID:    row[11],
	}
}
