package track

import (
	"context"
	"fmt"
	"log/slog"

	notion "github.com/dstotijn/go-notion"

	"github.com/tbanks7/applyflow/internal/model"
)

// NotionTracker mirrors application records into a Notion database. It is
// the convenience copy; the CSV log stays authoritative, so every method
// here may fail without losing data.
type NotionTracker struct {
	api        *notion.Client
	databaseID string
	logger     *slog.Logger
}

func NewNotionTracker(token, databaseID string, logger *slog.Logger, opts ...notion.ClientOption) *NotionTracker {
	return &NotionTracker{
		api:        notion.NewClient(token, opts...),
		databaseID: databaseID,
		logger:     logger,
	}
}

// Ping verifies the database is reachable with the configured token.
func (t *NotionTracker) Ping(ctx context.Context) error {
	_, err := t.api.QueryDatabase(ctx, t.databaseID, &notion.DatabaseQuery{PageSize: 1})
	return err
}

// Create adds one row for the record and returns the new page ID. If a page
// with the same job URL already exists the existing ID is returned instead;
// that happens when a previous run wrote the page but crashed before the
// local commit.
func (t *NotionTracker) Create(ctx context.Context, rec model.ApplicationRecord) (string, error) {
	if existing, err := t.findByURL(ctx, rec.Job.URL); err == nil && existing != "" {
		t.logger.Warn("notion page already exists for job, reusing",
			"url", rec.Job.URL, "page_id", existing)
		return existing, nil
	}

	props := notion.DatabasePageProperties{
		"Job Title": {Title: richText(rec.Job.Title)},
		"Company":   {RichText: richText(rec.Job.Company)},
		"Status":    {Select: &notion.SelectOptions{Name: string(rec.Status)}},
	}
	if rec.Job.Location != "" {
		props["Location"] = notion.DatabasePageProperty{RichText: richText(rec.Job.Location)}
	}
	if rec.Job.URL != "" {
		props["Job URL"] = notion.DatabasePageProperty{URL: &rec.Job.URL}
	}
	if rec.Job.Source != "" {
		props["Platform"] = notion.DatabasePageProperty{Select: &notion.SelectOptions{Name: rec.Job.Source}}
	}
	if rec.ResumePath != "" {
		props["Resume Path"] = notion.DatabasePageProperty{RichText: richText(rec.ResumePath)}
	}
	if rec.CoverLetterPath != "" {
		props["Cover Letter Path"] = notion.DatabasePageProperty{RichText: richText(rec.CoverLetterPath)}
	}
	if rec.Job.PostedAt != nil {
		props["Date Posted"] = notion.DatabasePageProperty{
			Date: &notion.Date{Start: notion.NewDateTime(*rec.Job.PostedAt, false)},
		}
	}

	page, err := t.api.CreatePage(ctx, notion.CreatePageParams{
		ParentType:             notion.ParentTypeDatabase,
		ParentID:               t.databaseID,
		DatabasePageProperties: &props,
	})
	if err != nil {
		return "", fmt.Errorf("create page: %w", err)
	}
	return page.ID, nil
}

// UpdateStatus moves a page's Status select forward. Pages already at
// StatusApplied are left alone so a manual update in Notion wins.
func (t *NotionTracker) UpdateStatus(ctx context.Context, pageID string, status model.Status) error {
	page, err := t.api.FindPageByID(ctx, pageID)
	if err != nil {
		return fmt.Errorf("find page %s: %w", pageID, err)
	}
	if props, ok := page.Properties.(notion.DatabasePageProperties); ok {
		if cur, ok := props["Status"]; ok && cur.Select != nil &&
			cur.Select.Name == string(model.StatusApplied) {
			return nil
		}
	}

	_, err = t.api.UpdatePage(ctx, pageID, notion.UpdatePageParams{
		DatabasePageProperties: notion.DatabasePageProperties{
			"Status": {Select: &notion.SelectOptions{Name: string(status)}},
		},
	})
	if err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

// findByURL looks up an existing page by its Job URL property. Errors and
// misses both return "", the caller falls through to Create.
func (t *NotionTracker) findByURL(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", nil
	}
	res, err := t.api.QueryDatabase(ctx, t.databaseID, &notion.DatabaseQuery{
		Filter: &notion.DatabaseQueryFilter{
			Property: "Job URL",
			DatabaseQueryPropertyFilter: notion.DatabaseQueryPropertyFilter{
				URL: &notion.TextPropertyFilter{Equals: url},
			},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", err
	}
	if len(res.Results) == 0 {
		return "", nil
	}
	return res.Results[0].ID, nil
}

func richText(s string) []notion.RichText {
	if s == "" {
		return nil
	}
	return []notion.RichText{{Text: &notion.Text{Content: s}}}
}
