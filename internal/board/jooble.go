package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

const joobleBaseURL = "https://jooble.org/api"

// joobleRequest is the Jooble search request body.
type joobleRequest struct {
	Keywords string `json:"keywords"`
	Location string `json:"location"`
}

// joobleJob represents a single job in the Jooble response.
type joobleJob struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	Snippet  string `json:"snippet"`
	Link     string `json:"link"`
	Company  string `json:"company"`
	Updated  string `json:"updated"`
}

// joobleResponse is the top-level Jooble API response.
type joobleResponse struct {
	TotalCount int         `json:"totalCount"`
	Jobs       []joobleJob `json:"jobs"`
}

// JoobleBoard searches the Jooble aggregator API.
type JoobleBoard struct {
	apiKey string
	client *http.Client
}

// NewJoobleBoard creates a board client for the Jooble API.
func NewJoobleBoard(apiKey string, client *http.Client) *JoobleBoard {
	return &JoobleBoard{apiKey: apiKey, client: client}
}

func (b *JoobleBoard) Name() string { return "jooble" }

// Search posts a keyword/location query to Jooble and normalizes the
// results. Jooble has no recency parameter; staleness is filtered upstream.
func (b *JoobleBoard) Search(ctx context.Context, query, location string) ([]model.JobRecord, error) {
	body, err := json.Marshal(joobleRequest{Keywords: query, Location: location})
	if err != nil {
		return nil, fmt.Errorf("jooble search %q: %w", query, err)
	}

	endpoint := fmt.Sprintf("%s/%s", joobleBaseURL, b.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("jooble search %q: %w", query, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jooble search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("jooble search %q", query),
		}
	}

	var jbResp joobleResponse
	if err := json.NewDecoder(resp.Body).Decode(&jbResp); err != nil {
		return nil, fmt.Errorf("jooble search %q: %w", query, err)
	}

	now := time.Now()
	jobs := make([]model.JobRecord, 0, len(jbResp.Jobs))
	for _, jj := range jbResp.Jobs {
		job := model.JobRecord{
			Company:     jj.Company,
			Title:       jj.Title,
			Location:    jj.Location,
			URL:         jj.Link,
			Description: jj.Snippet,
			Source:      "jooble",
			ScrapedAt:   now,
		}

		if jj.Updated != "" {
			t, err := time.Parse(time.RFC3339, jj.Updated)
			if err == nil {
				job.PostedAt = &t
			}
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}
