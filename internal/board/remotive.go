package board

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tbanks7/applyflow/internal/model"
)

const remotiveBaseURL = "https://remotive.com/api/remote-jobs"

// remotiveJob represents a single job in the Remotive API response.
type remotiveJob struct {
	Title            string `json:"title"`
	CompanyName      string `json:"company_name"`
	RequiredLocation string `json:"candidate_required_location"`
	URL              string `json:"url"`
	Description      string `json:"description"`
	PublicationDate  string `json:"publication_date"`
}

// remotiveResponse is the top-level Remotive API response.
type remotiveResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

// RemotiveBoard searches the Remotive remote-jobs API. Remotive is
// remote-only, so the location argument is ignored and every result is
// tagged as remote.
type RemotiveBoard struct {
	maxResults int
	client     *http.Client
}

// NewRemotiveBoard creates a board client for the Remotive API.
func NewRemotiveBoard(maxResults int, client *http.Client) *RemotiveBoard {
	return &RemotiveBoard{maxResults: maxResults, client: client}
}

func (b *RemotiveBoard) Name() string { return "remotive" }

// remotive publication_date has no timezone suffix.
const remotiveTimeLayout = "2006-01-02T15:04:05"

// Search queries Remotive for the given term and normalizes the results.
func (b *RemotiveBoard) Search(ctx context.Context, query, _ string) ([]model.JobRecord, error) {
	params := url.Values{}
	params.Set("search", query)
	params.Set("limit", strconv.Itoa(b.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remotiveBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("remotive search %q: %w", query, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remotive search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("remotive search %q", query),
		}
	}

	var rmResp remotiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&rmResp); err != nil {
		return nil, fmt.Errorf("remotive search %q: %w", query, err)
	}

	now := time.Now()
	jobs := make([]model.JobRecord, 0, len(rmResp.Jobs))
	for _, rj := range rmResp.Jobs {
		location := rj.RequiredLocation
		if location == "" {
			location = "Remote"
		}

		job := model.JobRecord{
			Company:     rj.CompanyName,
			Title:       rj.Title,
			Location:    location,
			URL:         rj.URL,
			Description: rj.Description,
			Source:      "remotive",
			ScrapedAt:   now,
		}

		if rj.PublicationDate != "" {
			t, err := time.Parse(remotiveTimeLayout, rj.PublicationDate)
			if err == nil {
				job.PostedAt = &t
			}
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}
