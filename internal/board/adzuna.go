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

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"

// adzunaJob represents a single result in the Adzuna search response.
type adzunaJob struct {
	Title       string         `json:"title"`
	Company     adzunaName     `json:"company"`
	Location    adzunaLocation `json:"location"`
	RedirectURL string         `json:"redirect_url"`
	Description string         `json:"description"`
	Created     string         `json:"created"`
}

type adzunaName struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// adzunaResponse is the top-level Adzuna search API response.
type adzunaResponse struct {
	Results []adzunaJob `json:"results"`
}

// AdzunaBoard searches the Adzuna jobs API.
type AdzunaBoard struct {
	appID      string
	appKey     string
	country    string // e.g. "ca"
	maxAge     time.Duration
	maxResults int
	client     *http.Client
}

// NewAdzunaBoard creates a board client for the Adzuna search API.
func NewAdzunaBoard(appID, appKey, country string, maxAge time.Duration, maxResults int, client *http.Client) *AdzunaBoard {
	return &AdzunaBoard{
		appID:      appID,
		appKey:     appKey,
		country:    country,
		maxAge:     maxAge,
		maxResults: maxResults,
		client:     client,
	}
}

func (b *AdzunaBoard) Name() string { return "adzuna" }

// Search queries one page of results for the given query/location pair and
// normalizes them into JobRecords.
func (b *AdzunaBoard) Search(ctx context.Context, query, location string) ([]model.JobRecord, error) {
	maxDaysOld := int(b.maxAge.Hours()/24) + 1

	params := url.Values{}
	params.Set("app_id", b.appID)
	params.Set("app_key", b.appKey)
	params.Set("what", query)
	params.Set("where", location)
	params.Set("results_per_page", strconv.Itoa(b.maxResults))
	params.Set("max_days_old", strconv.Itoa(maxDaysOld))
	params.Set("content-type", "application/json")

	endpoint := fmt.Sprintf("%s/%s/search/1?%s", adzunaBaseURL, b.country, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("adzuna search %q: %w", query, err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna search %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("adzuna search %q", query),
		}
	}

	var azResp adzunaResponse
	if err := json.NewDecoder(resp.Body).Decode(&azResp); err != nil {
		return nil, fmt.Errorf("adzuna search %q: %w", query, err)
	}

	now := time.Now()
	jobs := make([]model.JobRecord, 0, len(azResp.Results))
	for _, aj := range azResp.Results {
		job := model.JobRecord{
			Company:     aj.Company.DisplayName,
			Title:       aj.Title,
			Location:    aj.Location.DisplayName,
			URL:         aj.RedirectURL,
			Description: aj.Description,
			Source:      "adzuna",
			ScrapedAt:   now,
		}

		if aj.Created != "" {
			t, err := time.Parse(time.RFC3339, aj.Created)
			if err == nil {
				job.PostedAt = &t
			}
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}
