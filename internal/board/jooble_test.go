package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJoobleSearch_Success(t *testing.T) {
	payload := `{
		"totalCount": 1,
		"jobs": [
			{
				"title": "Java Engineer",
				"location": "Vancouver, BC",
				"snippet": "Spring Boot services. 2-4 years.",
				"link": "https://jooble.org/jdp/111",
				"company": "Gamma Ltd",
				"updated": "2026-08-28T09:00:00Z"
			}
		]
	}`

	var gotMethod, gotPath string
	var gotBody joobleRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	b := NewJoobleBoard("secret-key", testClient(srv))

	jobs, err := b.Search(context.Background(), "java engineer", "Vancouver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Company != "Gamma Ltd" || jobs[0].Source != "jooble" {
		t.Errorf("unexpected job: %+v", jobs[0])
	}
	if jobs[0].Description != "Spring Boot services. 2-4 years." {
		t.Errorf("description = %q", jobs[0].Description)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/api/secret-key" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.Keywords != "java engineer" || gotBody.Location != "Vancouver" {
		t.Errorf("request body = %+v", gotBody)
	}
}
