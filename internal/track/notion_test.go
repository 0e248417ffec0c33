package track

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	notion "github.com/dstotijn/go-notion"

	"github.com/tbanks7/applyflow/internal/model"
)

// rewriteTransport redirects all requests to the test server so the real
// Notion host is never touched.
type rewriteTransport struct {
	host string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.host
	return http.DefaultTransport.RoundTrip(req)
}

func testTracker(srv *httptest.Server) *NotionTracker {
	client := &http.Client{Transport: rewriteTransport{host: strings.TrimPrefix(srv.URL, "http://")}}
	return NewNotionTracker("secret-token", "db-1", discardLogger(), notion.WithHTTPClient(client))
}

const emptyQueryResponse = `{"object":"list","results":[],"next_cursor":null,"has_more":false}`

func pageJSON(id, status string) string {
	props := `{}`
	if status != "" {
		props = `{"Status":{"id":"st","type":"select","select":{"id":"s1","name":"` + status + `","color":"green"}}}`
	}
	return `{
		"object": "page",
		"id": "` + id + `",
		"created_time": "2026-08-01T09:00:00.000Z",
		"last_edited_time": "2026-08-01T09:00:00.000Z",
		"parent": {"type": "database_id", "database_id": "db-1"},
		"archived": false,
		"url": "https://www.notion.so/` + id + `",
		"properties": ` + props + `
	}`
}

func TestNotionCreateNewPage(t *testing.T) {
	var createBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/databases/db-1/query":
			io.WriteString(w, emptyQueryResponse)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/pages":
			json.NewDecoder(r.Body).Decode(&createBody)
			io.WriteString(w, pageJSON("page-42", ""))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	rec := sampleRecord("Initech", "Backend Engineer")
	id, err := testTracker(srv).Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "page-42" {
		t.Errorf("page id = %q, want page-42", id)
	}

	props, ok := createBody["properties"].(map[string]any)
	if !ok {
		t.Fatal("create request has no properties")
	}
	for _, want := range []string{"Job Title", "Company", "Status", "Job URL", "Platform"} {
		if _, ok := props[want]; !ok {
			t.Errorf("create request missing property %q", want)
		}
	}
}

func TestNotionCreateReusesExistingPage(t *testing.T) {
	createCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/databases/db-1/query":
			io.WriteString(w, `{"object":"list","results":[`+pageJSON("page-7", "Ready to Apply")+`],"next_cursor":null,"has_more":false}`)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/pages":
			createCalls++
			io.WriteString(w, pageJSON("page-new", ""))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	rec := sampleRecord("Initech", "Backend Engineer")
	id, err := testTracker(srv).Create(context.Background(), rec)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != "page-7" {
		t.Errorf("page id = %q, want the existing page-7", id)
	}
	if createCalls != 0 {
		t.Errorf("CreatePage called %d times for an existing job", createCalls)
	}
}

func TestNotionUpdateStatusSkipsApplied(t *testing.T) {
	patches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/pages/page-9":
			io.WriteString(w, pageJSON("page-9", "Applied"))
		case r.Method == http.MethodPatch && r.URL.Path == "/v1/pages/page-9":
			patches++
			io.WriteString(w, pageJSON("page-9", "Applied"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	err := testTracker(srv).UpdateStatus(context.Background(), "page-9", model.StatusApplied)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if patches != 0 {
		t.Errorf("page already Applied was patched %d times", patches)
	}
}

func TestNotionUpdateStatusMovesForward(t *testing.T) {
	patches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/pages/page-9":
			io.WriteString(w, pageJSON("page-9", "Ready to Apply"))
		case r.Method == http.MethodPatch && r.URL.Path == "/v1/pages/page-9":
			patches++
			io.WriteString(w, pageJSON("page-9", "Applied"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	err := testTracker(srv).UpdateStatus(context.Background(), "page-9", model.StatusApplied)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if patches != 1 {
		t.Errorf("patch calls = %d, want 1", patches)
	}
}
