package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
)

// newTestAPI は httptest サーバーをGitHub APIとして使うクライアントを作ります
func newTestAPI(t *testing.T, srv *httptest.Server) *github.Client {
	t.Helper()
	api := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parse base URL: %v", err)
	}
	api.BaseURL = base
	return api
}

func TestCreateIssueComment(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Body string `json:"body"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode comment request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 1001, "body": "posted"}`))
	}))
	defer srv.Close()

	c := NewClient(newTestAPI(t, srv), "acme", "webapp", zerolog.Nop())

	err := c.CreateIssueComment(context.Background(), 42, "**Message from @alice in #incident**")
	if err != nil {
		t.Fatalf("CreateIssueComment() error = %v", err)
	}

	if got, want := gotPath, "/repos/acme/webapp/issues/42/comments"; got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
	if got, want := gotBody.Body, "**Message from @alice in #incident**"; got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestCreateIssueComment_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer srv.Close()

	c := NewClient(newTestAPI(t, srv), "acme", "webapp", zerolog.Nop())

	if err := c.CreateIssueComment(context.Background(), 9999, "body"); err == nil {
		t.Fatal("CreateIssueComment() error = nil, want error")
	}
}

func TestSearchIssues_QueryConstruction(t *testing.T) {
	tests := []struct {
		name  string
		query string
		wantQ string
	}{
		{
			name:  "empty query lists open issues",
			query: "",
			wantQ: "repo:acme/webapp is:issue is:open",
		},
		{
			name:  "whitespace only treated as empty",
			query: "   ",
			wantQ: "repo:acme/webapp is:issue is:open",
		},
		{
			name:  "digits search by number",
			query: "42",
			wantQ: "repo:acme/webapp is:issue number:42",
		},
		{
			name:  "text searches title",
			query: "login bug",
			wantQ: "repo:acme/webapp is:issue in:title login bug",
		},
		{
			name:  "mixed digits and text is a title search",
			query: "42 regression",
			wantQ: "repo:acme/webapp is:issue in:title 42 regression",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotQ string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotQ = r.URL.Query().Get("q")
				w.Write([]byte(`{"total_count": 0, "incomplete_results": false, "items": []}`))
			}))
			defer srv.Close()

			c := NewClient(newTestAPI(t, srv), "acme", "webapp", zerolog.Nop())
			if _, err := c.SearchIssues(context.Background(), tt.query); err != nil {
				t.Fatalf("SearchIssues() error = %v", err)
			}
			if gotQ != tt.wantQ {
				t.Errorf("q = %q, want %q", gotQ, tt.wantQ)
			}
		})
	}
}

func TestSearchIssues_MapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got, want := r.URL.Query().Get("per_page"), "20"; got != want {
			t.Errorf("per_page = %q, want %q", got, want)
		}
		w.Write([]byte(`{
			"total_count": 2,
			"incomplete_results": false,
			"items": [
				{"number": 42, "title": "Fix login redirect"},
				{"number": 7, "title": "Broken deploy pipeline"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(newTestAPI(t, srv), "acme", "webapp", zerolog.Nop())

	issues, err := c.SearchIssues(context.Background(), "fix")
	if err != nil {
		t.Fatalf("SearchIssues() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2", len(issues))
	}
	if got, want := issues[0].Number, 42; got != want {
		t.Errorf("Number = %d, want %d", got, want)
	}
	if got, want := issues[0].Title, "Fix login redirect"; got != want {
		t.Errorf("Title = %q, want %q", got, want)
	}
}

func TestSearchIssues_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "rate limited"}`))
	}))
	defer srv.Close()

	c := NewClient(newTestAPI(t, srv), "acme", "webapp", zerolog.Nop())

	if _, err := c.SearchIssues(context.Background(), "x"); err == nil {
		t.Fatal("SearchIssues() error = nil, want error")
	}
}

func TestIsAllDigits(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"42", true},
		{"007", true},
		{"", false},
		{"42a", false},
		{"4 2", false},
		{"-42", false},
		{"４２", false}, // 全角数字は番号扱いしない
	}

	for _, tt := range tests {
		if got := isAllDigits(tt.in); got != tt.want {
			t.Errorf("isAllDigits(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
