package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/logtime/logtime/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, user, password string) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/", user, password, logging.Discard())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	c.retryDelay = time.Millisecond
	return c
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://jira.example.com", false},
		{"trailing slash", "https://jira.example.com/jira/", false},
		{"no scheme", "jira.example.com", true},
		{"ftp", "ftp://jira.example.com", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.url, "", "", logging.Discard())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
			if err == nil && c.BaseURL()[len(c.BaseURL())-1] == '/' {
				t.Errorf("BaseURL() = %q keeps trailing slash", c.BaseURL())
			}
		})
	}
}

func TestCurrentUserBasicAuth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/2/myself" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"name":"alice","key":"JIRAUSER1","displayName":"Alice"}`)
	}, "alice", "secret")

	u, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
	if u.Login() != "alice" || u.DisplayName != "Alice" {
		t.Errorf("user = %+v", u)
	}
}

func TestNoAuthWithoutPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); ok {
			t.Error("basic auth sent without a password")
		}
		fmt.Fprint(w, `{"name":"anonymous"}`)
	}, "alice", "")

	if _, err := c.CurrentUser(context.Background()); err != nil {
		t.Fatalf("CurrentUser() error: %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}, "alice", "wrong")

	_, err := c.CurrentUser(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("server called %d times, 401 must not be retried", calls)
	}
}

func TestServerErrorRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"id":"1","key":"ABC","name":"Alpha"},{"id":"2","key":"XYZ","name":"Omega"}]`)
	}, "", "")

	projects, err := c.Projects(context.Background())
	if err != nil {
		t.Fatalf("Projects() error: %v", err)
	}
	if len(projects) != 2 || projects[0].Key != "ABC" || projects[1].Key != "XYZ" {
		t.Errorf("projects = %+v", projects)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("server called %d times, want 2", calls)
	}
}

func TestBadRequestMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorMessages":["Field 'Responsible' does not exist"],"errors":{}}`)
	}, "", "")

	_, err := c.SearchIssues(context.Background(), "Responsible in (alice)")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "Field 'Responsible' does not exist"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not mention %q", err, want)
	}
}

func TestSearchIssuesPaginates(t *testing.T) {
	const total = 5
	var pages int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pages, 1)
		q := r.URL.Query()
		if q.Get("jql") != "project = ABC" {
			t.Errorf("jql = %q", q.Get("jql"))
		}
		if q.Get("expand") != "changelog" {
			t.Errorf("expand = %q", q.Get("expand"))
		}
		startAt, _ := strconv.Atoi(q.Get("startAt"))
		maxResults, _ := strconv.Atoi(q.Get("maxResults"))

		resp := searchResponse{StartAt: startAt, MaxResults: maxResults, Total: total}
		for i := startAt; i < total && i < startAt+maxResults; i++ {
			resp.Issues = append(resp.Issues, Issue{Key: fmt.Sprintf("ABC-%d", i+1)})
		}
		json.NewEncoder(w).Encode(resp)
	}, "", "")
	c.PageSize = 2

	issues, err := c.SearchIssues(context.Background(), "project = ABC", "changelog")
	if err != nil {
		t.Fatalf("SearchIssues() error: %v", err)
	}
	if len(issues) != total {
		t.Fatalf("got %d issues, want %d", len(issues), total)
	}
	if issues[4].Key != "ABC-5" {
		t.Errorf("last issue = %s", issues[4].Key)
	}
	if atomic.LoadInt32(&pages) != 3 {
		t.Errorf("fetched %d pages, want 3", pages)
	}
}

func TestHistoryDecoding(t *testing.T) {
	body := `{
		"key": "ABC-1",
		"changelog": {
			"startAt": 0, "maxResults": 2, "total": 2,
			"histories": [
				{"id": "10", "author": {"name": "alice"}, "created": "2024-03-01T09:15:00.000+0100"},
				{"id": "11", "author": {"accountId": "5b10a2844c20165700ede21g"}, "created": "2024-03-02T18:00:00Z"}
			]
		}
	}`

	var issue Issue
	if err := json.Unmarshal([]byte(body), &issue); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	h := issue.Changelog.Histories
	if len(h) != 2 {
		t.Fatalf("got %d histories", len(h))
	}
	want := time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)
	if !h[0].Created.Equal(want) {
		t.Errorf("created = %v, want %v", h[0].Created, want)
	}
	if h[1].Author.Login() != "5b10a2844c20165700ede21g" {
		t.Errorf("author = %+v", h[1].Author)
	}
}

func TestTimeInvalid(t *testing.T) {
	var tm Time
	if err := json.Unmarshal([]byte(`"yesterday"`), &tm); err == nil {
		t.Error("expected error for unparsable time")
	}
}

func TestUserSame(t *testing.T) {
	tests := []struct {
		a, b User
		want bool
	}{
		{User{Name: "alice"}, User{Name: "alice", Key: "k1"}, true},
		{User{Name: "alice"}, User{Name: "bob"}, false},
		{User{AccountID: "a1", Name: "alice"}, User{AccountID: "a2", Name: "alice"}, false},
		{User{AccountID: "a1"}, User{AccountID: "a1"}, true},
		{User{Key: "k1"}, User{Key: "k1"}, true},
		{User{}, User{}, false},
	}

	for _, tt := range tests {
		if got := tt.a.Same(tt.b); got != tt.want {
			t.Errorf("%+v.Same(%+v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
