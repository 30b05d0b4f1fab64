// Package jira is a small client for the JIRA REST API v2, covering what the
// ticket report needs: the current user, visible projects and JQL search
// with changelog expansion.
//
// Example usage:
//
//	client, err := jira.NewClient("https://jira.example.com", "alice", "secret", log)
//	if err != nil {
//		log.Fatal(err)
//	}
//	me, err := client.CurrentUser(ctx)
//	issues, err := client.SearchIssues(ctx, `assignee = currentUser()`, "changelog")
package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/internal/version"
)

// API configuration constants
const (
	maxAPIRetries  = 3
	baseRetryDelay = 1 * time.Second
	apiTimeout     = 30 * time.Second

	// DefaultPageSize is the maxResults sent with every search page
	DefaultPageSize = 50
)

// ErrUnauthorized is returned for 401 and 403 responses.
var ErrUnauthorized = errors.New("jira: authentication failed")

// Client talks to one JIRA server.
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
	retryDelay time.Duration
	log        *logging.Logger

	PageSize  int
	DebugMode bool
}

// NewClient creates a client for serverURL. Basic authentication is used
// only when both user and password are set.
func NewClient(serverURL, user, password string, log *logging.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid JIRA server URL %q", serverURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Errorf("invalid JIRA server URL %q: must be an absolute http(s) URL", serverURL)
	}

	return &Client{
		baseURL:  strings.TrimRight(u.String(), "/"),
		user:     user,
		password: password,
		httpClient: &http.Client{
			Timeout: apiTimeout,
		},
		retryDelay: baseRetryDelay,
		log:        log,
		PageSize:   DefaultPageSize,
		DebugMode:  log.DebugMode,
	}, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetHTTPClient replaces the HTTP client, e.g. to configure a proxy.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.DebugMode {
		c.log.Debugf("jira: "+format, args...)
	}
}

// CurrentUser returns the authenticated user (anonymous servers answer 401).
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/rest/api/2/myself", nil, &u); err != nil {
		return nil, errors.Wrap(err, "get current user")
	}
	return &u, nil
}

// Projects lists every project visible to the user.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, "/rest/api/2/project", nil, &projects); err != nil {
		return nil, errors.Wrap(err, "list projects")
	}
	return projects, nil
}

// SearchIssues runs jql and follows pagination until every matching issue
// has been fetched. expand is passed through, e.g. "changelog".
func (c *Client) SearchIssues(ctx context.Context, jql string, expand ...string) ([]Issue, error) {
	pageSize := c.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var issues []Issue
	startAt := 0
	for {
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("startAt", strconv.Itoa(startAt))
		q.Set("maxResults", strconv.Itoa(pageSize))
		if len(expand) > 0 {
			q.Set("expand", strings.Join(expand, ","))
		}

		var page searchResponse
		if err := c.get(ctx, "/rest/api/2/search", q, &page); err != nil {
			return nil, errors.Wrapf(err, "search issues (startAt=%d)", startAt)
		}

		issues = append(issues, page.Issues...)
		c.debugLog("search page startAt=%d got %d of %d", startAt, len(page.Issues), page.Total)

		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			return issues, nil
		}
	}
}

// get performs a GET with retries on network and server errors.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	retryDelay := c.retryDelay

	for attempt := 1; attempt <= maxAPIRetries; attempt++ {
		if attempt > 1 {
			c.debugLog("retry attempt %d/%d after %v", attempt, maxAPIRetries, retryDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "logtime/"+version.Version)
		if c.user != "" && c.password != "" {
			req.SetBasicAuth(c.user, c.password)
		}

		c.debugLog("GET %s", endpoint)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.Wrap(err, "request failed")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = errors.Wrap(err, "read response")
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if err := json.Unmarshal(body, out); err != nil {
				return errors.Wrapf(err, "decode %s response", path)
			}
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return errors.Wrapf(ErrUnauthorized, "%s returned %d", path, resp.StatusCode)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return errors.Errorf("%s returned %d: %s", path, resp.StatusCode, apiErrorMessage(body))
		}

		lastErr = errors.Errorf("%s returned %d: %s", path, resp.StatusCode, apiErrorMessage(body))
	}

	return errors.Wrapf(lastErr, "failed after %d attempts", maxAPIRetries)
}

// apiErrorMessage extracts JIRA's errorMessages, or returns the raw body.
func apiErrorMessage(body []byte) string {
	var e struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		msgs := append([]string{}, e.ErrorMessages...)
		for field, msg := range e.Errors {
			msgs = append(msgs, field+": "+msg)
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(string(body))
}
