package jira

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// TimeLayout is the timestamp format JIRA uses in REST responses.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

// User is a JIRA account. Server installations identify users by Name and
// Key, Cloud by AccountID.
type User struct {
	Name         string `json:"name,omitempty"`
	Key          string `json:"key,omitempty"`
	AccountID    string `json:"accountId,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// Login returns the identifier JQL accepts for this user.
func (u User) Login() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.AccountID != "":
		return u.AccountID
	default:
		return u.Key
	}
}

// Same reports whether u and other are the same account.
func (u User) Same(other User) bool {
	if u.AccountID != "" && other.AccountID != "" {
		return u.AccountID == other.AccountID
	}
	if u.Name != "" && other.Name != "" {
		return u.Name == other.Name
	}
	return u.Key != "" && u.Key == other.Key
}

// Project is a JIRA project.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Issue is a search hit. Changelog is only filled with expand=changelog.
type Issue struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Changelog Changelog `json:"changelog"`
}

// Changelog lists the history entries of an issue.
type Changelog struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Histories  []History `json:"histories"`
}

// History is one change set.
type History struct {
	ID      string `json:"id"`
	Author  User   `json:"author"`
	Created Time   `json:"created"`
}

// Time decodes JIRA timestamps, falling back to RFC 3339.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return errors.Errorf("jira: cannot parse time %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(TimeLayout) + `"`), nil
}

type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}
