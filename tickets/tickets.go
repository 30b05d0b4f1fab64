// Package tickets builds the "what did I work on" report: JIRA issues the
// current user changed on a given day, rendered through a text template.
package tickets

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/logtime/logtime/config"
	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/jira"
)

// ErrConfigurationIncomplete means jira.serverURL still holds the
// placeholder written on first run.
var ErrConfigurationIncomplete = errors.New("JIRA server is not configured")

// Query describes one report.
type Query struct {
	Date     time.Time
	Projects []string
	JQL      string
}

// Result is what gets rendered.
type Result struct {
	Date   time.Time
	Issues []string
}

// API is the part of the JIRA client the reporter uses.
type API interface {
	CurrentUser(ctx context.Context) (*jira.User, error)
	Projects(ctx context.Context) ([]jira.Project, error)
	SearchIssues(ctx context.Context, jql string, expand ...string) ([]jira.Issue, error)
}

// APIFactory connects to a JIRA server.
type APIFactory func(serverURL, user, password string, log *logging.Logger) (API, error)

// DialJira is the default APIFactory.
func DialJira(serverURL, user, password string, log *logging.Logger) (API, error) {
	c, err := jira.NewClient(serverURL, user, password, log)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Reporter produces ticket reports from the configured server.
type Reporter struct {
	cfg  *config.Config
	log  *logging.Logger
	dial APIFactory
	now  func() time.Time
}

// NewReporter creates a reporter. dial may be nil to use DialJira.
func NewReporter(cfg *config.Config, dial APIFactory, log *logging.Logger) *Reporter {
	if dial == nil {
		dial = DialJira
	}
	return &Reporter{
		cfg:  cfg,
		log:  log,
		dial: dial,
		now:  time.Now,
	}
}

// Report renders the issues touched on date ("today", "" or one of the
// formats ParseDate accepts) to w.
func (r *Reporter) Report(ctx context.Context, w io.Writer, date string) error {
	day, err := ParseDate(date, r.now())
	if err != nil {
		return err
	}

	tpl := r.loadTemplate()

	serverURL := r.cfg.GetString(config.KeyJiraServerURL, config.DefaultJiraServerURL)
	if serverURL == "" || serverURL == config.DefaultJiraServerURL {
		return errors.Wrapf(ErrConfigurationIncomplete, "please update %s with server, user name and password (if required)", r.cfg.Path())
	}

	user := r.cfg.GetString(config.KeyJiraUser, "")
	password := r.cfg.GetString(config.KeyJiraPassword, "")
	if user != "" && password != "" {
		r.log.Output("issuesChecker", "Using authorization for %q user", user)
	}

	api, err := r.dial(serverURL, user, password, r.log)
	if err != nil {
		return err
	}

	me, err := api.CurrentUser(ctx)
	if err != nil {
		return err
	}

	projects, err := r.projects(ctx, api)
	if err != nil {
		return err
	}

	q := Query{
		Date:     day,
		Projects: projects,
		JQL:      BuildJQL(r.cfg.GetString(config.KeyJiraJQL, config.DefaultJiraJQL), projects, me.Login()),
	}
	r.log.Output("issuesChecker", "Executing JQL query: %s", q.JQL)

	issues, err := api.SearchIssues(ctx, q.JQL, "changelog")
	if err != nil {
		return err
	}
	r.log.Output("issuesChecker", "Found %d issues", len(issues))

	res := Result{Date: day, Issues: Match(issues, *me, day)}
	for _, key := range res.Issues {
		r.log.Output("issuesChecker", "Found matching issue: %s", key)
	}

	return Render(w, tpl, r.templateData(res))
}

// projects returns the configured project keys. When none are configured
// every visible project is used and remembered in the config file.
func (r *Reporter) projects(ctx context.Context, api API) ([]string, error) {
	if keys := r.cfg.GetStringSlice(config.KeyJiraProjects); len(keys) > 0 {
		return keys, nil
	}

	projects, err := api.Projects(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(projects))
	for _, p := range projects {
		keys = append(keys, p.Key)
	}

	r.cfg.SetKey(config.KeyJiraProjects, keys)
	if err := r.cfg.Save(); err != nil {
		r.log.Warningf("cannot save project list to %s: %v", r.cfg.Path(), err)
	}
	return keys, nil
}

func (r *Reporter) templateData(res Result) map[string]interface{} {
	layout := DateLayout(r.cfg.GetString(config.KeyJiraDateFormat, config.DefaultDateFormat))
	return map[string]interface{}{
		"date":   res.Date.Format(layout),
		"config": r.cfg.TemplateValues(),
		"issues": res.Issues,
	}
}

// Match returns the keys of issues with at least one changelog entry made
// by user on the local calendar day of date, in search order.
func Match(issues []jira.Issue, user jira.User, date time.Time) []string {
	y, m, d := date.Date()
	loc := date.Location()

	keys := []string{}
	for _, issue := range issues {
		for _, h := range issue.Changelog.Histories {
			hy, hm, hd := h.Created.In(loc).Date()
			if hy == y && hm == m && hd == d && h.Author.Same(user) {
				keys = append(keys, issue.Key)
				break
			}
		}
	}
	return keys
}

// ProjectsToJQL turns project keys into a parenthesized OR clause, e.g.
// ( project = "ABC" OR project = "XYZ" ).
func ProjectsToJQL(projects []string) string {
	var b strings.Builder
	b.WriteString("(")
	for _, p := range projects {
		b.WriteString(`OR project = "` + p + `" `)
	}
	b.WriteString(")")
	return strings.Replace(b.String(), "(OR", "(", 1)
}

// BuildJQL substitutes {projects} and {user} in jql.
func BuildJQL(jql string, projects []string, user string) string {
	jql = strings.ReplaceAll(jql, "{projects}", ProjectsToJQL(projects))
	return strings.ReplaceAll(jql, "{user}", user)
}
