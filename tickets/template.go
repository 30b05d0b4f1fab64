package tickets

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/cbroglie/mustache"
	"github.com/pkg/errors"

	"github.com/logtime/logtime/config"
)

// TemplateFileName is created next to the config file on first use.
const TemplateFileName = "jira-template.tpl"

// DefaultTemplate lists one browse link per issue. It is a mustache
// template, the format existing jira-template.tpl files are written in.
const DefaultTemplate = "Work in {{date}}\n\n{{#issues}}\n{{config.jira_serverURL}}/browse/{{.}}\n{{/issues}}"

// goActions matches actions only Go's text/template understands.
var goActions = regexp.MustCompile(`\{\{-?\s*(\.[A-Za-z_]|\$|(range|if|with|end|else|join|upper|lower)\b)`)

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// TemplatePath resolves jira.template; empty or "default" selects the file
// next to the config.
func TemplatePath(cfg *config.Config) string {
	path := cfg.GetString(config.KeyJiraTemplate, "")
	if path == "" || path == "default" {
		return filepath.Join(cfg.Dir(), TemplateFileName)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return path
}

// loadTemplate returns the template text. The default file is written when
// missing; an unreadable template falls back to DefaultTemplate.
func (r *Reporter) loadTemplate() string {
	path := TemplatePath(r.cfg)
	isDefault := path == filepath.Join(r.cfg.Dir(), TemplateFileName)

	if isDefault {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(DefaultTemplate), 0644); err != nil {
				r.log.Warningf("cannot write default template to %s: %v", path, err)
			}
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		r.log.Output("issuesChecker", "Cannot read JIRA template from %s", path)
		return DefaultTemplate
	}

	r.log.Output("issuesChecker", "JIRA template loaded from %s", path)
	return string(raw)
}

// Render executes text against data and writes the result to w. Mustache is
// the default syntax; templates using Go actions such as {{.date}} or
// {{range .issues}} are run through text/template.
func Render(w io.Writer, text string, data interface{}) error {
	if IsGoTemplate(text) {
		return renderGo(w, text, data)
	}

	tpl, err := mustache.ParseString(text)
	if err != nil {
		return errors.Wrap(err, "parse JIRA template")
	}
	if err := tpl.FRender(w, data); err != nil {
		return errors.Wrap(err, "render JIRA template")
	}
	return nil
}

// IsGoTemplate reports whether text uses text/template actions.
func IsGoTemplate(text string) bool {
	return goActions.MatchString(text)
}

func renderGo(w io.Writer, text string, data interface{}) error {
	tpl, err := template.New("jira").Funcs(templateFuncs).Parse(text)
	if err != nil {
		return errors.Wrap(err, "parse JIRA template")
	}
	if err := tpl.Execute(w, data); err != nil {
		return errors.Wrap(err, "render JIRA template")
	}
	return nil
}
