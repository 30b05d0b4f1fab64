// Package config provides the flat, dotted-key configuration store used by
// logtime. Keys look like "inactivity.idletime" or "jira.serverURL".
//
// The backing file may be YAML, TOML or JSON (picked by extension). Nested
// tables are flattened into dotted keys, so both of these are equivalent:
//
//	inactivity.idletime: 600
//
//	inactivity:
//	  idletime: 600
//
// A missing file is created with the default values on first load.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Well-known keys
const (
	KeyIdleTime       = "inactivity.idletime"
	KeyIdleSource     = "inactivity.source"
	KeyJiraServerURL  = "jira.serverURL"
	KeyJiraUser       = "jira.user"
	KeyJiraPassword   = "jira.password"
	KeyJiraProjects   = "jira.projects"
	KeyJiraJQL        = "jira.projects.jql"
	KeyJiraDateFormat = "jira.dateFormat"
	KeyJiraTemplate   = "jira.template"
	KeyWebhookURL     = "hooks.webhookURL"
	KeyPostgres       = "hooks.postgres"
)

// Default values
const (
	DefaultIdleTime      = 300
	DefaultIdleSource    = "x11"
	DefaultJiraServerURL = "https://example.org/jira"
	DefaultJiraJQL       = "updated >= -1d AND (creator in ({user}) OR assignee in ({user}) OR Responsible in ({user})) AND {projects} ORDER BY updated DESC"
	DefaultDateFormat    = "02.01.2006"

	dirName  = ".logtime"
	fileName = "config.yaml"

	// legacyFileName is the JSON file earlier logtime releases wrote
	legacyFileName = "config.json"
)

// Defaults returns a fresh map with every well-known key at its default.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		KeyIdleTime:       DefaultIdleTime,
		KeyIdleSource:     DefaultIdleSource,
		KeyJiraServerURL:  DefaultJiraServerURL,
		KeyJiraUser:       "",
		KeyJiraPassword:   "",
		KeyJiraProjects:   []interface{}{},
		KeyJiraJQL:        DefaultJiraJQL,
		KeyJiraDateFormat: DefaultDateFormat,
		KeyJiraTemplate:   "",
		KeyWebhookURL:     "",
		KeyPostgres:       "",
	}
}

// Config is a file-backed key/value store. It is safe for concurrent use.
type Config struct {
	mu     sync.RWMutex
	path   string
	values map[string]interface{}
}

// DefaultPath returns ~/.logtime/config.json when that file exists and
// ~/.logtime/config.yaml otherwise.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}

	legacy := filepath.Join(home, dirName, legacyFileName)
	if _, err := os.Stat(legacy); err == nil {
		return legacy, nil
	}
	return filepath.Join(home, dirName, fileName), nil
}

// New returns an in-memory config holding the defaults. Nothing is read or
// written until Save is called.
func New(path string) *Config {
	return &Config{path: path, values: Defaults()}
}

// Load reads the config file at path. If the file does not exist it is
// created with the defaults.
func Load(path string) (*Config, error) {
	cfg := New(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Save(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, errors.Wrap(err, "read config file")
	}

	parsed, err := decode(filepath.Ext(path), raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}

	flatten("", parsed, cfg.values)
	return cfg, nil
}

// Path returns the file backing this config.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory holding the config file. Auxiliary files such as
// the JIRA template live there too.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// GetKey returns the raw value stored under name, or def when unset.
func (c *Config) GetKey(name string, def interface{}) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.values[name]; ok && v != nil {
		return v
	}
	return def
}

// GetString returns name as a string. Non-string values are formatted.
func (c *Config) GetString(name, def string) string {
	switch v := c.GetKey(name, def).(type) {
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// GetInt returns name as an int. With strict set, only numeric values are
// accepted and anything else yields def; without it, numeric strings are
// parsed too.
func (c *Config) GetInt(name string, def int, strict bool) int {
	switch v := c.GetKey(name, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		if v != math.Trunc(v) {
			return def
		}
		return int(v)
	case string:
		if strict {
			return def
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// GetStringSlice returns name as a list of strings. A single string value is
// treated as a comma-separated list.
func (c *Config) GetStringSlice(name string) []string {
	var out []string
	switch v := c.GetKey(name, nil).(type) {
	case []string:
		out = append(out, v...)
	case []interface{}:
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
	case string:
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// SetKey stores value under name in memory. Call Save to persist it.
func (c *Config) SetKey(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Memory returns a copy of all keys and values.
func (c *Config) Memory() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// TemplateValues returns all keys with dots replaced by underscores, so that
// templates can reach them as plain identifiers (jira_serverURL).
func (c *Config) TemplateValues() map[string]interface{} {
	mem := c.Memory()
	out := make(map[string]interface{}, len(mem))
	for k, v := range mem {
		out[strings.ReplaceAll(k, ".", "_")] = v
	}
	return out
}

// Keys returns all keys in sorted order.
func (c *Config) Keys() []string {
	mem := c.Memory()
	keys := make([]string, 0, len(mem))
	for k := range mem {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the config back to its file, creating the directory if needed.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no file path")
	}

	data, err := encode(filepath.Ext(c.path), c.Memory())
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return errors.Wrap(err, "create config directory")
	}

	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return errors.Wrap(err, "write config file")
	}
	return nil
}

func decode(ext string, raw []byte) (map[string]interface{}, error) {
	parsed := make(map[string]interface{})

	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(raw), &parsed); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, err
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}

	return parsed, nil
}

func encode(ext string, values map[string]interface{}) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(values); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case ".json":
		return json.MarshalIndent(values, "", "    ")
	case ".yaml", ".yml", "":
		return yaml.Marshal(values)
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}
}

// flatten copies src into dst, joining nested map keys with dots.
func flatten(prefix string, src map[string]interface{}, dst map[string]interface{}) {
	for k, v := range src {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, dst)
			continue
		}
		dst[key] = v
	}
}
