package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/focustense/StardewUI-sub002/packages/starml/src/backoff"
)

// ProjectFileName is the name of the project configuration file
const ProjectFileName = "starml.json"

// ProjectConfig is the contents of a starml.json file
type ProjectConfig struct {
	Root       string          `json:"root"`
	Extension  string          `json:"extension"`
	Categories []string        `json:"categories"`
	Include    []string        `json:"include"`
	Exclude    []string        `json:"exclude"`
	Backoff    *BackoffOptions `json:"backoff"`

	dir string
}

// BackoffOptions override parts of the default backoff rule
type BackoffOptions struct {
	Initial    Duration `json:"initial"`
	Max        Duration `json:"max"`
	Multiplier float64  `json:"multiplier"`
}

// Duration is a time.Duration written as a string such as "50ms"
type Duration time.Duration

// UnmarshalJSON accepts duration strings or numbers of milliseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		parsed, err := time.ParseDuration(text)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(time.Duration(ms * float64(time.Millisecond)))
	return nil
}

// LoadProjectConfig reads and parses a starml.json file
func LoadProjectConfig(configPath string) (*ProjectConfig, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}

	var config ProjectConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	config.dir = filepath.Dir(absPath)
	config.Extension = NormalizeExtension(config.Extension)
	for _, pattern := range append(append([]string{}, config.Include...), config.Exclude...) {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}

	return &config, nil
}

// FindProjectConfig loads starml.json from dir when present. It returns nil without an error
// when there is no such file.
func FindProjectConfig(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ProjectFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, nil
	}
	return LoadProjectConfig(configPath)
}

// RootDir returns the absolute directory holding the markup files
func (c *ProjectConfig) RootDir() string {
	if filepath.IsAbs(c.Root) {
		return c.Root
	}
	return filepath.Join(c.dir, c.Root)
}

// Matches reports whether the asset name is included and not excluded. With no include
// patterns every name is included.
func (c *ProjectConfig) Matches(name string) bool {
	included := len(c.Include) == 0
	for _, pattern := range c.Include {
		if ok, _ := path.Match(pattern, name); ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}
	for _, pattern := range c.Exclude {
		if ok, _ := path.Match(pattern, name); ok {
			return false
		}
	}
	return true
}

// BackoffRule returns the default rule with any configured overrides applied
func (c *ProjectConfig) BackoffRule() backoff.Rule {
	rule := backoff.DefaultRule
	if c.Backoff == nil {
		return rule
	}
	if c.Backoff.Initial > 0 {
		rule.Initial = time.Duration(c.Backoff.Initial)
	}
	if c.Backoff.Max > 0 {
		rule.Max = time.Duration(c.Backoff.Max)
	}
	if c.Backoff.Multiplier > 0 {
		rule.Multiplier = c.Backoff.Multiplier
	}
	return rule
}

// EngineOptions returns the engine options the project configures
func (c *ProjectConfig) EngineOptions() []EngineConfigOption {
	return []EngineConfigOption{WithBackoffRule(c.BackoffRule()), WithExtension(c.Extension)}
}
