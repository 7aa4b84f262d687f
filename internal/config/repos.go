package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RepoConfig describes one managed repository.
type RepoConfig struct {
	Name            string            `yaml:"name"`
	URL             string            `yaml:"url"`
	LocalPath       string            `yaml:"local_path,omitempty"`
	ADORepoID       string            `yaml:"ado_repo_id,omitempty"`
	BuildDefinition string            `yaml:"build_definition,omitempty"`
	Enabled         *bool             `yaml:"enabled,omitempty"` // nil means enabled
	BuildCommand    string            `yaml:"build_command,omitempty"`
	EnvironmentVars map[string]string `yaml:"environment_vars,omitempty"`
}

// IsEnabled reports whether the repo is active; repos are enabled unless
// explicitly switched off.
func (r RepoConfig) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// RepoRegistry is the parsed repositories.yaml.
type RepoRegistry struct {
	Repositories    []RepoConfig        `yaml:"repositories"`
	ComponentGroups map[string][]string `yaml:"component_groups,omitempty"`
}

// LoadRepos reads and parses a repositories.yaml file.
func LoadRepos(path string) (*RepoRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read repos file: %w", err)
	}

	var reg RepoRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse repos file: %w", err)
	}
	return &reg, nil
}

// Validate checks the registry for duplicate names, bad URLs, and
// component groups referencing unknown repositories.
func (reg *RepoRegistry) Validate() error {
	seen := map[string]bool{}
	for _, r := range reg.Repositories {
		if r.Name == "" {
			return fmt.Errorf("repository with empty name")
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate repository name %q", r.Name)
		}
		seen[r.Name] = true

		if r.URL == "" && r.LocalPath == "" {
			return fmt.Errorf("repository %q: needs url or local_path", r.Name)
		}
		if r.URL != "" && !strings.HasPrefix(r.URL, "https://") && !strings.HasPrefix(r.URL, "git@") &&
			!strings.HasPrefix(r.URL, "ssh://") && !strings.HasPrefix(r.URL, "http://") {
			return fmt.Errorf("repository %q: unsupported url scheme %q", r.Name, r.URL)
		}
	}

	for group, members := range reg.ComponentGroups {
		for _, m := range members {
			if !seen[m] {
				return fmt.Errorf("component group %q references unknown repository %q", group, m)
			}
		}
	}
	return nil
}

// Enabled returns the active repositories.
func (reg *RepoRegistry) Enabled() []RepoConfig {
	var out []RepoConfig
	for _, r := range reg.Repositories {
		if r.IsEnabled() {
			out = append(out, r)
		}
	}
	return out
}

// Get returns the named repository config.
func (reg *RepoRegistry) Get(name string) (RepoConfig, bool) {
	for _, r := range reg.Repositories {
		if r.Name == name {
			return r, true
		}
	}
	return RepoConfig{}, false
}

// ResolveComponents expands component group names into repository names;
// names that are not groups pass through unchanged.
func (reg *RepoRegistry) ResolveComponents(components []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range components {
		members, ok := reg.ComponentGroups[c]
		if !ok {
			members = []string{c}
		}
		for _, m := range members {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}
