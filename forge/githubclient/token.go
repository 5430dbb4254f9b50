package githubclient

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// hubConfig mirrors the handful of fields github.com/github/hub's config
// format carries per-host; spr and jaspr both piggyback on it so a user who
// already authenticated hub/gh never has to configure a second token.
type hubConfig map[string][]struct {
	User  string `yaml:"user"`
	Token string `yaml:"oauth_token"`
}

// FindToken looks for a GitHub API token for host, in order: the
// GITHUB_TOKEN environment variable, then ~/.config/hub (the format shared
// by the GitHub "hub" and "gh" CLIs).
func FindToken(host string) string {
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" {
		return tok
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(home, ".config", "hub"))
	if err != nil {
		return ""
	}

	var cfg hubConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	entries, ok := cfg[host]
	if !ok || len(entries) == 0 {
		return ""
	}
	return entries[0].Token
}
