// Package config is the ambient configuration layer: per-repo settings
// committed alongside the code, per-user preferences, and a small
// rake-managed internal-state cache. Grounded on cmd/spr/main.go's use of
// ejoffe/rake + gopkg.in/yaml.v3 and on config_test.go's EmptyConfig /
// DefaultConfig shape, extended with the ref-prefix, don't-push and
// auto-merge knobs the new spec requires.
package config

// RepoConfig is settings checked into the repository (spr.yaml equivalent)
// so every contributor shares them.
type RepoConfig struct {
	GitHubRepoOwner string `yaml:"githubRepoOwner"`
	GitHubRepoName  string `yaml:"githubRepoName"`
	GitHubRemote    string `yaml:"githubRemote" default:"origin"`
	GitHubBranch    string `yaml:"githubBranch" default:"main"`
	GitHubHost      string `yaml:"githubHost" default:"github.com"`

	RequireChecks   bool   `yaml:"requireChecks" default:"true"`
	RequireApproval bool   `yaml:"requireApproval" default:"true"`
	MergeMethod     string `yaml:"mergeMethod" default:"rebase"`

	PRTemplatePath        string `yaml:"prTemplatePath"`
	PRTemplateInsertStart string `yaml:"prTemplateInsertStart"`
	PRTemplateInsertEnd   string `yaml:"prTemplateInsertEnd"`
	ShowPrTitlesInStack   bool   `yaml:"showPrTitlesInStack" default:"false"`

	// BranchNamePrefix/NamedStackPrefix are the remote-ref prefixes fed to
	// internal/refs. jaspr/jaspr-named match the worked examples in
	// spec.md §3.
	BranchNamePrefix string `yaml:"branchNamePrefix" default:"jaspr"`
	NamedStackPrefix string `yaml:"namedStackPrefix" default:"jaspr-named"`

	// DontPushRegex matches subjects of commits (and everything above them)
	// excluded from push (spec §4.6 step 3). Only internal/reconcile applies
	// it; merge and auto-merge operate on the whole stack unfiltered.
	DontPushRegex string `yaml:"dontPushRegex" default:"^(dont-push|wip|draft)\\b.*"`

	// MergeCheck is an optional external command, e.g. a local test suite.
	// It is loaded from config only; no jaspr subcommand runs it.
	MergeCheck string `yaml:"mergeCheck"`

	// AutoMergePollingIntervalSeconds/AutoMergeMaxAttempts bound the
	// auto-merge loop (spec §4.8).
	AutoMergePollingIntervalSeconds int `yaml:"autoMergePollingIntervalSeconds" default:"10"`
	AutoMergeMaxAttempts            int `yaml:"autoMergeMaxAttempts" default:"360"`
}

// UserConfig is local-only preferences, never committed.
type UserConfig struct {
	LogGitCommands bool `yaml:"logGitCommands" default:"false"`
	LogGitHubCalls bool `yaml:"logGitHubCalls" default:"false"`
}

// InternalState is a small rake-managed cache persisted under the user cache
// directory (config_parser.InternalConfigFilePath), distinct from the advisory tip-display cache in internal/tipstate
// (which is a throwaway temp-dir JSON file, not schema'd repo state).
type InternalState struct {
	MergeCheckCommit      map[string]string         `yaml:"mergeCheckCommit"`
	RepoToCommitIdToPRSet map[string]map[string]int `yaml:"repoToCommitIdToPRSet"`
}

// Config is the full, loaded configuration.
type Config struct {
	Repo  *RepoConfig
	User  *UserConfig
	State *InternalState
}

// EmptyConfig returns a Config with every field at its Go zero value — used
// as the rake load target before defaults/overrides are applied.
func EmptyConfig() *Config {
	return &Config{
		Repo: &RepoConfig{},
		User: &UserConfig{},
		State: &InternalState{
			MergeCheckCommit:      map[string]string{},
			RepoToCommitIdToPRSet: map[string]map[string]int{},
		},
	}
}

// DefaultConfig returns a Config with every `default:` tag value applied,
// as if loaded from an empty repo/user config file.
func DefaultConfig() *Config {
	return &Config{
		Repo: &RepoConfig{
			GitHubRemote:                    "origin",
			GitHubBranch:                    "main",
			GitHubHost:                      "github.com",
			RequireChecks:                   true,
			RequireApproval:                 true,
			MergeMethod:                     "rebase",
			ShowPrTitlesInStack:             false,
			BranchNamePrefix:                "jaspr",
			NamedStackPrefix:                "jaspr-named",
			DontPushRegex:                   `^(dont-push|wip|draft)\b.*`,
			AutoMergePollingIntervalSeconds: 10,
			AutoMergeMaxAttempts:            360,
		},
		User: &UserConfig{
			LogGitCommands: false,
			LogGitHubCalls: false,
		},
		State: &InternalState{
			MergeCheckCommit:      map[string]string{},
			RepoToCommitIdToPRSet: map[string]map[string]int{},
		},
	}
}
