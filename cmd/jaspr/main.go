// Command jaspr is the CLI surface (spec §6.3), grounded on the teacher's
// cmd/spr/main.go: same urfave/cli/v2 app shape, same zerolog setup in
// init(), same rake-persisted internal state written back out in After.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ejoffe/rake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/config/config_parser"
	"github.com/jaspr/jaspr/engine"
	"github.com/jaspr/jaspr/forge/githubclient"
	"github.com/jaspr/jaspr/gitshell/realgit"
	"github.com/jaspr/jaspr/internal/clean"
	"github.com/jaspr/jaspr/internal/reconcile"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func main() {
	gitcmd, err := realgit.New(config.DefaultConfig())
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	cfg := config_parser.ParseConfig(gitcmd)
	if err := config_parser.CheckConfig(cfg); err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	gitcmd, err = realgit.New(cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	fc := githubclient.New(cfg)
	eng := engine.New(cfg, fc, gitcmd)
	ctx := context.Background()

	countFlag := &cli.IntFlag{
		Name:    "count",
		Aliases: []string{"c"},
		Usage:   "limit to N commits from the base of the stack; negative drops N from the head",
	}
	stackNameFlag := &cli.StringFlag{
		Name:  "stack-name",
		Usage: "named-stack pointer to use instead of resolving/generating one",
	}
	yesFlag := &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "proceed without confirming abandoned pull requests",
	}

	app := &cli.App{
		Name:                 "jaspr",
		Usage:                "Stacked pull requests",
		HideVersion:          true,
		Version:              fmt.Sprintf("%s : %s : %s\n", version, date, commit),
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remote", Usage: "override the configured remote"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn, error"},
			countFlag,
			stackNameFlag,
		},
		Before: func(c *cli.Context) error {
			if lvl, err := zerolog.ParseLevel(c.String("log-level")); err == nil {
				zerolog.SetGlobalLevel(lvl)
			}
			if c.IsSet("remote") {
				cfg.Repo.GitHubRemote = c.String("remote")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:    "status",
				Aliases: []string{"s", "st"},
				Usage:   "Show status of the local stack against the forge",
				Action: func(c *cli.Context) error {
					return eng.Status(ctx)
				},
			},
			{
				Name:  "push",
				Usage: "Push the local stack and create/update pull requests",
				Action: func(c *cli.Context) error {
					opts := reconcile.Options{StackName: c.String("stack-name")}
					if c.IsSet("count") {
						n := c.Int("count")
						opts.Count = &n
					}
					_, err := eng.Push(ctx, opts, c.Bool("yes"))
					return err
				},
				Flags: []cli.Flag{yesFlag},
			},
			{
				Name:  "merge",
				Usage: "Merge the stack onto the target branch if every commit in it is mergeable",
				Action: func(c *cli.Context) error {
					var count *int
					if c.IsSet("count") {
						n := c.Int("count")
						count = &n
					}
					_, err := eng.Merge(ctx, count)
					return err
				},
			},
			{
				Name:  "auto-merge",
				Usage: "Poll a scratch clone until the stack is mergeable, then merge it",
				Action: func(c *cli.Context) error {
					wd, err := os.Getwd()
					if err != nil {
						return err
					}
					remoteURL, err := gitcmd.GetRemoteURIOrNull(cfg.Repo.GitHubRemote)
					if err != nil || remoteURL == "" {
						return fmt.Errorf("could not resolve fetch URL for remote %q", cfg.Repo.GitHubRemote)
					}
					localRef, err := gitcmd.GetCurrentBranchName()
					if err != nil {
						return err
					}
					_, err = eng.AutoMerge(ctx, remoteURL, wd, localRef)
					return err
				},
			},
			{
				Name:  "clean",
				Usage: "Delete orphaned, abandoned and emptied branches",
				Action: func(c *cli.Context) error {
					_, err := eng.Clean(ctx, clean.Options{
						CleanAbandonedPRs: c.Bool("abandoned"),
						CleanAllCommits:   c.Bool("all"),
					})
					return err
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "abandoned", Usage: "also close and delete abandoned PRs' branches"},
					&cli.BoolFlag{Name: "all", Usage: "don't filter by author identity"},
				},
			},
			{
				Name:  "init",
				Usage: "Write a default repo config file",
				Action: func(c *cli.Context) error {
					return writeDefaultRepoConfig(gitcmd.RootDir())
				},
			},
			{
				Name:  "install-commit-id-hook",
				Usage: "Install the commit-msg hook that stamps commit-ids",
				Action: func(c *cli.Context) error {
					return installCommitMsgHook(gitcmd.RootDir())
				},
			},
			{
				Name:  "stack",
				Usage: "Named-stack management",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List named stacks",
						Action: func(c *cli.Context) error {
							refs, err := eng.Stacks()
							if err != nil {
								return err
							}
							for _, r := range refs {
								eng.Printer.Printf("%s -> %s\n", r.StackName, r.Target)
							}
							return nil
						},
					},
					{
						Name:      "checkout",
						Usage:     "Check out a named stack",
						ArgsUsage: "NAME",
						Action: func(c *cli.Context) error {
							if c.Args().Len() != 1 {
								return fmt.Errorf("usage: stack checkout NAME")
							}
							return eng.StackCheckout(c.Args().First())
						},
					},
					{
						Name:      "rename",
						Usage:     "Rename a named stack",
						ArgsUsage: "OLD NEW",
						Action: func(c *cli.Context) error {
							if c.Args().Len() != 2 {
								return fmt.Errorf("usage: stack rename OLD NEW")
							}
							return eng.StackRename(c.Args().Get(0), c.Args().Get(1))
						},
					},
					{
						Name:      "delete",
						Usage:     "Delete a named stack pointer",
						ArgsUsage: "NAME",
						Action: func(c *cli.Context) error {
							if c.Args().Len() != 1 {
								return fmt.Errorf("usage: stack delete NAME")
							}
							return eng.StackDelete(c.Args().First())
						},
					},
				},
			},
		},
		After: func(c *cli.Context) error {
			return rake.LoadSources(cfg.State, rake.YamlFileWriter(config_parser.InternalConfigFilePath()))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

// writeDefaultRepoConfig writes a starter .jaspr.yml at the repo root: every
// RepoConfig field at its default, with owner/name set to CHANGEME, under a
// single header comment line. Refuses to clobber an existing file.
func writeDefaultRepoConfig(rootDir string) error {
	path := filepath.Join(rootDir, config_parser.RepoConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	repo := config.DefaultConfig().Repo
	repo.GitHubRepoOwner = "CHANGEME"
	repo.GitHubRepoName = "CHANGEME"

	out, err := yaml.Marshal(repo)
	if err != nil {
		return err
	}

	header := "# jaspr repo config. See https://github.com/jaspr/jaspr for field docs.\n"
	if err := os.WriteFile(path, append([]byte(header), out...), 0o644); err != nil {
		return err
	}

	log.Info().Str("path", path).Msg("wrote default repo config")
	return nil
}

// commitMsgHookScript execs the installed jaspr-commit-msg-hook binary,
// forwarding git's commit-msg argument (the path to the commit message
// file). Looked up on PATH rather than by absolute path, since the hook
// and the binary are both installed as part of the same release.
const commitMsgHookScript = `#!/bin/sh
exec jaspr-commit-msg-hook "$1"
`

// installCommitMsgHook writes the commit-msg hook shim into
// .git/hooks/commit-msg with the exec bit set (spec §6.3). Overwrites any
// existing hook at that path, same as `git init`'s own sample hooks do.
func installCommitMsgHook(rootDir string) error {
	hookPath := filepath.Join(rootDir, ".git", "hooks", "commit-msg")
	if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(hookPath, []byte(commitMsgHookScript), 0o755); err != nil {
		return err
	}

	log.Info().Str("path", hookPath).Msg("installed commit-msg hook")
	return nil
}
