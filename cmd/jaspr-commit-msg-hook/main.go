// Command jaspr-commit-msg-hook is installed as .git/hooks/commit-msg by
// `jaspr install-commit-id-hook` (spec §6.3): it stamps a random 8-hex-char
// commit-id footer onto every new commit message that doesn't already
// carry one, the same footer internal/reconcile.Push assigns to commits
// made before the hook was installed.
package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
)

var opts struct {
	Args struct {
		MessageFile string `positional-arg-name:"message-file" required:"yes"`
	} `positional-args:"yes"`
}

var commitIDFooterRe = regexp.MustCompile(`(?m)^commit-id:\s*[0-9a-f]{8}$`)

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	if err := run(opts.Args.MessageFile); err != nil {
		fmt.Fprintf(os.Stderr, "jaspr-commit-msg-hook: %s\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading commit message: %w", err)
	}

	if commitIDFooterRe.Match(data) {
		return nil
	}

	id, err := newCommitID()
	if err != nil {
		return fmt.Errorf("generating commit-id: %w", err)
	}

	msg := string(data)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	if !strings.HasSuffix(msg, "\n\n") {
		msg += "\n"
	}
	msg += fmt.Sprintf("commit-id: %s\n", id)

	return os.WriteFile(path, []byte(msg), 0o644)
}

func newCommitID() (string, error) {
	return uuid.New().String()[:8], nil
}
