// Package namedstack implements the named-stack operations of spec §4.10:
// list, checkout, rename and delete against the NamedStackRef pointers
// internal/refs encodes. No direct teacher equivalent exists (the teacher
// has no named-stack concept); grounded on bl/gitapi.go's branch
// checkout/upstream handling, generalized to the new ref scheme.
package namedstack

import (
	"fmt"
	"sort"

	"github.com/jaspr/jaspr/config"
	"github.com/jaspr/jaspr/gitshell"
	"github.com/jaspr/jaspr/internal/refs"
	"github.com/jaspr/jaspr/internal/stack"
)

// List enumerates NamedStackRefs, optionally filtered to target (empty
// means all targets), sorted by stack name.
func List(gitcmd gitshell.Client, cfg *config.Config, target string) ([]stack.NamedStackRef, error) {
	remote := cfg.Repo.GitHubRemote
	namedPrefix := cfg.Repo.NamedStackPrefix

	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return nil, err
	}

	var out []stack.NamedStackRef
	for name, hash := range remoteHashes {
		parsed, ok := refs.ParseNamedAnyTarget(name, namedPrefix)
		if !ok {
			continue
		}
		if target != "" && parsed.Target != target {
			continue
		}
		out = append(out, stack.NamedStackRef{
			Name:      name,
			Target:    parsed.Target,
			StackName: parsed.StackName,
			Hash:      hash,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StackName < out[j].StackName })
	return out, nil
}

// Checkout finds the NamedStackRef named stackName against target and
// checks it out locally: if no local branch of that name exists, it
// creates one tracking the ref; if one exists, it verifies the branch's
// upstream already matches before switching, restoring the prior HEAD and
// failing otherwise.
func Checkout(gitcmd gitshell.Client, cfg *config.Config, target, stackName string) error {
	remote := cfg.Repo.GitHubRemote
	named := refs.EncodeNamed(cfg.Repo.NamedStackPrefix, target, stackName)

	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return err
	}
	if _, ok := remoteHashes[named]; !ok {
		return stack.ErrUnknownStack
	}

	remoteRef := remote + "/" + named
	localBranches, err := gitcmd.GetBranchNames()
	if err != nil {
		return err
	}

	exists := false
	for _, b := range localBranches {
		if b == stackName {
			exists = true
			break
		}
	}

	if !exists {
		if err := gitcmd.Branch(stackName, remoteRef, false); err != nil {
			return err
		}
		if err := gitcmd.Checkout(stackName); err != nil {
			return err
		}
		return gitcmd.SetUpstreamBranchForLocalBranch(stackName, remote, &named)
	}

	prevBranch, err := gitcmd.GetCurrentBranchName()
	if err != nil {
		return err
	}

	upstream, err := gitcmd.GetUpstreamBranchName(stackName, remote)
	if err != nil || upstream != named {
		return fmt.Errorf("%w: local branch %q exists with a different upstream", stack.ErrNameCollision, stackName)
	}

	if err := gitcmd.Checkout(stackName); err != nil {
		_ = gitcmd.Checkout(prevBranch)
		return err
	}
	return nil
}

// Rename moves a NamedStackRef to a new stack name in a single push
// (old-content-to-new-name, delete-old-name), and repoints any local
// branch whose upstream was the old ref.
func Rename(gitcmd gitshell.Client, cfg *config.Config, target, oldName, newName string) error {
	remote := cfg.Repo.GitHubRemote
	namedPrefix := cfg.Repo.NamedStackPrefix
	oldRef := refs.EncodeNamed(namedPrefix, target, oldName)
	newRef := refs.EncodeNamed(namedPrefix, target, newName)

	remoteHashes, err := gitcmd.GetRemoteBranchesByID(remote)
	if err != nil {
		return err
	}
	hash, ok := remoteHashes[oldRef]
	if !ok {
		return stack.ErrUnknownStack
	}
	if _, taken := remoteHashes[newRef]; taken {
		return stack.ErrNameCollision
	}

	if err := gitcmd.Push([]gitshell.RefSpec{
		{Local: hash, Remote: newRef, Force: true},
		{Local: "", Remote: oldRef, Force: true},
	}, remote); err != nil {
		return err
	}

	localBranches, err := gitcmd.GetBranchNames()
	if err != nil {
		return err
	}
	for _, b := range localBranches {
		upstream, err := gitcmd.GetUpstreamBranchName(b, remote)
		if err == nil && upstream == oldRef {
			if err := gitcmd.SetUpstreamBranchForLocalBranch(b, remote, &newRef); err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete force-deletes a NamedStackRef and clears the upstream (without
// deleting the branch) of any local branch that was tracking it.
func Delete(gitcmd gitshell.Client, cfg *config.Config, target, stackName string) error {
	remote := cfg.Repo.GitHubRemote
	named := refs.EncodeNamed(cfg.Repo.NamedStackPrefix, target, stackName)

	if err := gitcmd.Push([]gitshell.RefSpec{
		{Local: "", Remote: named, Force: true},
	}, remote); err != nil {
		return err
	}

	localBranches, err := gitcmd.GetBranchNames()
	if err != nil {
		return err
	}
	for _, b := range localBranches {
		upstream, err := gitcmd.GetUpstreamBranchName(b, remote)
		if err == nil && upstream == named {
			if err := gitcmd.SetUpstreamBranchForLocalBranch(b, remote, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
