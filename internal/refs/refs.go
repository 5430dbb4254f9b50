// Package refs implements the three remote-ref encoding schemes the engine
// uses to map commit-ids and stack names onto branch names: per-commit
// branches, their immutable revision-history snapshots, and named-stack
// pointers. Grounded on the branch-name parsing the teacher inlines into
// bl/internal/state.go (CommitIdFromBranch, commitIDRegex), generalized to
// round-trip and to the named-stack scheme the teacher lacks.
package refs

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsedBranch is the result of a successful ParseBranch.
type ParsedBranch struct {
	CommitID string
	Target   string
	// RevNum is >0 for a revision-history branch, 0 for a live per-commit
	// branch.
	RevNum int
}

// EncodeBranch emits "prefix/target/commit_id" or, when rev > 0,
// "prefix/target/commit_id_NN" (NN zero-padded to 2 digits).
func EncodeBranch(prefix, target, commitID string, rev int) string {
	if rev > 0 {
		return fmt.Sprintf("%s/%s/%s_%02d", prefix, target, commitID, rev)
	}
	return fmt.Sprintf("%s/%s/%s", prefix, target, commitID)
}

// ParseBranch succeeds only when name begins with "prefix/". The segment
// after the last "/" splits on the final "_" into (commit_id, two-digit
// rev_num); if the suffix after the last "_" is not exactly two digits, the
// whole segment is the commit_id and RevNum is 0.
func ParseBranch(name, prefix string) (ParsedBranch, bool) {
	p := prefix + "/"
	if !strings.HasPrefix(name, p) {
		return ParsedBranch{}, false
	}
	rest := name[len(p):]

	lastSlash := strings.LastIndex(rest, "/")
	target := ""
	segment := rest
	if lastSlash >= 0 {
		target = rest[:lastSlash]
		segment = rest[lastSlash+1:]
	}
	if segment == "" {
		return ParsedBranch{}, false
	}

	commitID := segment
	rev := 0
	if idx := strings.LastIndex(segment, "_"); idx >= 0 {
		suffix := segment[idx+1:]
		if len(suffix) == 2 {
			if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
				commitID = segment[:idx]
				rev = n
			}
		}
	}

	return ParsedBranch{CommitID: commitID, Target: target, RevNum: rev}, true
}

// ParsedNamed is the result of a successful ParseNamed.
type ParsedNamed struct {
	Target    string
	StackName string
}

// EncodeNamed emits "named_prefix/target/stack_name". stack_name may itself
// contain slashes.
func EncodeNamed(namedPrefix, target, stackName string) string {
	return fmt.Sprintf("%s/%s/%s", namedPrefix, target, stackName)
}

// ParseNamed succeeds only when name begins with "named_prefix/target/".
func ParseNamed(name, namedPrefix, target string) (ParsedNamed, bool) {
	p := fmt.Sprintf("%s/%s/", namedPrefix, target)
	if !strings.HasPrefix(name, p) {
		return ParsedNamed{}, false
	}
	return ParsedNamed{Target: target, StackName: name[len(p):]}, true
}

// ParseNamedAnyTarget succeeds when name begins with "named_prefix/" and
// splits the remainder into (target, stack_name) on the first "/".
func ParseNamedAnyTarget(name, namedPrefix string) (ParsedNamed, bool) {
	p := namedPrefix + "/"
	if !strings.HasPrefix(name, p) {
		return ParsedNamed{}, false
	}
	rest := name[len(p):]
	idx := strings.Index(rest, "/")
	if idx < 0 {
		return ParsedNamed{}, false
	}
	return ParsedNamed{Target: rest[:idx], StackName: rest[idx+1:]}, true
}
