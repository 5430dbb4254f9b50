// Package tipstate is the advisory, best-effort "tips already shown" cache
// (spec §6.4): a small JSON file in the system temp dir, one entry per tip
// key, loss of which is non-fatal. Distinct from config's rake-managed
// InternalState, which is schema'd YAML state under the user cache dir;
// this is a throwaway per-machine file, so encoding/json directly is used
// rather than pulling rake/yaml in for a single flat map with no schema
// evolution concerns.
package tipstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

const fileName = "jaspr-tips.json"

// Store tracks which advisory tips have already been shown to the user.
// All methods are best-effort: a read or write failure is logged and
// swallowed, never surfaced as an error to the caller.
type Store struct {
	path string
	mu   sync.Mutex
	seen map[string]bool
}

// Open loads the tip-state file from the system temp dir, creating an
// empty in-memory store if it does not exist or fails to parse.
func Open() *Store {
	path := filepath.Join(os.TempDir(), fileName)
	s := &Store{path: path, seen: map[string]bool{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Debug().Err(err).Str("path", path).Msg("tipstate: read failed, starting fresh")
		}
		return s
	}
	if err := json.Unmarshal(data, &s.seen); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("tipstate: parse failed, starting fresh")
		s.seen = map[string]bool{}
	}
	return s
}

// Shown reports whether tip has already been shown.
func (s *Store) Shown(tip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[tip]
}

// MarkShown records tip as shown and persists the store immediately.
// Any error is logged, not returned: a lost tip marker just means the
// user sees the tip again next time, which is harmless.
func (s *Store) MarkShown(tip string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[tip] {
		return
	}
	s.seen[tip] = true

	data, err := json.Marshal(s.seen)
	if err != nil {
		log.Debug().Err(err).Msg("tipstate: marshal failed")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		log.Debug().Err(err).Str("path", s.path).Msg("tipstate: write failed")
	}
}
