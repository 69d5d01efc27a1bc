// internal/dedup/store.go
package dedup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Store gives inbound processing at-most-once semantics across restarts: one
// marker file per fingerprint, whose contents are the raw message body so the
// markers double as an audit trail.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the marker directory when missing.
func NewStore(dir string) (*Store, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Println("⚠️ SMS marker folder not found - creating", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating marker dir %s: %w", dir, err)
		}
	}
	return &Store{dir: dir}, nil
}

// SeenBefore reports whether a marker for this fingerprint already exists.
func (s *Store) SeenBefore(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := os.Stat(s.path(fingerprint))
	return err == nil
}

// MarkSeen persists the marker. It must succeed before the message counts as
// claimed: on error the caller drops the message instead of processing it,
// since processing without a durable marker risks double-confirming an
// appointment after a restart.
func (s *Store) MarkSeen(fingerprint, rawBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path(fingerprint)
	if err := os.WriteFile(path, []byte(rawBody), 0o644); err != nil {
		return fmt.Errorf("writing marker %s: %w", fingerprint, err)
	}
	return nil
}

func (s *Store) path(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint)
}
