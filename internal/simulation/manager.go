package simulation

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/serverledge-faas/mabsim/internal/mab"
)

// Manager contains the live sessions, one per policy type. It recreates a
// session whenever the requested configuration no longer matches the live
// one, which is how "move a slider, start over" behaves from the outside.
type Manager struct {
	mu       sync.Mutex
	sessions map[mab.BanditType]*Session
	logDir   string
}

// NewManager builds a session manager. logDir is where the per-policy CSV
// pull logs go; empty disables CSV logging entirely.
func NewManager(logDir string) *Manager {
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Cannot create log directory %s, CSV logging disabled: %v\n", logDir, err)
			logDir = ""
		}
	}
	return &Manager{
		sessions: make(map[mab.BanditType]*Session),
		logDir:   logDir,
	}
}

// Get returns the live session for the given configuration, creating or
// replacing it when the configuration identity changed.
func (m *Manager) Get(cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg = cfg.withDefaults()
	if s, exists := m.sessions[cfg.Policy]; exists && s.key == cfg.Key() {
		return s, nil
	}

	s, err := newSession(cfg, m.logPath(cfg.Policy))
	if err != nil {
		return nil, err
	}

	if old, exists := m.sessions[cfg.Policy]; exists {
		if old.logger != nil {
			_ = old.logger.Close()
		}
		log.Printf("Replacing %s session (configuration changed)\n", cfg.Policy)
	} else {
		log.Printf("Initialized %s session\n", cfg.Policy)
	}
	m.sessions[cfg.Policy] = s
	return s, nil
}

// Lookup returns the live session for a policy, if there is one.
func (m *Manager) Lookup(policy mab.BanditType) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.sessions[policy]
	return s, exists
}

// Reset drops the session for a policy and deletes its CSV log, so the next
// Get starts from a blank slate and a blank file.
func (m *Manager) Reset(policy mab.BanditType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, exists := m.sessions[policy]; exists {
		if s.logger != nil {
			if err := s.logger.Remove(); err != nil && !os.IsNotExist(err) {
				log.Printf("Cannot remove pull log: %v\n", err)
			}
		}
		delete(m.sessions, policy)
		log.Printf("Reset %s session\n", policy)
		return
	}

	// no live session: still clean up a leftover log file
	if p := m.logPath(policy); p != "" {
		_ = os.Remove(p)
	}
}

func (m *Manager) logPath(policy mab.BanditType) string {
	if m.logDir == "" {
		return ""
	}
	return filepath.Join(m.logDir, strings.ToLower(string(policy))+"_logs.csv")
}
