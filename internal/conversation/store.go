// Package conversation holds the append-only turn log of one conversation.
package conversation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Journal mirrors appended turns somewhere durable. seq is the zero-based
// position of the turn in the conversation.
type Journal interface {
	Record(conversationID string, seq int, t Turn) error
}

// Option configures a Store.
type Option func(*Store)

// WithJournal mirrors every appended turn to j.
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

// Store is an ordered, append-only log of turns. Readers may call Snapshot
// concurrently; a single orchestrator is expected to be the only writer.
type Store struct {
	id      string
	journal Journal

	mu    sync.RWMutex
	turns []Turn
}

// New creates an empty store. An empty id gets a random one.
func New(id string, opts ...Option) *Store {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Store{id: id}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore seeds a store with turns loaded from a previous session. The
// restored turns are not journaled again.
func Restore(id string, turns []Turn, opts ...Option) *Store {
	s := New(id, opts...)
	s.turns = CloneTurns(turns)
	return s
}

// ID returns the conversation id.
func (s *Store) ID() string {
	return s.id
}

// Append adds t to the end of the log and returns the stored copy.
func (s *Store) Append(t Turn) Turn {
	t = t.Clone()
	if t.At.IsZero() {
		t.At = time.Now()
	}

	s.mu.Lock()
	seq := len(s.turns)
	s.turns = append(s.turns, t)
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.Record(s.id, seq, t.Clone()); err != nil {
			slog.Warn("conversation: journal write failed", "conversation", s.id, "seq", seq, "err", err)
		}
	}
	return t.Clone()
}

// Snapshot returns the turns as of the call.
func (s *Store) Snapshot() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneTurns(s.turns)
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}
