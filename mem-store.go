package publicchat

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// RetentionPolicy caps a room's log. When the log grows past Ceiling the
// store drops the oldest entries, leaving the newest Ceiling-TrimBatch.
// A zero Ceiling disables trimming.
type RetentionPolicy struct {
	Ceiling   int
	TrimBatch int
}

type memEntry struct {
	mu  sync.Mutex
	msg Message
	seq uint64
}

// MemStore is an in-memory Store. It backs tests and single-process
// deployments without Postgres.
type MemStore struct {
	mu        sync.RWMutex
	rooms     map[string][]*memEntry
	byID      map[string]*memEntry
	seq       uint64
	retention RetentionPolicy
}

func NewMemStore(retention RetentionPolicy) *MemStore {
	return &MemStore{
		rooms:     make(map[string][]*memEntry),
		byID:      make(map[string]*memEntry),
		retention: retention,
	}
}

func (s *MemStore) Append(_ context.Context, room, author, text string, ts int64) (Message, error) {
	text, err := ValidateText(text)
	if err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	e := &memEntry{
		msg: Message{
			ID:        uuid.NewString(),
			Room:      room,
			Author:    author,
			Text:      text,
			Time:      ts,
			Reactions: Reactions{},
			Status:    StatusServer,
		},
		seq: s.seq,
	}
	s.rooms[room] = append(s.rooms[room], e)
	s.byID[e.msg.ID] = e
	s.trimLocked(room)
	return s.copyOf(e), nil
}

// trimLocked drops the oldest entries once the room log exceeds the ceiling.
// Pagination cursors pointing at trimmed ids simply hit end-of-history.
func (s *MemStore) trimLocked(room string) {
	if s.retention.Ceiling <= 0 {
		return
	}
	log := s.rooms[room]
	if len(log) <= s.retention.Ceiling {
		return
	}
	keep := s.retention.Ceiling - s.retention.TrimBatch
	if keep < 0 {
		keep = 0
	}
	drop := log[:len(log)-keep]
	for _, e := range drop {
		delete(s.byID, e.msg.ID)
	}
	s.rooms[room] = append([]*memEntry(nil), log[len(log)-keep:]...)
}

func (s *MemStore) Find(_ context.Context, id string) (Message, error) {
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Message{}, ErrNotFound
	}
	return s.copyOf(e), nil
}

func (s *MemStore) Page(_ context.Context, room, beforeID string, limit int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.rooms[room]
	end := len(log)
	if beforeID != "" {
		before, ok := s.byID[beforeID]
		if !ok || before.msg.Room != room {
			// Unknown or trimmed cursor: nothing older remains.
			return []Message{}, nil
		}
		for end > 0 && log[end-1].seq >= before.seq {
			end--
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]Message, 0, end-start)
	for _, e := range log[start:end] {
		out = append(out, s.copyOf(e))
	}
	return out, nil
}

func (s *MemStore) Update(_ context.Context, msg Message) error {
	s.mu.RLock()
	e, ok := s.byID[msg.ID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	// Per-entry lock so concurrent mutations of the same message do not
	// interleave; mutations of other messages proceed independently.
	e.mu.Lock()
	msg.Reactions = msg.Reactions.clone()
	e.msg = msg
	e.mu.Unlock()
	return nil
}

func (s *MemStore) copyOf(e *memEntry) Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg := e.msg
	msg.Reactions = e.msg.Reactions.clone()
	return msg
}
