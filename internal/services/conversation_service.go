package services

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"wayfarer/internal/dialogue"
	"wayfarer/internal/logging"
)

// ConversationService owns the live conversation registry. Conversations
// expire after an idle TTL; every Acquire refreshes the clock. Access is
// serialized per conversation so concurrent requests for the same session
// are processed one turn at a time, while distinct sessions never contend.
type ConversationService struct {
	store   *cache.Cache
	idleTTL time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConversationService creates the registry with the given idle TTL.
func NewConversationService(idleTTL time.Duration) *ConversationService {
	return &ConversationService{
		// Expired entries are swept by go-cache itself; the sweep
		// interval only bounds how long a dead entry lingers.
		store:   cache.New(idleTTL, idleTTL/2),
		idleTTL: idleTTL,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Acquire returns the conversation for a session, creating it on first
// contact, with its per-session lock held. The caller must invoke the
// returned release function when the turn is done.
func (s *ConversationService) Acquire(sessionID string) (*dialogue.Conversation, func()) {
	lock := s.sessionLock(sessionID)
	lock.Lock()

	var conv *dialogue.Conversation
	if cached, found := s.store.Get(sessionID); found {
		conv = cached.(*dialogue.Conversation)
	} else {
		conv = dialogue.NewConversation(sessionID)
		logging.WithConversation(sessionID).Info("new session")
	}

	release := func() {
		s.store.Set(sessionID, conv, s.idleTTL)
		lock.Unlock()
	}
	return conv, release
}

// Reset discards a session's conversation state. The next message starts
// from a fresh conversation.
func (s *ConversationService) Reset(sessionID string) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	s.store.Delete(sessionID)
	logging.WithConversation(sessionID).Info("conversation reset")
}

// Count returns the number of live conversations.
func (s *ConversationService) Count() int {
	return s.store.ItemCount()
}

// PruneLocks drops per-session locks whose conversation has expired.
// Without this the lock map would grow with every session ever seen.
func (s *ConversationService) PruneLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for sessionID, lock := range s.locks {
		if _, live := s.store.Get(sessionID); live {
			continue
		}
		// TryLock failing means a request holds it right now; the
		// session is about to be live again, leave it alone.
		if !lock.TryLock() {
			continue
		}
		lock.Unlock()
		delete(s.locks, sessionID)
		pruned++
	}
	return pruned
}

func (s *ConversationService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}
