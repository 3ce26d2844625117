// Package memory holds per-chat conversation state: the recent turn
// history fed back into generation, and the last course whose
// registration link was surfaced, so short follow-ups like "pasame el
// link" can be answered without another model call.
package memory

import (
	"strings"
	"sync"

	"github.com/puntodigital/cursosbot/internal/metrics"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single utterance in a conversation.
type Turn struct {
	Role Role
	Text string
}

// SuggestedCourse is the course most recently offered to a chat,
// kept so link follow-ups can resolve to its registration form.
type SuggestedCourse struct {
	Titulo     string
	Formulario string
}

type conversation struct {
	history       []Turn
	lastSuggested *SuggestedCourse
}

// Store keeps conversation state keyed by chat ID. All state is
// in-process; a restart starts every conversation fresh.
type Store struct {
	mu      sync.Mutex
	limit   int
	chats   map[string]*conversation
	metrics *metrics.Metrics
}

// DefaultHistoryLimit is the number of turns retained per chat.
const DefaultHistoryLimit = 6

// NewStore creates a conversation store retaining up to historyLimit
// turns per chat.
func NewStore(historyLimit int, m *metrics.Metrics) *Store {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Store{
		limit:   historyLimit,
		chats:   make(map[string]*conversation),
		metrics: m,
	}
}

func (s *Store) conversation(chatID string) *conversation {
	conv, ok := s.chats[chatID]
	if !ok {
		conv = &conversation{}
		s.chats[chatID] = conv
		s.metrics.SetActiveConversations(len(s.chats))
	}
	return conv
}

// AppendTurn records an utterance, evicting the oldest turns beyond
// the history limit. Blank turns are dropped.
func (s *Store) AppendTurn(chatID string, role Role, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversation(chatID)
	conv.history = append(conv.history, Turn{Role: role, Text: text})
	if len(conv.history) > s.limit {
		conv.history = conv.history[len(conv.history)-s.limit:]
	}
}

// History returns a copy of the chat's recorded turns, oldest first.
func (s *Store) History(chatID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.chats[chatID]
	if !ok || len(conv.history) == 0 {
		return nil
	}
	out := make([]Turn, len(conv.history))
	copy(out, conv.history)
	return out
}

// SetLastSuggested records the course most recently offered to a chat.
// Only replies that carried a registration URL overwrite the slot; it
// is never cleared by later link-less replies.
func (s *Store) SetLastSuggested(chatID string, course SuggestedCourse) {
	if strings.TrimSpace(course.Formulario) == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversation(chatID).lastSuggested = &course
}

// LastSuggested returns the course most recently offered to a chat.
func (s *Store) LastSuggested(chatID string) (SuggestedCourse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.chats[chatID]
	if !ok || conv.lastSuggested == nil {
		return SuggestedCourse{}, false
	}
	return *conv.lastSuggested, true
}

// Clear forgets all state for a chat. Reports whether the chat had
// any state to forget.
func (s *Store) Clear(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return false
	}
	delete(s.chats, chatID)
	s.metrics.SetActiveConversations(len(s.chats))
	return true
}

// Len reports the number of tracked conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// ClampText trims text to at most limit runes, appending an ellipsis
// when truncation occurs.
func ClampText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
