package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"events-assistant/internal/domain"
	"events-assistant/internal/observability/metrics"
)

const defaultMaxSessions = 1000

// SessionFactory builds a new, uninitialized session.
type SessionFactory func() (*Session, error)

// ChatService keeps conversation sessions in memory, keyed by session ID,
// and exposes them to request/response callers. Sessions are lost when the
// process exits. When more than maxSessions are held, the least recently
// used one is dropped.
type ChatService struct {
	factory     SessionFactory
	metrics     *metrics.Metrics
	maxSessions int
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*heldSession
}

type heldSession struct {
	session  *Session
	lastUsed time.Time
}

type ChatInput struct {
	SessionID string
	Utterance string
}

type SelectInput struct {
	SessionID string
	Category  string
}

type PageInput struct {
	SessionID string
	Forward   bool
}

// Snapshot is the renderable state of one session.
type Snapshot struct {
	SessionID         string         `json:"sessionId"`
	Transcript        []domain.Entry `json:"transcript"`
	Suggestions       []string       `json:"suggestions"`
	Loading           bool           `json:"loading"`
	SuggestionLoading bool           `json:"suggestionLoading"`
	Locations         LocationPage   `json:"locations"`
}

func NewChatService(factory SessionFactory, maxSessions int, m *metrics.Metrics) (*ChatService, error) {
	if factory == nil {
		return nil, errors.New("usecase: session factory must not be nil")
	}
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if m == nil {
		m = metrics.New()
	}
	return &ChatService{
		factory:     factory,
		metrics:     m,
		maxSessions: maxSessions,
		now:         time.Now,
		sessions:    make(map[string]*heldSession),
	}, nil
}

// Start opens a new session and runs its greeting.
func (c *ChatService) Start(ctx context.Context) (Snapshot, error) {
	s, err := c.create(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(s), nil
}

// Chat sends an utterance to the session named in the input. An empty or
// unknown session ID starts a new session first.
func (c *ChatService) Chat(ctx context.Context, in ChatInput) (Snapshot, error) {
	if strings.TrimSpace(in.Utterance) == "" {
		return Snapshot{}, newError(ErrorInvalidInput, "empty_utterance", nil)
	}
	s, ok := c.lookup(in.SessionID)
	if !ok {
		var err error
		if s, err = c.create(ctx); err != nil {
			return Snapshot{}, err
		}
	}
	if err := s.Send(ctx, in.Utterance); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(s), nil
}

// Snapshot returns the current state of an existing session.
func (c *ChatService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	s, err := c.existing(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(s), nil
}

func (c *ChatService) SelectCategory(ctx context.Context, in SelectInput) (Snapshot, error) {
	s, err := c.existing(in.SessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.SelectCategory(ctx, in.Category); err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(s), nil
}

func (c *ChatService) PageLocations(_ context.Context, in PageInput) (Snapshot, error) {
	s, err := c.existing(in.SessionID)
	if err != nil {
		return Snapshot{}, err
	}
	if in.Forward {
		s.NextLocations()
	} else {
		s.PreviousLocations()
	}
	return snapshotOf(s), nil
}

// Len returns the number of sessions held.
func (c *ChatService) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *ChatService) existing(sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, newError(ErrorInvalidInput, "missing_session_id", nil)
	}
	s, ok := c.lookup(sessionID)
	if !ok {
		return nil, newError(ErrorNotFound, "unknown_session", nil)
	}
	return s, nil
}

func (c *ChatService) lookup(sessionID string) (*Session, bool) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	held, ok := c.sessions[sessionID]
	if !ok {
		return nil, false
	}
	held.lastUsed = c.now()
	return held.session, true
}

func (c *ChatService) create(ctx context.Context) (*Session, error) {
	s, err := c.factory()
	if err != nil {
		return nil, newError(ErrorInternal, "session_create_error", err)
	}
	s.Initialize(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[s.ID()] = &heldSession{session: s, lastUsed: c.now()}
	c.evictLocked(s.ID())
	c.metrics.SessionsActive.Set(float64(len(c.sessions)))
	return s, nil
}

// evictLocked drops least recently used sessions until the cap holds. keep
// is never dropped, even when its lastUsed ties with an older session.
func (c *ChatService) evictLocked(keep string) {
	for len(c.sessions) > c.maxSessions {
		var (
			oldestID string
			oldest   time.Time
		)
		for id, held := range c.sessions {
			if id == keep {
				continue
			}
			if oldestID == "" || held.lastUsed.Before(oldest) {
				oldestID, oldest = id, held.lastUsed
			}
		}
		delete(c.sessions, oldestID)
	}
}

func snapshotOf(s *Session) Snapshot {
	return Snapshot{
		SessionID:         s.ID(),
		Transcript:        s.Transcript().Current(),
		Suggestions:       s.Suggestions().Current(),
		Loading:           s.PrimaryLoading().Current(),
		SuggestionLoading: s.SuggestionLoading().Current(),
		Locations:         s.Page(),
	}
}
