package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"events-assistant/internal/domain"
	"events-assistant/internal/integrations/dialogflow"
	"events-assistant/internal/observability/metrics"
	"events-assistant/internal/state"
)

const (
	defaultLang     = "en"
	defaultTimezone = "Asia/Colombo"
	defaultGreeting = "Hello"

	opGreeting = "greeting"
	opSend     = "send"
)

var defaultGreetingSuggestions = []string{"I am fine", "Great", "I am good", "Awesome"}

type NLUClient interface {
	Query(ctx context.Context, in dialogflow.QueryRequest) (*dialogflow.QueryResponse, error)
}

type PlaceLookup interface {
	Search(ctx context.Context, query string) ([]domain.Location, error)
}

type FavoritesStore interface {
	Add(ctx context.Context, userID string, loc domain.Location) error
	Remove(ctx context.Context, userID, placeID string) error
	List(ctx context.Context, userID string) ([]domain.Location, error)
}

// Config holds per-session behaviour. Zero values select the defaults.
type Config struct {
	Lang     string
	Timezone string
	// SessionID, when set, is sent to the NLU backend for every session
	// instead of the session's own ID.
	SessionID string
	// NewSessionID generates session IDs. Defaults to random UUIDs.
	NewSessionID func() string

	PageSize int

	Greeting            string
	GreetingSuggestions []string

	// FailureNotice, when non-empty, is appended as a bot entry whenever a
	// backend call fails. Empty keeps failures silent.
	FailureNotice string

	// EchoSpeechBeforeSelection emits a message unit's speech as its own
	// entry ahead of the selection entry when the unit carries both.
	EchoSpeechBeforeSelection bool
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Lang) == "" {
		c.Lang = defaultLang
	}
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = defaultTimezone
	}
	if c.NewSessionID == nil {
		c.NewSessionID = uuid.NewString
	}
	if c.PageSize <= 0 {
		c.PageSize = state.DefaultPageSize
	}
	if strings.TrimSpace(c.Greeting) == "" {
		c.Greeting = defaultGreeting
	}
	if len(c.GreetingSuggestions) == 0 {
		c.GreetingSuggestions = defaultGreetingSuggestions
	}
	return c
}

type SessionOption func(*Session)

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the entry timestamp source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEntryIDs overrides the entry ID generator.
func WithEntryIDs(newID func() string) SessionOption {
	return func(s *Session) {
		if newID != nil {
			s.newEntryID = newID
		}
	}
}

// Session is one conversation: it owns the transcript, the suggestion set,
// the loading flags and the location pager, and is the only thing that
// mutates them.
//
// Turns are serialized. Send, Initialize and the location operations hold a
// turn lock for their whole request/response cycle, so responses are applied
// in the order the turns were issued and never interleave.
type Session struct {
	id        string
	nluID     string
	cfg       Config
	nlu       NLUClient
	places    PlaceLookup
	favorites FavoritesStore

	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	newEntryID func() string

	transcript  *state.Transcript
	suggestions *state.Suggestions
	loading     *state.LoadingFlags
	pager       *state.Pager

	turnMu      sync.Mutex
	initialized bool

	mu        sync.Mutex
	lastStamp time.Time
	current   *domain.Location
}

func NewSession(cfg Config, nlu NLUClient, places PlaceLookup, favorites FavoritesStore, opts ...SessionOption) (*Session, error) {
	if nlu == nil {
		return nil, errors.New("usecase: nlu client must not be nil")
	}
	if places == nil {
		return nil, errors.New("usecase: place lookup must not be nil")
	}
	if favorites == nil {
		return nil, errors.New("usecase: favorites store must not be nil")
	}
	cfg = cfg.withDefaults()

	id := cfg.NewSessionID()
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("usecase: session id generator returned an empty id")
	}
	nluID := id
	if strings.TrimSpace(cfg.SessionID) != "" {
		nluID = cfg.SessionID
	}

	s := &Session{
		id:          id,
		nluID:       nluID,
		cfg:         cfg,
		nlu:         nlu,
		places:      places,
		favorites:   favorites,
		logger:      slog.Default(),
		now:         time.Now,
		newEntryID:  uuid.NewString,
		transcript:  state.NewTranscript(),
		suggestions: state.NewSuggestions(),
		loading:     state.NewLoadingFlags(false),
		pager:       state.NewPager(cfg.PageSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	s.logger = s.logger.With("sessionId", s.id)
	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Transcript() state.Observable[[]domain.Entry] {
	return s.transcript
}

func (s *Session) Suggestions() state.Observable[[]string] {
	return s.suggestions
}

// PrimaryLoading is true while an NLU request is in flight.
func (s *Session) PrimaryLoading() state.Observable[bool] {
	return s.loading.Primary
}

// SuggestionLoading is true while a place lookup is in flight.
func (s *Session) SuggestionLoading() state.Observable[bool] {
	return s.loading.Suggestions
}

// AddEntry stamps fields with a fresh ID and timestamp and appends the entry.
// Timestamps never go backwards within a transcript.
func (s *Session) AddEntry(fields domain.EntryFields) domain.Entry {
	s.mu.Lock()
	ts := s.now()
	if ts.Before(s.lastStamp) {
		ts = s.lastStamp
	}
	s.lastStamp = ts
	s.mu.Unlock()

	entry := domain.Entry{
		ID:             s.newEntryID(),
		Text:           fields.Text,
		RichText:       fields.RichText,
		IsBot:          fields.IsBot,
		Timestamp:      ts,
		SelectionList:  fields.SelectionList,
		LocationList:   fields.LocationList,
		LocationDetail: fields.LocationDetail,
		Title:          fields.Title,
	}
	s.transcript.Append(entry)
	s.metrics.TranscriptEntries.WithLabelValues(metrics.Author(entry.IsBot)).Inc()
	return entry.Clone()
}

// Initialize greets the backend once and seeds the transcript with the
// assistant's reply and a generic set of suggestions. Later calls do
// nothing. A failed greeting leaves the transcript empty.
func (s *Session) Initialize(ctx context.Context) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true

	resp, err := s.query(ctx, opGreeting, s.cfg.Greeting)
	if err != nil {
		s.reportFailure()
		return
	}
	s.AddEntry(domain.EntryFields{Text: resp.Speech(), IsBot: true})
	s.suggestions.Replace(s.cfg.GreetingSuggestions)
}

// Send submits a user utterance. It clears the suggestions, appends the
// user's entry and then applies the backend's reply. Backend failures are
// logged and swallowed: the user's entry stays, no reply is added and the
// suggestions stay empty. Only a blank utterance is reported as an error;
// anything else is recorded and sent as typed.
func (s *Session) Send(ctx context.Context, utterance string) error {
	if strings.TrimSpace(utterance) == "" {
		return newError(ErrorInvalidInput, "empty_utterance", nil)
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.suggestions.Clear()
	s.AddEntry(domain.EntryFields{Text: utterance, IsBot: false})

	resp, err := s.query(ctx, opSend, utterance)
	if err != nil {
		s.reportFailure()
		return nil
	}
	s.applyResponse(resp)
	return nil
}

// query issues one NLU request with the primary loading flag raised for its
// duration.
func (s *Session) query(ctx context.Context, op, text string) (*dialogflow.QueryResponse, error) {
	req := dialogflow.QueryRequest{
		Lang:      s.cfg.Lang,
		Query:     text,
		SessionID: s.nluID,
		Timezone:  s.cfg.Timezone,
	}

	var (
		resp *dialogflow.QueryResponse
		err  error
	)
	start := time.Now()
	state.Track(s.loading.Primary, func() {
		resp, err = s.nlu.Query(ctx, req)
	})
	s.metrics.NLULatency.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.NLURequests.WithLabelValues(op, metrics.OutcomeFailure).Inc()
		s.logger.Error("nlu request failed", "operation", op, "err", err)
		return nil, err
	}
	s.metrics.NLURequests.WithLabelValues(op, metrics.OutcomeSuccess).Inc()
	return resp, nil
}

func (s *Session) reportFailure() {
	if s.cfg.FailureNotice == "" {
		return
	}
	s.AddEntry(domain.EntryFields{Text: s.cfg.FailureNotice, IsBot: true})
}
