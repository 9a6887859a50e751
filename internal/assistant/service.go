package assistant

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// FallbackReply is returned when the chat collaborator fails.
const FallbackReply = "The Housing Core is currently undergoing a scheduled sync. Please try again in 60 seconds."

// StatusAnnouncement is spoken when the console comes online.
const StatusAnnouncement = "UDMS Pro Logistics Core is online. All protocols are synchronized."

// DefaultCompatibility is returned when compatibility scoring fails.
func DefaultCompatibility() Compatibility {
	return Compatibility{
		Score:   65,
		Summary: "Profiles show standard alignment. Safe pairing recommended.",
		Pros:    []string{"Shared academic focus"},
		Cons:    []string{"Minor schedule variance"},
	}
}

// Config tunes the Service.
type Config struct {
	Timeout     time.Duration
	Concurrency int64
}

// Service wraps a Collaborator with timeouts, a concurrency bound and
// fallbacks. It never returns an error.
type Service struct {
	collab    Collaborator
	timeout   time.Duration
	sem       *semaphore.Weighted
	composing atomic.Int64
	logger    *slog.Logger

	mu         sync.Mutex
	transcript []Turn
	// gen counts conversations; replies from an older one are dropped.
	gen uint64
	// conversation is cancelled by ClearTranscript to abandon in-flight calls.
	conversation context.Context
	endCall      context.CancelFunc
}

// NewService builds a Service. A nil collaborator behaves like Offline.
func NewService(collab Collaborator, cfg Config, logger *slog.Logger) *Service {
	if collab == nil {
		collab = Offline{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		collab:  collab,
		timeout: cfg.Timeout,
		sem:     semaphore.NewWeighted(cfg.Concurrency),
		logger:  logger,
	}
	s.conversation, s.endCall = context.WithCancel(context.Background())
	return s
}

// Composing reports whether any collaborator call is in flight.
func (s *Service) Composing() bool {
	return s.composing.Load() > 0
}

// InFlight returns the number of running collaborator calls.
func (s *Service) InFlight() int64 {
	return s.composing.Load()
}

// begin acquires a concurrency slot and returns a call context with the
// per-call deadline. The call is also cancelled when the conversation is
// cleared. done must be called when ok is true.
func (s *Service) begin(ctx context.Context) (callCtx context.Context, done func(), ok bool) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, false
	}
	s.composing.Add(1)
	s.mu.Lock()
	conversation := s.conversation
	s.mu.Unlock()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	stop := context.AfterFunc(conversation, cancel)
	return callCtx, func() {
		stop()
		cancel()
		s.composing.Add(-1)
		s.sem.Release(1)
	}, true
}

func (s *Service) degrade(op string, err error) {
	s.logger.Warn("assistant fallback", slog.String("op", op), slog.Any("error", err))
}

// Ask appends a user turn, asks the collaborator for a reply and records it.
// A reply that arrives after ClearTranscript is returned but not recorded.
func (s *Service) Ask(ctx context.Context, text string) string {
	s.mu.Lock()
	s.transcript = append(s.transcript, Turn{Role: SpeakerUser, Text: text})
	history := slices.Clone(s.transcript)
	gen := s.gen
	s.mu.Unlock()

	reply := FallbackReply
	if callCtx, done, ok := s.begin(ctx); ok {
		got, err := s.collab.Reply(callCtx, history)
		done()
		if err != nil {
			s.degrade("reply", err)
		} else {
			reply = got
		}
	}

	s.mu.Lock()
	if s.gen == gen {
		s.transcript = append(s.transcript, Turn{Role: SpeakerModel, Text: reply})
	}
	s.mu.Unlock()
	return reply
}

// Transcript returns the conversation so far.
func (s *Service) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// ClearTranscript forgets the conversation and cancels collaborator calls
// still in flight for it.
func (s *Service) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = nil
	s.gen++
	s.endCall()
	s.conversation, s.endCall = context.WithCancel(context.Background())
}

// Analyze triages an image. It returns nil when the collaborator fails.
func (s *Service) Analyze(ctx context.Context, image []byte, mediaType string) *Analysis {
	callCtx, done, ok := s.begin(ctx)
	if !ok {
		return nil
	}
	defer done()
	a, err := s.collab.AnalyzeImage(callCtx, image, mediaType)
	if err != nil || a == nil {
		s.degrade("analyze", err)
		return nil
	}
	a.Severity = min(max(a.Severity, 1), 10)
	switch a.Priority {
	case "Low", "Medium", "High":
	default:
		a.Priority = "Medium"
	}
	return a
}

// Compatibility scores two residents, returning DefaultCompatibility on failure.
func (s *Service) Compatibility(ctx context.Context, a, b shared.Preferences) Compatibility {
	callCtx, done, ok := s.begin(ctx)
	if !ok {
		return DefaultCompatibility()
	}
	defer done()
	c, err := s.collab.Compatibility(callCtx, a, b)
	if err != nil {
		s.degrade("compatibility", err)
		return DefaultCompatibility()
	}
	c.Score = min(max(c.Score, 0), 100)
	return c
}

// Sentiment classifies feedback, returning NEUTRAL on failure or unknown labels.
func (s *Service) Sentiment(ctx context.Context, text string) store.Sentiment {
	if strings.TrimSpace(text) == "" {
		return store.SentimentNeutral
	}
	callCtx, done, ok := s.begin(ctx)
	if !ok {
		return store.SentimentNeutral
	}
	defer done()
	got, err := s.collab.Sentiment(callCtx, text)
	if err != nil {
		s.degrade("sentiment", err)
		return store.SentimentNeutral
	}
	switch got {
	case store.SentimentPositive, store.SentimentNegative, store.SentimentNeutral:
		return got
	}
	return store.SentimentNeutral
}

// Speak synthesises speech, returning nil audio on failure.
func (s *Service) Speak(ctx context.Context, text string) []byte {
	callCtx, done, ok := s.begin(ctx)
	if !ok {
		return nil
	}
	defer done()
	audio, err := s.collab.Speak(callCtx, text)
	if err != nil {
		s.degrade("speak", err)
		return nil
	}
	return audio
}
