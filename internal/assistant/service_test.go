package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

type stubCollaborator struct {
	err       error
	reply     string
	analysis  *Analysis
	compat    Compatibility
	sentiment store.Sentiment
	block     chan struct{}
	entered   chan struct{}
}

func (s *stubCollaborator) wait(ctx context.Context) error {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func (s *stubCollaborator) Reply(ctx context.Context, _ []Turn) (string, error) {
	return s.reply, s.wait(ctx)
}

func (s *stubCollaborator) AnalyzeImage(ctx context.Context, _ []byte, _ string) (*Analysis, error) {
	return s.analysis, s.wait(ctx)
}

func (s *stubCollaborator) Compatibility(ctx context.Context, _, _ shared.Preferences) (Compatibility, error) {
	return s.compat, s.wait(ctx)
}

func (s *stubCollaborator) Sentiment(ctx context.Context, _ string) (store.Sentiment, error) {
	return s.sentiment, s.wait(ctx)
}

func (s *stubCollaborator) Speak(ctx context.Context, _ string) ([]byte, error) {
	return []byte("pcm"), s.wait(ctx)
}

func TestServiceDefaultsOnFailure(t *testing.T) {
	svc := NewService(&stubCollaborator{err: errors.New("boom")}, Config{}, nil)
	ctx := context.Background()

	assert.Equal(t, FallbackReply, svc.Ask(ctx, "hello"))
	assert.Nil(t, svc.Analyze(ctx, []byte{1}, "image/png"))
	assert.Equal(t, DefaultCompatibility(), svc.Compatibility(ctx, shared.Preferences{}, shared.Preferences{}))
	assert.Equal(t, store.SentimentNeutral, svc.Sentiment(ctx, "meh"))
	assert.Nil(t, svc.Speak(ctx, "hi"))
	assert.False(t, svc.Composing())
}

func TestServiceNilCollaboratorIsOffline(t *testing.T) {
	svc := NewService(nil, Config{}, nil)
	assert.Equal(t, FallbackReply, svc.Ask(context.Background(), "hello"))
}

func TestServiceNormalisesResults(t *testing.T) {
	svc := NewService(&stubCollaborator{
		reply:     "hi there",
		analysis:  &Analysis{Problem: "Crack", Severity: 42, Priority: "Urgent"},
		compat:    Compatibility{Score: 140, Summary: "great"},
		sentiment: "ECSTATIC",
	}, Config{}, nil)
	ctx := context.Background()

	a := svc.Analyze(ctx, nil, "image/jpeg")
	require.NotNil(t, a)
	assert.Equal(t, 10, a.Severity)
	assert.Equal(t, "Medium", a.Priority)
	assert.Equal(t, 100, svc.Compatibility(ctx, shared.Preferences{}, shared.Preferences{}).Score)
	assert.Equal(t, store.SentimentNeutral, svc.Sentiment(ctx, "wow"))

	assert.Equal(t, "hi there", svc.Ask(ctx, "hello"))
	assert.Equal(t, []Turn{{Role: SpeakerUser, Text: "hello"}, {Role: SpeakerModel, Text: "hi there"}}, svc.Transcript())
	svc.ClearTranscript()
	assert.Empty(t, svc.Transcript())
}

func TestServiceTimeoutFallsBack(t *testing.T) {
	stub := &stubCollaborator{block: make(chan struct{}), reply: "late"}
	svc := NewService(stub, Config{Timeout: 20 * time.Millisecond}, nil)
	assert.Equal(t, FallbackReply, svc.Ask(context.Background(), "hello"))
	assert.False(t, svc.Composing())
}

func TestServiceComposingAndConcurrencyBound(t *testing.T) {
	stub := &stubCollaborator{block: make(chan struct{}), entered: make(chan struct{}, 4), sentiment: store.SentimentPositive}
	svc := NewService(stub, Config{Concurrency: 1, Timeout: time.Second}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	for range 2 {
		go func() {
			defer wg.Done()
			svc.Sentiment(context.Background(), "nice")
		}()
	}
	<-stub.entered
	assert.True(t, svc.Composing())
	assert.EqualValues(t, 1, svc.InFlight())

	close(stub.block)
	wg.Wait()
	assert.False(t, svc.Composing())
}

func TestClearTranscriptAbandonsInFlightAsk(t *testing.T) {
	collab := &stubCollaborator{reply: "late answer", block: make(chan struct{}), entered: make(chan struct{}, 1)}
	svc := NewService(collab, Config{Timeout: time.Minute}, nil)

	got := make(chan string, 1)
	go func() { got <- svc.Ask(context.Background(), "who is on duty?") }()
	<-collab.entered
	svc.ClearTranscript()

	select {
	case reply := <-got:
		assert.Equal(t, FallbackReply, reply)
	case <-time.After(time.Second):
		t.Fatal("ask not cancelled by clear")
	}
	assert.Empty(t, svc.Transcript())
	assert.False(t, svc.Composing())
}

// stubbornCollaborator ignores cancellation and answers when released.
type stubbornCollaborator struct {
	Offline
	entered chan struct{}
	release chan struct{}
}

func (s stubbornCollaborator) Reply(context.Context, []Turn) (string, error) {
	s.entered <- struct{}{}
	<-s.release
	return "secret answer", nil
}

func TestLateReplyIsNotRecordedInNextConversation(t *testing.T) {
	collab := stubbornCollaborator{entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewService(collab, Config{Timeout: time.Minute}, nil)

	done := make(chan string, 1)
	go func() { done <- svc.Ask(context.Background(), "private question") }()
	<-collab.entered
	svc.ClearTranscript()
	close(collab.release)
	assert.Equal(t, "secret answer", <-done)

	assert.Empty(t, svc.Transcript())
}
