package assistant

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", WithAPIKey("k"), WithRetryConfig(RetryConfig{MaxAttempts: 2, BackoffBase: time.Millisecond}))
}

func TestHTTPClientReply(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var req replyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.History, 1)
		_ = json.NewEncoder(w).Encode(replyResponse{Text: "Quiet hours start at 10 PM."})
	})
	got, err := client.Reply(context.Background(), []Turn{{Role: SpeakerUser, Text: "When are quiet hours?"}})
	require.NoError(t, err)
	assert.Equal(t, "Quiet hours start at 10 PM.", got)
}

func TestHTTPClientRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(sentimentResponse{Sentiment: " positive\n"})
	})
	got, err := client.Sentiment(context.Background(), "great fix")
	require.NoError(t, err)
	assert.Equal(t, store.SentimentPositive, got)
	assert.EqualValues(t, 2, calls.Load())
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err := client.Compatibility(context.Background(), shared.Preferences{}, shared.Preferences{})
	assert.ErrorIs(t, err, shared.ErrCollaboratorUnavailable)
	assert.EqualValues(t, 1, calls.Load())
}

func TestHTTPClientAnalyzeAndSpeak(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/analyze":
			var req analyzeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "image/png", req.MediaType)
			_ = json.NewEncoder(w).Encode(Analysis{Problem: "Leak", Severity: 7, Priority: "High"})
		case "/v1/speech":
			_ = json.NewEncoder(w).Encode(speakResponse{Audio: base64.StdEncoding.EncodeToString([]byte{1, 2})})
		}
	})
	a, err := client.AnalyzeImage(context.Background(), []byte{0x89}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "Leak", a.Problem)

	audio, err := client.Speak(context.Background(), StatusAnnouncement)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, audio)
}

func TestOfflineAlwaysFails(t *testing.T) {
	_, err := Offline{}.Reply(context.Background(), nil)
	assert.True(t, errors.Is(err, shared.ErrCollaboratorUnavailable))
}
