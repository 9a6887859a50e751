// Package assistant talks to the external AI collaborator (chat, image triage,
// roommate compatibility, sentiment and speech). Every call is fallible; the
// Service wrapper degrades failures to fixed defaults.
package assistant

import (
	"context"

	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// Speaker roles in a conversation.
const (
	SpeakerUser  = "user"
	SpeakerModel = "model"
)

// Turn is one message of a conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Analysis is the triage result for a photographed maintenance issue.
type Analysis struct {
	Problem       string `json:"problem"`
	Severity      int    `json:"severity"`
	Priority      string `json:"priority"`
	EstimatedCost string `json:"estimatedCost,omitempty"`
}

// Compatibility scores how well two residents would share a room.
type Compatibility struct {
	Score   int      `json:"score"`
	Summary string   `json:"summary"`
	Pros    []string `json:"pros"`
	Cons    []string `json:"cons"`
}

// Collaborator is the request/response contract of the AI service.
type Collaborator interface {
	Reply(ctx context.Context, history []Turn) (string, error)
	AnalyzeImage(ctx context.Context, image []byte, mediaType string) (*Analysis, error)
	Compatibility(ctx context.Context, a, b shared.Preferences) (Compatibility, error)
	Sentiment(ctx context.Context, text string) (store.Sentiment, error)
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Offline is the collaborator used when no AI endpoint is configured. Every
// call fails so the Service falls back to its defaults.
type Offline struct{}

// Reply implements Collaborator.
func (Offline) Reply(context.Context, []Turn) (string, error) {
	return "", shared.ErrCollaboratorUnavailable
}

// AnalyzeImage implements Collaborator.
func (Offline) AnalyzeImage(context.Context, []byte, string) (*Analysis, error) {
	return nil, shared.ErrCollaboratorUnavailable
}

// Compatibility implements Collaborator.
func (Offline) Compatibility(context.Context, shared.Preferences, shared.Preferences) (Compatibility, error) {
	return Compatibility{}, shared.ErrCollaboratorUnavailable
}

// Sentiment implements Collaborator.
func (Offline) Sentiment(context.Context, string) (store.Sentiment, error) {
	return "", shared.ErrCollaboratorUnavailable
}

// Speak implements Collaborator.
func (Offline) Speak(context.Context, string) ([]byte, error) {
	return nil, shared.ErrCollaboratorUnavailable
}
