package console

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/udms-pro/udms/internal/assistant"
	"github.com/udms-pro/udms/internal/audit"
	"github.com/udms-pro/udms/internal/session"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

const compatibilityWorkers = 4

// Ask sends a chat message to the housing assistant. It always returns a reply.
func (m *Manager) Ask(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty message", shared.ErrValidation)
	}
	if err := m.Authorize(ctx, shared.TabAssistant, ""); err != nil {
		return "", err
	}
	m.metrics.ObserveAssistant("chat")
	return m.assistant.Ask(ctx, text), nil
}

// Transcript returns the assistant conversation of the active session.
func (m *Manager) Transcript(ctx context.Context) ([]assistant.Turn, error) {
	if err := m.Authorize(ctx, shared.TabAssistant, ""); err != nil {
		return nil, err
	}
	return m.assistant.Transcript(), nil
}

// Speak synthesises text, defaulting to the status announcement. Audio is nil
// when the collaborator is unavailable.
func (m *Manager) Speak(ctx context.Context, text string) ([]byte, error) {
	if err := m.Authorize(ctx, shared.TabAssistant, ""); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		text = assistant.StatusAnnouncement
	}
	m.metrics.ObserveAssistant("speak")
	return m.assistant.Speak(ctx, text), nil
}

// AnalyzeIssue triages a photo of a maintenance issue. A nil analysis means
// the collaborator could not help.
func (m *Manager) AnalyzeIssue(ctx context.Context, image []byte, mediaType string) (*assistant.Analysis, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", shared.ErrValidation)
	}
	if err := m.Authorize(ctx, shared.TabMaintenance, shared.PermSubmitMaintenance); err != nil {
		return nil, err
	}
	m.metrics.ObserveAssistant("analyze")
	return m.assistant.Analyze(ctx, image, mediaType), nil
}

// PairCompatibility scores two residents against each other.
func (m *Manager) PairCompatibility(ctx context.Context, userA, userB string) (assistant.Compatibility, error) {
	if err := m.Authorize(ctx, shared.TabRooms, shared.PermManageRooms); err != nil {
		return assistant.Compatibility{}, err
	}
	a, err := m.store.FindUser(userA)
	if err != nil {
		return assistant.Compatibility{}, err
	}
	b, err := m.store.FindUser(userB)
	if err != nil {
		return assistant.Compatibility{}, err
	}
	m.metrics.ObserveAssistant("compatibility")
	return m.assistant.Compatibility(ctx, preferencesOf(a), preferencesOf(b)), nil
}

// RoomCompatibility scores every pair of residents in a room concurrently and
// stores the average on the room.
func (m *Manager) RoomCompatibility(ctx context.Context, roomID string) (assistant.Compatibility, error) {
	if err := m.Authorize(ctx, shared.TabRooms, shared.PermManageRooms); err != nil {
		return assistant.Compatibility{}, err
	}
	if _, err := m.store.FindRoom(roomID); err != nil {
		return assistant.Compatibility{}, err
	}
	residents := m.store.Residents(roomID)
	type pair struct{ a, b store.User }
	var pairs []pair
	for i := range residents {
		for j := i + 1; j < len(residents); j++ {
			pairs = append(pairs, pair{residents[i], residents[j]})
		}
	}
	if len(pairs) == 0 {
		return assistant.Compatibility{}, fmt.Errorf("%w: room %s needs at least two residents", shared.ErrValidation, roomID)
	}

	results := make([]assistant.Compatibility, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compatibilityWorkers)
	for i, p := range pairs {
		g.Go(func() error {
			m.metrics.ObserveAssistant("compatibility")
			results[i] = m.assistant.Compatibility(gctx, preferencesOf(p.a), preferencesOf(p.b))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return assistant.Compatibility{}, err
	}
	combined := combineCompatibility(results)

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.gateLocked(ctx, shared.TabRooms, shared.PermManageRooms)
	if err != nil {
		return assistant.Compatibility{}, err
	}
	room, err := m.store.SetRoomCompatibility(roomID, combined.Score)
	if err != nil {
		return assistant.Compatibility{}, err
	}
	m.audit.Record(s.Name, "Compatibility", fmt.Sprintf("Room %s scored %d%%", room.Number, combined.Score), audit.SeverityInfo)
	m.notify.Broadcast("Compatibility Updated", fmt.Sprintf("Room %s alignment is %d%%.", room.Number, combined.Score), shared.TabRooms)
	return combined, nil
}

func preferencesOf(u store.User) shared.Preferences {
	if u.Preferences == nil {
		return shared.Preferences{}
	}
	return *u.Preferences
}

// combineCompatibility averages pair scores. The summary of the weakest pair
// is kept; pros and cons are merged without duplicates.
func combineCompatibility(results []assistant.Compatibility) assistant.Compatibility {
	if len(results) == 1 {
		return results[0]
	}
	var (
		total   int
		weakest = results[0]
		out     assistant.Compatibility
	)
	for _, r := range results {
		total += r.Score
		if r.Score < weakest.Score {
			weakest = r
		}
		for _, p := range r.Pros {
			if !slices.Contains(out.Pros, p) {
				out.Pros = append(out.Pros, p)
			}
		}
		for _, c := range r.Cons {
			if !slices.Contains(out.Cons, c) {
				out.Cons = append(out.Cons, c)
			}
		}
	}
	out.Score = int(math.Round(float64(total) / float64(len(results))))
	out.Summary = weakest.Summary
	return out
}

// Composing reports whether an assistant call is in flight.
func (m *Manager) Composing() bool {
	return m.assistant.Composing()
}

// Theme returns the persisted theme.
func (m *Manager) Theme(ctx context.Context) (session.Theme, error) {
	return m.themes.Theme(ctx)
}

// ToggleTheme flips between light and dark. It is available signed out.
func (m *Manager) ToggleTheme(ctx context.Context) (session.Theme, error) {
	current, err := m.themes.Theme(ctx)
	if err != nil {
		m.logger.Warn("read theme", slog.Any("error", err))
		current = session.ThemeLight
	}
	next := session.ThemeDark
	if current == session.ThemeDark {
		next = session.ThemeLight
	}
	if err := m.themes.SetTheme(ctx, next); err != nil {
		return current, fmt.Errorf("console: save theme: %w", err)
	}
	return next, nil
}
