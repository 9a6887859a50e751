package consolehttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/udms-pro/udms/internal/platform/httpx"
	"github.com/udms-pro/udms/internal/shared"
)

const (
	loginRateLimit  = 5
	loginRateWindow = time.Minute
)

// MountRoutes registers the console API.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(loginRateLimit, loginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "too many login attempts")
		}),
	)
	r.With(limiter).Post("/session", h.handleLogin)
	r.Get("/theme", h.handleTheme)
	r.Post("/theme/toggle", h.handleToggleTheme)
	r.Get("/lockdown", h.handleLockdownState)

	r.Group(func(r chi.Router) {
		r.Use(RequireToken)

		r.Get("/session", h.handleSession)
		r.Delete("/session", h.handleLogout)
		r.Put("/session/tab", h.handleSelectTab)
		r.With(h.rbac.RequireAll(shared.TabUsers, shared.PermManageUsers)).Post("/session/impersonate", h.handleImpersonate)
		r.Get("/status", h.handleStatus)

		r.Post("/lockdown/toggle", h.handleLockdownToggle)
		r.Post("/lockdown/enter", h.handleLockdownEnter)
		r.Post("/lockdown/exit", h.handleLockdownExit)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.handleRooms)
			r.Get("/mine", h.handleMyRoom)
			r.Post("/{roomID}/reassign", h.handleReassign)
			r.Put("/{roomID}/status", h.handleRoomStatus)
			r.Post("/{roomID}/compatibility", h.handleRoomCompatibility)
		})
		r.Post("/compatibility", h.handlePairCompatibility)

		r.Route("/maintenance", func(r chi.Router) {
			r.Get("/", h.handleMaintenance)
			r.Post("/", h.handleSubmitMaintenance)
			r.Post("/analyze", h.handleAnalyze)
			r.Post("/{ticketID}/advance", h.handleAdvanceMaintenance)
			r.Post("/{ticketID}/rating", h.handleRateMaintenance)
			r.Put("/{ticketID}/priority", h.handleAnnotateTicket)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.handlePayments)
			r.Post("/{paymentID}/settle", h.handleSettle)
			r.Put("/{paymentID}/amount", h.handleOverrideFee)
		})

		r.Route("/visitors", func(r chi.Router) {
			r.Get("/", h.handleVisitors)
			r.Post("/", h.handleRegisterVisitor)
			r.Post("/{visitorID}/check-in", h.visitorAction("check in visitor", h.console.CheckInVisitor))
			r.Post("/{visitorID}/check-out", h.visitorAction("check out visitor", h.console.CheckOutVisitor))
			r.Post("/{visitorID}/deny", h.visitorAction("deny visitor", h.console.DenyVisitor))
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.handleEvents)
			r.Post("/{eventID}/join", h.handleJoinEvent)
		})

		r.Post("/check-in", h.handleRequestCheckIn)
		r.Route("/users", func(r chi.Router) {
			r.Use(h.rbac.RequireAll(shared.TabUsers, shared.PermManageUsers))
			r.Get("/", h.handleUsers)
			r.Post("/{userID}/check-in", h.handleApproveCheckIn)
			r.Put("/{userID}/permissions", h.handleSetPermissions)
		})

		r.Get("/notifications", h.handleNotifications)
		r.Delete("/notifications/{notificationID}", h.handleDismiss)

		r.Route("/assistant", func(r chi.Router) {
			r.Get("/messages", h.handleTranscript)
			r.Post("/messages", h.handleAsk)
			r.Post("/speech", h.handleSpeak)
		})
	})
}

// RequireToken rejects requests that do not present a session token.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.SessionTokenFromContext(r.Context()) == "" {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
