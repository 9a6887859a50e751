// Package consolehttp exposes the console kernel as a JSON API.
package consolehttp

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/udms-pro/udms/internal/auth"
	"github.com/udms-pro/udms/internal/console"
	"github.com/udms-pro/udms/internal/platform/httpx"
	"github.com/udms-pro/udms/internal/rbac"
	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// Handler serves the console API.
type Handler struct {
	logger  *slog.Logger
	console *console.Manager
	rbac    rbac.Middleware
}

// NewHandler builds a Handler. Route-level guards go through mw; every kernel
// operation gates itself as well.
func NewHandler(logger *slog.Logger, manager *console.Manager, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if mw.Gate == nil {
		mw.Gate = manager
	}
	if mw.Logger == nil {
		mw.Logger = logger
	}
	return &Handler{logger: logger, console: manager, rbac: mw}
}

type sessionResponse struct {
	Session  *console.Session `json:"session"`
	Tab      shared.Tab       `json:"tab,omitempty"`
	Lockdown string           `json:"lockdown"`
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, op string) {
	s, err := h.console.Current(r.Context())
	if err != nil {
		h.respond(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Session:  &s,
		Tab:      h.console.CurrentTab(),
		Lockdown: string(h.console.LockdownState()),
	})
}

func (h *Handler) respond(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status == http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		// A malformed login is indistinguishable from a wrong secret.
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	s, err := h.console.Authenticate(r.Context(), creds.Identifier, creds.Secret)
	if err != nil {
		h.logger.Warn("login failed", slog.String("ip", r.RemoteAddr))
		h.respond(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sessionResponse{
		Session:  &s,
		Tab:      h.console.CurrentTab(),
		Lockdown: string(h.console.LockdownState()),
	})
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	h.writeSession(w, r, "session")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.console.Logout(r.Context()); err != nil {
		h.respond(w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type impersonateRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (h *Handler) handleImpersonate(w http.ResponseWriter, r *http.Request) {
	var req impersonateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.console.Impersonate(r.Context(), req.UserID); err != nil {
		h.respond(w, "impersonate", err)
		return
	}
	h.writeSession(w, r, "impersonate")
}

type tabRequest struct {
	Tab shared.Tab `json:"tab" validate:"required"`
}

func (h *Handler) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	var req tabRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.console.SelectTab(r.Context(), req.Tab); err != nil {
		h.respond(w, "select tab", err)
		return
	}
	h.writeSession(w, r, "select tab")
}

type lockdownResponse struct {
	State string `json:"state"`
}

func (h *Handler) handleLockdownState(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, lockdownResponse{State: string(h.console.LockdownState())})
}

func (h *Handler) handleLockdownToggle(w http.ResponseWriter, r *http.Request) {
	state, err := h.console.ToggleLockdown(r.Context())
	if err != nil {
		h.respond(w, "toggle lockdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lockdownResponse{State: string(state)})
}

func (h *Handler) handleLockdownEnter(w http.ResponseWriter, r *http.Request) {
	state, err := h.console.EnterLockdown(r.Context())
	if err != nil {
		h.respond(w, "enter lockdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lockdownResponse{State: string(state)})
}

func (h *Handler) handleLockdownExit(w http.ResponseWriter, r *http.Request) {
	state, err := h.console.ExitLockdown(r.Context())
	if err != nil {
		h.respond(w, "exit lockdown", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lockdownResponse{State: string(state)})
}

func (h *Handler) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.console.Rooms(r.Context())
	if err != nil {
		h.respond(w, "list rooms", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rooms)
}

func (h *Handler) handleMyRoom(w http.ResponseWriter, r *http.Request) {
	view, err := h.console.MyRoom(r.Context())
	if err != nil {
		h.respond(w, "my room", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type reassignRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (h *Handler) handleReassign(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	moved, err := h.console.ReassignRoom(r.Context(), req.UserID, chi.URLParam(r, "roomID"))
	if err != nil {
		h.respond(w, "reassign room", err)
		return
	}
	httpx.JSON(w, http.StatusOK, moved)
}

type roomStatusRequest struct {
	Status store.RoomStatus `json:"status" validate:"required,oneof=Available Maintenance"`
}

func (h *Handler) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	var req roomStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	room, err := h.console.SetRoomStatus(r.Context(), chi.URLParam(r, "roomID"), req.Status)
	if err != nil {
		h.respond(w, "set room status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, room)
}

func (h *Handler) handleRoomCompatibility(w http.ResponseWriter, r *http.Request) {
	result, err := h.console.RoomCompatibility(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		h.respond(w, "room compatibility", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type pairRequest struct {
	UserA string `json:"userA" validate:"required"`
	UserB string `json:"userB" validate:"required,nefield=UserA"`
}

func (h *Handler) handlePairCompatibility(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.console.PairCompatibility(r.Context(), req.UserA, req.UserB)
	if err != nil {
		h.respond(w, "pair compatibility", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.console.Maintenance(r.Context())
	if err != nil {
		h.respond(w, "list maintenance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tickets)
}

type maintenanceRequest struct {
	Category       string `json:"category" validate:"required,oneof=Plumbing Electrical Cleaning Furniture Other"`
	Description    string `json:"description" validate:"required,max=2000"`
	Priority       string `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	IsPreventative bool   `json:"isPreventative"`
}

func (h *Handler) handleSubmitMaintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.console.SubmitMaintenance(r.Context(), store.NewMaintenance{
		Category:       req.Category,
		Description:    req.Description,
		Priority:       req.Priority,
		IsPreventative: req.IsPreventative,
	})
	if err != nil {
		h.respond(w, "submit maintenance", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ticket)
}

type advanceRequest struct {
	Status store.MaintenanceStatus `json:"status" validate:"required"`
}

func (h *Handler) handleAdvanceMaintenance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.console.AdvanceMaintenance(r.Context(), chi.URLParam(r, "ticketID"), req.Status)
	if err != nil {
		h.respond(w, "advance maintenance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

type priorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=Low Medium High"`
}

func (h *Handler) handleAnnotateTicket(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.console.AnnotateTicket(r.Context(), chi.URLParam(r, "ticketID"), req.Priority)
	if err != nil {
		h.respond(w, "annotate maintenance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

type ratingRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Feedback string `json:"feedback" validate:"max=2000"`
}

func (h *Handler) handleRateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	ticket, err := h.console.RateMaintenance(r.Context(), chi.URLParam(r, "ticketID"), req.Rating, req.Feedback)
	if err != nil {
		h.respond(w, "rate maintenance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ticket)
}

type analyzeRequest struct {
	Image     string `json:"image" validate:"required,base64"`
	MediaType string `json:"mediaType" validate:"required,oneof=image/jpeg image/png image/webp"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "image is not base64")
		return
	}
	analysis, err := h.console.AnalyzeIssue(r.Context(), image, req.MediaType)
	if err != nil {
		h.respond(w, "analyze issue", err)
		return
	}
	if analysis == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.console.Payments(r.Context())
	if err != nil {
		h.respond(w, "list payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

func (h *Handler) handleSettle(w http.ResponseWriter, r *http.Request) {
	paid, err := h.console.SettlePayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		h.respond(w, "settle payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, paid)
}

type feeRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

func (h *Handler) handleOverrideFee(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.console.OverrideFee(r.Context(), chi.URLParam(r, "paymentID"), req.Amount)
	if err != nil {
		h.respond(w, "override fee", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleVisitors(w http.ResponseWriter, r *http.Request) {
	visitors, err := h.console.Visitors(r.Context())
	if err != nil {
		h.respond(w, "list visitors", err)
		return
	}
	httpx.JSON(w, http.StatusOK, visitors)
}

type visitorRequest struct {
	Name            string    `json:"name" validate:"required,max=120"`
	ExpectedArrival time.Time `json:"expectedArrival" validate:"required"`
	VisitType       string    `json:"visitType" validate:"omitempty,oneof=Friend Family Maintenance Other"`
}

func (h *Handler) handleRegisterVisitor(w http.ResponseWriter, r *http.Request) {
	var req visitorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.console.RegisterVisitor(r.Context(), store.NewVisitor{
		Name:            req.Name,
		ExpectedArrival: req.ExpectedArrival,
		VisitType:       req.VisitType,
	})
	if err != nil {
		h.respond(w, "register visitor", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) visitorAction(op string, apply func(context.Context, string) (store.Visitor, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := apply(r.Context(), chi.URLParam(r, "visitorID"))
		if err != nil {
			h.respond(w, op, err)
			return
		}
		httpx.JSON(w, http.StatusOK, v)
	}
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.console.Events(r.Context())
	if err != nil {
		h.respond(w, "list events", err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

func (h *Handler) handleJoinEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.console.JoinEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		h.respond(w, "join event", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ev)
}

func (h *Handler) handleRequestCheckIn(w http.ResponseWriter, r *http.Request) {
	s, err := h.console.RequestCheckIn(r.Context())
	if err != nil {
		h.respond(w, "request check-in", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.console.Users(r.Context())
	if err != nil {
		h.respond(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) handleApproveCheckIn(w http.ResponseWriter, r *http.Request) {
	u, err := h.console.ApproveCheckIn(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.respond(w, "approve check-in", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

type permissionsRequest struct {
	Permissions []shared.Permission `json:"permissions" validate:"required"`
}

func (h *Handler) handleSetPermissions(w http.ResponseWriter, r *http.Request) {
	var req permissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.console.SetUserPermissions(r.Context(), chi.URLParam(r, "userID"), req.Permissions)
	if err != nil {
		h.respond(w, "set permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, u)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	live, err := h.console.Notifications(r.Context())
	if err != nil {
		h.respond(w, "list notifications", err)
		return
	}
	httpx.JSON(w, http.StatusOK, live)
}

func (h *Handler) handleDismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.console.Dismiss(r.Context(), chi.URLParam(r, "notificationID")); err != nil {
		h.respond(w, "dismiss notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type askRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type askResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reply, err := h.console.Ask(r.Context(), req.Text)
	if err != nil {
		h.respond(w, "ask assistant", err)
		return
	}
	httpx.JSON(w, http.StatusOK, askResponse{Reply: reply})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	turns, err := h.console.Transcript(r.Context())
	if err != nil {
		h.respond(w, "assistant transcript", err)
		return
	}
	httpx.JSON(w, http.StatusOK, turns)
}

type speakRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

func (h *Handler) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	audio, err := h.console.Speak(r.Context(), req.Text)
	if err != nil {
		h.respond(w, "speak", err)
		return
	}
	if len(audio) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	if _, err := w.Write(audio); err != nil {
		h.logger.Warn("write audio", slog.Any("error", err))
	}
}

type statusResponse struct {
	Composing   bool   `json:"composing"`
	Highlighted bool   `json:"highlighted"`
	Lockdown    string `json:"lockdown"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, statusResponse{
		Composing:   h.console.Composing(),
		Highlighted: h.console.Highlighted(),
		Lockdown:    string(h.console.LockdownState()),
	})
}

type themeResponse struct {
	Theme string `json:"theme"`
}

func (h *Handler) handleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.console.Theme(r.Context())
	if err != nil {
		h.logger.Warn("read theme", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, themeResponse{Theme: string(theme)})
}

func (h *Handler) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.console.ToggleTheme(r.Context())
	if err != nil {
		h.respond(w, "toggle theme", err)
		return
	}
	httpx.JSON(w, http.StatusOK, themeResponse{Theme: string(theme)})
}
