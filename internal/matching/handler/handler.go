package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	historymodels "bloodlink/internal/history/models"
	"bloodlink/internal/matching/models"
	"bloodlink/internal/matching/service"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Service defines the matching operations exposed over HTTP.
type Service interface {
	FindMatches(ctx context.Context, actor id.UserID, requestID id.RequestID, opts service.SearchOptions) (*service.FindMatchesResult, error)
	Transition(ctx context.Context, actor id.UserID, matchID id.MatchID, action models.Action, in service.TransitionInput) (*models.DonationMatch, error)
	ListDonorMatches(ctx context.Context, donorID id.UserID, opts service.ListOptions) (*service.ListResult, error)
	ListRequestMatches(ctx context.Context, actor id.UserID, requestID id.RequestID, opts service.ListOptions) (*service.ListResult, error)
	ListHistory(ctx context.Context, donorID id.UserID) ([]*historymodels.DonationRecord, error)
}

// Handler wires matching endpoints to the matching service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts matching endpoints on the router. Authentication is applied
// by the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/requests/{id}/matches", h.HandleFindMatches)
	r.Get("/requests/{id}/matches", h.HandleListRequestMatches)
	r.Get("/donors/me/matches", h.HandleListDonorMatches)
	r.Get("/donors/me/history", h.HandleListHistory)
	r.Post("/matches/{id}/{action}", h.HandleTransition)
}

// HandleFindMatches handles POST /requests/{id}/matches.
func (h *Handler) HandleFindMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	bloodRequestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FindMatchesRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.FindMatches(ctx, userID, bloodRequestID, req.Options())
	if err != nil {
		h.logFailure(ctx, "find matches failed", err, "blood_request_id", bloodRequestID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleListRequestMatches handles GET /requests/{id}/matches.
func (h *Handler) HandleListRequestMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	bloodRequestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListRequestMatches(ctx, userID, bloodRequestID, opts)
	if err != nil {
		h.logFailure(ctx, "list request matches failed", err, "blood_request_id", bloodRequestID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleListDonorMatches handles GET /donors/me/matches.
func (h *Handler) HandleListDonorMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ListDonorMatches(ctx, userID, opts)
	if err != nil {
		h.logFailure(ctx, "list donor matches failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleListHistory handles GET /donors/me/history.
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	records, err := h.service.ListHistory(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "list donation history failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"donations": records})
}

// HandleTransition handles POST /matches/{id}/{accept|decline|complete|cancel}.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	matchID, err := id.ParseMatchID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action := models.Action(chi.URLParam(r, "action"))
	if !action.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown match action"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	match, err := h.service.Transition(ctx, userID, matchID, action, req.Input())
	if err != nil {
		h.logFailure(ctx, "match transition failed", err,
			"match_id", matchID.String(),
			"action", string(action),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

// logFailure logs internal errors at error level and everything else at info.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args,
		"request_id", requestcontext.RequestID(ctx),
		"user_id", requestcontext.UserID(ctx).String(),
		"error", err,
	)
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.InfoContext(ctx, msg, args...)
}
