package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/service"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

type Service interface {
	Get(ctx context.Context, actor id.UserID) (*models.Donor, error)
	SaveProfile(ctx context.Context, actor id.UserID, cmd service.ProfileCommand) (*models.Donor, error)
}

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

func (h *Handler) Register(r chi.Router) {
	r.Get("/donors/me", h.HandleGet)
	r.Put("/donors/me", h.HandleSave)
}

// ProfileRequest is the body of PUT /donors/me.
type ProfileRequest struct {
	Name      string `json:"name"`
	BloodType string `json:"blood_type"`
	City      string `json:"city"`
	State     string `json:"state"`
	Available *bool  `json:"available"`

	parsedBloodType id.BloodType
}

func (r *ProfileRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	bloodType, err := id.ParseBloodType(r.BloodType)
	if err != nil {
		return err
	}
	r.parsedBloodType = bloodType
	return nil
}

func (r *ProfileRequest) Command() service.ProfileCommand {
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return service.ProfileCommand{
		Name:      r.Name,
		BloodType: r.parsedBloodType,
		City:      r.City,
		State:     r.State,
		Available: available,
	}
}

// HandleGet handles GET /donors/me.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	donor, err := h.service.Get(r.Context(), requestcontext.UserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor)
}

// HandleSave handles PUT /donors/me.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	donor, err := h.service.SaveProfile(ctx, requestcontext.UserID(ctx), req.Command())
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to save donor profile",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor)
}
