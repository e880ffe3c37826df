package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"lending-engine/internal/api/handler/dto"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/pkg/apperrors"
)

// AdminHandler exposes the owner-gated protocol parameters and their read
// side. Ownership itself is enforced by the service, not here.
type AdminHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewAdminHandler(s loan.LoanService, l *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: s,
		logger:  l.With("component", "AdminHandler"),
	}
}

// GetProtocolConfig reads the current protocol parameters.
//
// @Summary Retrieve protocol configuration
// @Description Returns the platform fee and the duration bounds new loans are validated against.
// @Tags Protocol
// @Produce json
// @Success 200 {object} dto.ProtocolConfigResponse "Current protocol configuration"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /protocol/config [get]
// @Security BearerAuth
func (h *AdminHandler) GetProtocolConfig(w http.ResponseWriter, r *http.Request) {
	feeBps, err := h.service.GetPlatformFee(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	minSeconds, maxSeconds, err := h.service.GetDurationLimits(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	resp := dto.ProtocolConfigResponse{
		PlatformFeeBps:     feeBps,
		MinDurationSeconds: minSeconds,
		MaxDurationSeconds: maxSeconds,
	}
	respondJSON(w, http.StatusOK, resp)
}

// SetPlatformFee updates the platform fee.
//
// @Summary Update the platform fee
// @Description Sets the fee, in basis points, charged to lenders on funding. Only the protocol owner may call this; the fee is capped at 1000 basis points.
// @Tags Protocol
// @Accept json
// @Produce json
// @Param request body dto.SetPlatformFeeRequest true "Fee update payload"
// @Success 200 {object} dto.ProtocolConfigResponse "Updated protocol configuration"
// @Failure 400 {object} dto.ErrorResponse "Invalid or too-high fee"
// @Failure 403 {object} dto.ErrorResponse "Caller is not the protocol owner"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /protocol/fee [put]
// @Security BearerAuth
func (h *AdminHandler) SetPlatformFee(w http.ResponseWriter, r *http.Request) {
	var req dto.SetPlatformFeeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.SetPlatformFee(r.Context(), loan.Address(req.Caller), req.FeeBps); err != nil {
		respondError(w, err)
		return
	}

	h.GetProtocolConfig(w, r)
}

// SetDurationLimits updates the duration bounds for new loans.
//
// @Summary Update the loan duration limits
// @Description Sets the minimum and maximum duration, in seconds, that new loan requests are validated against. Only the protocol owner may call this. Existing loans are unaffected.
// @Tags Protocol
// @Accept json
// @Produce json
// @Param request body dto.SetDurationLimitsRequest true "Duration limits payload"
// @Success 200 {object} dto.ProtocolConfigResponse "Updated protocol configuration"
// @Failure 400 {object} dto.ErrorResponse "Negative duration value"
// @Failure 403 {object} dto.ErrorResponse "Caller is not the protocol owner"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /protocol/duration-limits [put]
// @Security BearerAuth
func (h *AdminHandler) SetDurationLimits(w http.ResponseWriter, r *http.Request) {
	var req dto.SetDurationLimitsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.SetDurationLimits(r.Context(), loan.Address(req.Caller), req.MinDurationSeconds, req.MaxDurationSeconds); err != nil {
		respondError(w, err)
		return
	}

	h.GetProtocolConfig(w, r)
}
