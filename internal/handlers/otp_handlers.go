package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/models"
	"github.com/ugxchange/ugxchange/internal/service"
)

type OTPHandlers struct {
	otpService *service.OTPService
	validate   *validator.Validate
	logger     *logrus.Logger
}

func NewOTPHandlers(otpService *service.OTPService, logger *logrus.Logger) *OTPHandlers {
	return &OTPHandlers{
		otpService: otpService,
		validate:   validator.New(),
		logger:     logger,
	}
}

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

var verificationMessages = map[models.VerificationResult]string{
	models.VerificationSuccess:      "OTP verified successfully",
	models.VerificationNoOTPPending: "No OTP found for this phone number",
	models.VerificationExpired:      "OTP has expired",
	models.VerificationMismatch:     "Invalid OTP",
}

func (h *OTPHandlers) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "phone number required")
		return
	}

	_, err := h.otpService.GenerateOTP(r.Context(), req.Phone)
	if err != nil {
		var verr *service.ValidationError
		var derr *service.DeliveryError
		switch {
		case errors.As(err, &verr):
			respondWithError(w, http.StatusBadRequest, verr.Message)
		case errors.As(err, &derr):
			respondWithError(w, http.StatusInternalServerError, derr.Error())
		default:
			h.logger.WithError(err).Error("Failed to generate OTP")
			respondWithError(w, http.StatusInternalServerError, "Failed to generate OTP")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: "OTP sent successfully",
	})
}

func (h *OTPHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.otpService.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.logger.WithError(err).Error("Failed to verify OTP")
		respondWithError(w, http.StatusInternalServerError, "Failed to verify OTP")
		return
	}

	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: result == models.VerificationSuccess,
		Message: verificationMessages[result],
	})
}
