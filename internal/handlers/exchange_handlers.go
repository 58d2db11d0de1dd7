package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/service"
)

// ExchangeHandlers serves rate quotes and user registration.
type ExchangeHandlers struct {
	rates  *service.RateService
	users  *service.UserService
	logger *logrus.Logger
}

func NewExchangeHandlers(rates *service.RateService, users *service.UserService, logger *logrus.Logger) *ExchangeHandlers {
	return &ExchangeHandlers{rates: rates, users: users, logger: logger}
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (h *ExchangeHandlers) Rates(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.rates.Quote())
}

func (h *ExchangeHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.users.Register(r.Context(), req.FullName, req.Email, req.Phone); err != nil {
		h.logger.WithError(err).Error("Failed to register user")
		respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: "User registered successfully",
	})
}
