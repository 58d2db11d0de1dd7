package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/middleware"
)

func NewRouter(
	otpHandlers *OTPHandlers,
	ledgerHandlers *LedgerHandlers,
	exchangeHandlers *ExchangeHandlers,
	logger *logrus.Logger,
) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.LoggingMiddleware(logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rates", exchangeHandlers.Rates).Methods("GET", "OPTIONS")
	api.HandleFunc("/users/register", exchangeHandlers.Register).Methods("POST", "OPTIONS")

	api.HandleFunc("/send-otp", otpHandlers.SendOTP).Methods("POST", "OPTIONS")
	api.HandleFunc("/verify-otp", otpHandlers.VerifyOTP).Methods("POST", "OPTIONS")

	api.HandleFunc("/deposit/mobile-money", ledgerHandlers.Deposit).Methods("POST", "OPTIONS")
	api.HandleFunc("/withdraw/mobile-money", ledgerHandlers.Withdraw).Methods("POST", "OPTIONS")
	api.HandleFunc("/crypto/transfer", ledgerHandlers.Transfer).Methods("POST", "OPTIONS")
	api.HandleFunc("/transactions", ledgerHandlers.ListTransactions).Methods("GET", "OPTIONS")
	api.HandleFunc("/mobile-money/status/{reference}", ledgerHandlers.TransactionStatus).Methods("GET", "OPTIONS")

	return router
}
