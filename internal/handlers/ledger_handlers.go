package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/models"
	"github.com/ugxchange/ugxchange/internal/repository"
	"github.com/ugxchange/ugxchange/internal/service"
)

type LedgerHandlers struct {
	ledger *service.LedgerService
	logger *logrus.Logger
}

func NewLedgerHandlers(ledger *service.LedgerService, logger *logrus.Logger) *LedgerHandlers {
	return &LedgerHandlers{ledger: ledger, logger: logger}
}

type MobileMoneyRequest struct {
	Provider    string          `json:"provider"`
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phoneNumber"`
}

type MobileMoneyResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

type CryptoTransferRequest struct {
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"walletAddress"`
}

type CryptoTransferResponse struct {
	Success bool   `json:"success"`
	TxID    string `json:"txId"`
	Message string `json:"message"`
}

type TransactionsResponse struct {
	Success      bool                 `json:"success"`
	Transactions []models.Transaction `json:"transactions"`
}

type TransactionStatusResponse struct {
	Success   bool                     `json:"success"`
	Reference string                   `json:"reference"`
	Status    models.TransactionStatus `json:"status"`
	Message   string                   `json:"message"`
}

func (h *LedgerHandlers) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mobileMoney(w, r, h.ledger.Deposit, "Deposit request initiated")
}

func (h *LedgerHandlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mobileMoney(w, r, h.ledger.Withdraw, "Withdrawal request initiated")
}

func (h *LedgerHandlers) mobileMoney(
	w http.ResponseWriter,
	r *http.Request,
	record func(ctx context.Context, req service.MobileMoneyRequest) (*models.Transaction, error),
	message string,
) {
	var req MobileMoneyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := record(r.Context(), service.MobileMoneyRequest{
		Provider:    req.Provider,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to record mobile money transaction")
		respondWithError(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	respondWithJSON(w, http.StatusOK, MobileMoneyResponse{
		Success:   true,
		Reference: tx.Reference,
		Message:   message,
	})
}

func (h *LedgerHandlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var req CryptoTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.ledger.Transfer(r.Context(), service.CryptoTransferRequest{
		Asset:         req.Asset,
		Amount:        req.Amount,
		WalletAddress: req.WalletAddress,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to record crypto transfer")
		respondWithError(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	respondWithJSON(w, http.StatusOK, CryptoTransferResponse{
		Success: true,
		TxID:    tx.TxID,
		Message: "Transfer initiated",
	})
}

func (h *LedgerHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list transactions")
		respondWithError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, TransactionsResponse{
		Success:      true,
		Transactions: txs,
	})
}

func (h *LedgerHandlers) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	tx, err := h.ledger.FindByReference(r.Context(), reference)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		respondWithError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up transaction")
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve transaction status")
		return
	}

	respondWithJSON(w, http.StatusOK, TransactionStatusResponse{
		Success:   true,
		Reference: tx.Reference,
		Status:    tx.Status,
		Message:   "Transaction is " + string(tx.Status),
	})
}
