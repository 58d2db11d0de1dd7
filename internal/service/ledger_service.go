package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/models"
	"github.com/ugxchange/ugxchange/internal/random"
	"github.com/ugxchange/ugxchange/internal/repository"
)

// ReferenceLength is the length of a mobile-money reference.
const ReferenceLength = 10

type MobileMoneyRequest struct {
	Provider    string
	Amount      decimal.Decimal
	PhoneNumber string
}

type CryptoTransferRequest struct {
	Asset         string
	Amount        decimal.Decimal
	WalletAddress string
}

// LedgerService records financial operations as pending transactions. It
// does not validate inputs or contact any provider.
type LedgerService struct {
	store  repository.TransactionStore
	source random.Source
	now    func() time.Time
	logger *logrus.Logger
}

func NewLedgerService(store repository.TransactionStore, source random.Source, logger *logrus.Logger) *LedgerService {
	return &LedgerService{
		store:  store,
		source: source,
		now:    time.Now,
		logger: logger,
	}
}

func (s *LedgerService) Deposit(ctx context.Context, req MobileMoneyRequest) (*models.Transaction, error) {
	return s.recordMobileMoney(ctx, models.TransactionDeposit, req)
}

func (s *LedgerService) Withdraw(ctx context.Context, req MobileMoneyRequest) (*models.Transaction, error) {
	return s.recordMobileMoney(ctx, models.TransactionWithdrawal, req)
}

func (s *LedgerService) recordMobileMoney(ctx context.Context, txType models.TransactionType, req MobileMoneyRequest) (*models.Transaction, error) {
	ref, err := s.source.Alphanumeric(ReferenceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reference: %w", err)
	}

	return s.record(ctx, &models.Transaction{
		Type:      txType,
		Amount:    req.Amount,
		Method:    fmt.Sprintf("%s Mobile Money", req.Provider),
		Phone:     req.PhoneNumber,
		Reference: ref,
	})
}

// Transfer records a crypto transfer. Its txId is TX followed by the Unix
// time in seconds, so two transfers in the same second share a txId.
func (s *LedgerService) Transfer(ctx context.Context, req CryptoTransferRequest) (*models.Transaction, error) {
	return s.record(ctx, &models.Transaction{
		Type:    models.TransactionTransfer,
		Amount:  req.Amount,
		Asset:   req.Asset,
		Address: req.WalletAddress,
		TxID:    fmt.Sprintf("TX%d", s.now().Unix()),
	})
}

func (s *LedgerService) record(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	tx.Status = models.StatusPending
	tx.CreatedAt = s.now()

	if err := s.store.Append(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"id":     tx.ID,
		"type":   tx.Type,
		"amount": tx.Amount.String(),
	}).Info("Transaction recorded")

	return tx, nil
}

func (s *LedgerService) List(ctx context.Context) ([]models.Transaction, error) {
	return s.store.List(ctx)
}

// FindByReference returns the mobile-money transaction carrying reference.
// Crypto transfers have no reference and are never returned.
func (s *LedgerService) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	tx, err := s.store.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !tx.IsMobileMoney() {
		return nil, repository.ErrTransactionNotFound
	}
	return tx, nil
}
