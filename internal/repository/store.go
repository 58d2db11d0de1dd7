package repository

import (
	"context"
	"errors"

	"github.com/ugxchange/ugxchange/internal/models"
)

var (
	ErrOTPNotFound         = errors.New("otp not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUserNotFound        = errors.New("user not found")

	// ErrConsumeConflict is returned when a consume kept losing races with
	// concurrent writers for the same phone.
	ErrConsumeConflict = errors.New("otp changed concurrently")

	// ErrLedgerConflict is returned when an append kept losing the ledger
	// counter to concurrent appends.
	ErrLedgerConflict = errors.New("ledger changed concurrently")
)

const (
	// maxConsumeAttempts bounds the optimistic retry loop of ConsumeIf.
	maxConsumeAttempts = 8

	// maxAppendAttempts bounds the optimistic retry loop of a networked
	// Append. Each lost attempt means another append succeeded.
	maxAppendAttempts = 64
)

// OTPStore keeps at most one OTP record per phone.
type OTPStore interface {
	// Put stores rec, replacing any record for the same phone.
	Put(ctx context.Context, rec models.OTPRecord) error
	// Get returns the record for phone or ErrOTPNotFound.
	Get(ctx context.Context, phone string) (*models.OTPRecord, error)
	// ConsumeIf reads the record for phone and deletes it when check returns
	// true. The read and the delete are atomic: if the record changes between
	// them, check is called again on the new state. found is false when no
	// record exists.
	ConsumeIf(ctx context.Context, phone string, check func(models.OTPRecord) bool) (found bool, err error)
}

// TransactionStore is the append-only ledger.
type TransactionStore interface {
	// Append assigns the next id to tx and stores it. Ids start at 1 and
	// follow append order.
	Append(ctx context.Context, tx *models.Transaction) error
	// List returns every transaction in id order.
	List(ctx context.Context) ([]models.Transaction, error)
	// FindByReference returns the earliest transaction carrying reference
	// or ErrTransactionNotFound.
	FindByReference(ctx context.Context, reference string) (*models.Transaction, error)
}

// UserStore keeps registered users keyed by phone.
type UserStore interface {
	Save(ctx context.Context, user *models.User) error
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
}
