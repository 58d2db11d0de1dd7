package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionTransfer   TransactionType = "transfer"
)

type TransactionStatus string

// StatusPending is the only status a transaction reaches; nothing settles it.
const StatusPending TransactionStatus = "pending"

// Transaction is an append-only ledger entry. Mobile-money entries carry
// Method, Phone and Reference; crypto transfers carry Asset, Address and TxID.
type Transaction struct {
	ID        int64             `json:"id"`
	Type      TransactionType   `json:"type"`
	Amount    decimal.Decimal   `json:"amount"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`

	Method    string `json:"method,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Reference string `json:"reference,omitempty"`

	Asset   string `json:"asset,omitempty"`
	Address string `json:"address,omitempty"`
	TxID    string `json:"txId,omitempty"`
}

// IsMobileMoney reports whether t is a deposit or withdrawal.
func (t *Transaction) IsMobileMoney() bool {
	return t.Type == TransactionDeposit || t.Type == TransactionWithdrawal
}
