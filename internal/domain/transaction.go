package domain

import (
	"time"
)

// TransactionSource classifies where a ledger entry originated
type TransactionSource string

const (
	TransactionSourceCharging TransactionSource = "CHARGING"
	TransactionSourceWallet   TransactionSource = "WALLET"
	TransactionSourceOther    TransactionSource = "OTHER"
)

// IsValid returns true if the source is one of the known values
func (s TransactionSource) IsValid() bool {
	switch s {
	case TransactionSourceCharging, TransactionSourceWallet, TransactionSourceOther:
		return true
	}
	return false
}

// Transaction is an append-only ledger entry. One is created per verified
// charging session; entries are never updated or deleted.
type Transaction struct {
	ID          string            `json:"id" gorm:"primaryKey"`
	Amount      float64           `json:"amount"`
	Source      TransactionSource `json:"source" gorm:"index"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index"`
}

// LedgerSummary aggregates ledger entries, optionally filtered by source
type LedgerSummary struct {
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}
