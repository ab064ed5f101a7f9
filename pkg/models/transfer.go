package models

import (
	"errors"
	"time"
)

// Transfer is a single directed value-moving event observed on chain.
type Transfer struct {
	ID            int64     `json:"id,omitempty"`
	BlockNumber   int64     `json:"blockNumber"`
	BlockTime     time.Time `json:"blockTimestamp"`
	FromAddress   string    `json:"fromAddress"`
	ToAddress     string    `json:"toAddress"`
	Amount        string    `json:"amount"` // decimal string, see Account.Balance
	TxHash        string    `json:"txHash,omitempty"`
	EventIndex    int       `json:"eventIndex"`
}

// ErrInvalidTransfer is returned by Validate when an invariant is broken.
var ErrInvalidTransfer = errors.New("invalid transfer")

// Validate enforces the spec.md §3 Transfer invariants that are cheap to
// check locally (from != to, amount > 0 is checked by the caller once
// amount is parsed as a big.Int, since this package avoids a math/big
// dependency in the wire type itself).
func (t Transfer) Validate() error {
	if t.FromAddress == "" || t.ToAddress == "" {
		return ErrInvalidTransfer
	}
	if t.FromAddress == t.ToAddress {
		return ErrInvalidTransfer
	}
	return nil
}

// TransferStats aggregates all transfers between an ordered pair of
// addresses.
type TransferStats struct {
	FromAddress    string `json:"fromAddress"`
	ToAddress      string `json:"toAddress"`
	TotalAmount    string `json:"totalAmount"`
	TransferCount  int64  `json:"transferCount"`
	FirstBlock     int64  `json:"firstTransferBlock"`
	LastBlock      int64  `json:"lastTransferBlock"`
	AvgAmount      string `json:"avgAmount"`
}

// AccountStats is the per-address aggregate derived from Transfers.
type AccountStats struct {
	Address                 string `json:"address"`
	TotalReceived            string `json:"totalReceived"`
	TotalSent                string `json:"totalSent"`
	ReceiveCount              int64 `json:"receiveCount"`
	SendCount                 int64 `json:"sendCount"`
	UniqueSenders              int `json:"uniqueSenders"`
	UniqueReceivers            int `json:"uniqueReceivers"`
	FirstActivityBlock       int64 `json:"firstActivityBlock"`
	LastActivityBlock        int64 `json:"lastActivityBlock"`
	SuspiciousPatternCount     int `json:"suspiciousPatternCount"`
	HighRiskInteractionCount  int `json:"highRiskInteractionCount"`
}
