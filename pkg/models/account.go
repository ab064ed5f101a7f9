package models

import "time"

// Identity mirrors an on-chain identity registration for an account.
type Identity struct {
	Display        string `json:"display,omitempty"`
	Legal          string `json:"legal,omitempty"`
	Web            string `json:"web,omitempty"`
	Email          string `json:"email,omitempty"`
	Twitter        string `json:"twitter,omitempty"`
	Riot           string `json:"riot,omitempty"`
	IsVerified     bool   `json:"isVerified"`
	ParentAddress  string `json:"parentAddress,omitempty"`
	SubDisplay     string `json:"subDisplay,omitempty"`
}

// Account is a record keyed by address. Balance is held as a decimal
// string so arbitrarily large on-chain balances survive JSON transport
// without float precision loss; callers needing arithmetic parse it
// with math/big.
type Account struct {
	Address        string    `json:"address"`
	Balance        string    `json:"balance"`
	Identity       *Identity `json:"identity,omitempty"`
	RiskScore      *int      `json:"riskScore,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	FirstSeenBlock int64     `json:"firstSeenBlock"`
	LastSeenBlock  int64     `json:"lastSeenBlock"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsStale reports whether the account's last update is older than the
// configured staleness threshold (spec default 24h).
func (a Account) IsStale(threshold time.Duration, now time.Time) bool {
	return now.Sub(a.UpdatedAt) > threshold
}
