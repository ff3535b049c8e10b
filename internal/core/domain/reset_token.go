package domain

import "time"

// TokenState is derived from a ResetToken at a point in time; it is never stored.
type TokenState string

const (
	TokenIssued  TokenState = "issued"
	TokenUsed    TokenState = "used"
	TokenExpired TokenState = "expired"
)

// ResetToken is the single password-reset credential an account may hold.
// Issuing again replaces Token, ExpiryTime and Used on the same row.
type ResetToken struct {
	ID         int64     `json:"id"`
	AccountID  int64     `json:"account_id"`
	Token      string    `json:"-"`
	ExpiryTime time.Time `json:"expiry_time"`
	Used       bool      `json:"used"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsExpiredAt reports whether the token is past its expiry at t.
func (t *ResetToken) IsExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiryTime)
}

// StateAt evaluates the token lifecycle at now. USED wins over EXPIRED.
func (t *ResetToken) StateAt(now time.Time) TokenState {
	switch {
	case t.Used:
		return TokenUsed
	case t.IsExpiredAt(now):
		return TokenExpired
	default:
		return TokenIssued
	}
}

// UsableAt reports whether the token can still be consumed at now.
func (t *ResetToken) UsableAt(now time.Time) bool {
	return t.StateAt(now) == TokenIssued
}
