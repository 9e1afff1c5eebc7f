package domain

import "time"

type Session struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	AccountID string    `json:"account_id" dynamodbav:"account_id"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
	Account   *Account  `json:"account,omitempty" dynamodbav:"-"`
}

// StepUpClaim is the server-side step-up record for one session.
type StepUpClaim struct {
	SessionID string    `json:"session_id"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the claim still authorizes at now.
func (c *StepUpClaim) Valid(now time.Time) bool {
	return c != nil && now.Before(c.ExpiresAt)
}
