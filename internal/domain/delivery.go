package domain

import "time"

// Resend throttle limits for verification deliveries.
const (
	DeliveryExpiry      = 5 * time.Minute
	DeliveryCooldown    = 30 * time.Second
	DeliveryMaxAttempts = 5

	// DeliveryRetention is how long a record is kept before the table TTL removes it.
	DeliveryRetention = 24 * time.Hour
)

// DeliveryRecord tracks one outbound one-time-code message.
// PK: delivery_id. GSI on account_purpose + delivery_id finds the latest record per purpose.
type DeliveryRecord struct {
	DeliveryID     string      `json:"id" dynamodbav:"delivery_id"`
	AccountID      string      `json:"account_id" dynamodbav:"account_id"`
	Purpose        string      `json:"purpose" dynamodbav:"purpose"`
	AccountPurpose string      `json:"-" dynamodbav:"account_purpose"`
	SentFrom       string      `json:"sent_from" dynamodbav:"sent_from"`
	SentTo         string      `json:"sent_to" dynamodbav:"sent_to"`
	Subject        string      `json:"subject" dynamodbav:"subject"`
	Body           string      `json:"-" dynamodbav:"body"`
	CreatedAt      time.Time   `json:"created" dynamodbav:"created_at"`
	SentAt         *time.Time  `json:"sent_at,omitempty" dynamodbav:"sent_at"`
	ResentAt       []time.Time `json:"resent_at" dynamodbav:"resent_at"`
	CancelledAt    []time.Time `json:"cancelled_at" dynamodbav:"cancelled_at"`
	SendAttempts   int         `json:"send_attempts" dynamodbav:"send_attempts"`
	Archived       bool        `json:"archived" dynamodbav:"archived"`
	ExpiresAt      int64       `json:"-" dynamodbav:"expires_at"` // unix seconds, DynamoDB TTL
}

// AccountPurposeKey is the GSI partition value for an account and purpose.
func AccountPurposeKey(accountID, purpose string) string {
	return accountID + "#" + purpose
}

// CheckResend returns nil when a resend is permitted at now. The caller must then
// call RecordSend.
func (r *DeliveryRecord) CheckResend(now time.Time) error {
	if r.Archived || now.Sub(r.CreatedAt) > DeliveryExpiry || r.SendAttempts >= DeliveryMaxAttempts {
		return ErrResendBlocked
	}
	if now.Sub(r.latestAttempt()) < DeliveryCooldown {
		return ErrResendCooldown
	}
	return nil
}

// RecordSend notes a send. The first send sets SentAt; later ones are resends.
func (r *DeliveryRecord) RecordSend(now time.Time) {
	if r.SentAt == nil {
		t := now
		r.SentAt = &t
	} else {
		r.ResentAt = append(r.ResentAt, now)
	}
	r.SendAttempts++
}

// RecordCancel notes a cancellation. It costs an attempt like a send.
func (r *DeliveryRecord) RecordCancel(now time.Time) {
	r.CancelledAt = append(r.CancelledAt, now)
	r.SendAttempts++
}

// Live reports whether the code carried by the record may still be consumed:
// not archived and not cancelled since its latest send.
func (r *DeliveryRecord) Live() bool {
	if r.Archived || r.SentAt == nil {
		return false
	}
	n := len(r.CancelledAt)
	if n == 0 {
		return true
	}
	lastSend := *r.SentAt
	if m := len(r.ResentAt); m > 0 {
		lastSend = r.ResentAt[m-1]
	}
	return lastSend.After(r.CancelledAt[n-1])
}

// Archive makes the record permanently non-resendable.
func (r *DeliveryRecord) Archive() {
	r.Archived = true
}

func (r *DeliveryRecord) latestAttempt() time.Time {
	latest := r.CreatedAt
	if n := len(r.CancelledAt); n > 0 && r.CancelledAt[n-1].After(latest) {
		latest = r.CancelledAt[n-1]
	}
	if n := len(r.ResentAt); n > 0 && r.ResentAt[n-1].After(latest) {
		latest = r.ResentAt[n-1]
	}
	return latest
}
