package models

import "time"

// ConfirmationSource identifies which channel completed a payment.
type ConfirmationSource string

const (
	SourceWebhook        ConfirmationSource = "webhook"
	SourcePosAttestation ConfirmationSource = "pos_attestation"
)

// ConfirmationState is the lifecycle of a payment attempt. The only legal
// transition is Pending -> Confirmed, exactly once.
type ConfirmationState string

const (
	StatePending   ConfirmationState = "pending"
	StateConfirmed ConfirmationState = "confirmed"
)

// PaymentSession is one payment attempt for one locker. Sessions are
// immutable after creation; a new attempt for the same locker gets a fresh
// OrderID instead of mutating an existing session.
type PaymentSession struct {
	OrderID     string    `json:"order_id"`
	LockID      string    `json:"lock_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	QRPayload   string    `json:"qr_payload"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConfirmationRecord tracks whether a session's payment has been observed.
// ConfirmedAt and ConfirmedBy are set only on the Pending -> Confirmed
// transition.
type ConfirmationRecord struct {
	OrderID     string             `json:"order_id"`
	LockID      string             `json:"lock_id"`
	Amount      int64              `json:"amount"`
	State       ConfirmationState  `json:"state"`
	CreatedAt   time.Time          `json:"created_at"`
	ConfirmedAt *time.Time         `json:"confirmed_at,omitempty"`
	ConfirmedBy ConfirmationSource `json:"confirmed_by,omitempty"`
	Note        string             `json:"note,omitempty"`
}
