package models

import "time"

// OTPRecord is the single outstanding verification code for a phone number.
// Only the bcrypt hash of the code is kept.
type OTPRecord struct {
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"code_hash"`
	CreatedAt time.Time `json:"created_at"`
}

// VerificationResult is the outcome of checking a submitted code.
type VerificationResult int

const (
	VerificationNoOTPPending VerificationResult = iota
	VerificationExpired
	VerificationMismatch
	VerificationSuccess
)

func (r VerificationResult) String() string {
	switch r {
	case VerificationNoOTPPending:
		return "no_otp_pending"
	case VerificationExpired:
		return "expired"
	case VerificationMismatch:
		return "mismatch"
	case VerificationSuccess:
		return "success"
	default:
		return "unknown"
	}
}
