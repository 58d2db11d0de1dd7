package service

import "fmt"

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DeliveryError reports that the notification sender failed.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to send OTP: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
