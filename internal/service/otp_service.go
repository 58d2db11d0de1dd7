package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/config"
	"github.com/ugxchange/ugxchange/internal/models"
	"github.com/ugxchange/ugxchange/internal/notify"
	"github.com/ugxchange/ugxchange/internal/random"
	"github.com/ugxchange/ugxchange/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type OTPService struct {
	store  repository.OTPStore
	sender notify.Sender
	source random.Source
	cfg    *config.OTPConfig
	now    func() time.Time
	logger *logrus.Logger
}

func NewOTPService(
	store repository.OTPStore,
	sender notify.Sender,
	source random.Source,
	cfg *config.OTPConfig,
	logger *logrus.Logger,
) *OTPService {
	return &OTPService{
		store:  store,
		sender: sender,
		source: source,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// GenerateOTP issues a new code for phone, replacing any outstanding one, and
// sends it. When sending fails the new record stays stored but the caller
// gets a *DeliveryError and no code.
func (s *OTPService) GenerateOTP(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", &ValidationError{Field: "phone", Message: "phone number required"}
	}

	code, err := s.source.Digits(s.cfg.Length)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash OTP: %w", err)
	}

	rec := models.OTPRecord{
		Phone:     phone,
		CodeHash:  string(hashed),
		CreatedAt: s.now(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", err
	}

	message := fmt.Sprintf("Your UGXchange verification code is %s", code)
	if err := s.sender.Send(ctx, phone, message); err != nil {
		s.logger.WithError(err).WithField("phone", phone).Error("Failed to send OTP")
		return "", &DeliveryError{Err: err}
	}

	s.logger.WithField("phone", phone).Info("OTP issued")
	return code, nil
}

// VerifyOTP checks code against the outstanding record for phone. Negative
// outcomes are results, not errors; err is only set when the store fails.
// An expired record is left in place so later attempts keep reporting
// VerificationExpired until a new code is generated.
func (s *OTPService) VerifyOTP(ctx context.Context, phone, code string) (models.VerificationResult, error) {
	phone = strings.TrimSpace(phone)
	code = strings.TrimSpace(code)
	now := s.now()

	result := models.VerificationNoOTPPending
	found, err := s.store.ConsumeIf(ctx, phone, func(rec models.OTPRecord) bool {
		if now.Sub(rec.CreatedAt) > s.cfg.Expiry {
			result = models.VerificationExpired
			return false
		}
		if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(code)) != nil {
			result = models.VerificationMismatch
			return false
		}
		result = models.VerificationSuccess
		return true
	})
	if err != nil {
		return models.VerificationNoOTPPending, fmt.Errorf("failed to verify OTP: %w", err)
	}
	if !found {
		result = models.VerificationNoOTPPending
	}

	s.logger.WithFields(logrus.Fields{
		"phone":  phone,
		"result": result.String(),
	}).Info("OTP verification")

	return result, nil
}
