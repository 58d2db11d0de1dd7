package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/models"
)

// RedisOTPStore keeps OTP records as JSON strings under otp:<phone>.
type RedisOTPStore struct {
	client    *redis.Client
	retention time.Duration
	logger    *logrus.Logger
}

// NewRedisOTPStore returns a store whose keys expire after retention. A zero
// retention keeps records until they are consumed or overwritten.
func NewRedisOTPStore(client *redis.Client, retention time.Duration, logger *logrus.Logger) *RedisOTPStore {
	return &RedisOTPStore{
		client:    client,
		retention: retention,
		logger:    logger,
	}
}

func otpKey(phone string) string {
	return fmt.Sprintf("otp:%s", phone)
}

func (s *RedisOTPStore) Put(ctx context.Context, rec models.OTPRecord) error {
	dataJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal OTP data: %w", err)
	}

	if err := s.client.Set(ctx, otpKey(rec.Phone), dataJSON, s.retention).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store OTP in Redis")
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	return nil
}

func (s *RedisOTPStore) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	dataJSON, err := s.client.Get(ctx, otpKey(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get OTP: %w", err)
	}

	var rec models.OTPRecord
	if err := json.Unmarshal(dataJSON, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal OTP data: %w", err)
	}

	return &rec, nil
}

// ConsumeIf runs the check inside WATCH so the delete is discarded when
// another client touched the key in between.
func (s *RedisOTPStore) ConsumeIf(ctx context.Context, phone string, check func(models.OTPRecord) bool) (bool, error) {
	key := otpKey(phone)

	for attempt := 0; attempt < maxConsumeAttempts; attempt++ {
		found := false
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			dataJSON, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			found = true

			var rec models.OTPRecord
			if err := json.Unmarshal(dataJSON, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal OTP data: %w", err)
			}

			if !check(rec) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			s.logger.WithField("phone", phone).Debug("OTP changed during consume, retrying")
			continue
		}
		if err != nil {
			s.logger.WithError(err).Error("Failed to consume OTP in Redis")
			return false, fmt.Errorf("failed to consume OTP: %w", err)
		}
		return found, nil
	}

	return false, ErrConsumeConflict
}
