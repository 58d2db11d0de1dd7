package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugxchange/ugxchange/internal/models"
	"github.com/ugxchange/ugxchange/internal/repository"
)

type UserService struct {
	store  repository.UserStore
	logger *logrus.Logger
}

func NewUserService(store repository.UserStore, logger *logrus.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// Register stores the user as given. Fields are not validated.
func (s *UserService) Register(ctx context.Context, fullName, email, phone string) (*models.User, error) {
	user := &models.User{
		FullName:  strings.TrimSpace(fullName),
		Email:     strings.TrimSpace(email),
		Phone:     strings.TrimSpace(phone),
		CreatedAt: time.Now(),
	}

	if err := s.store.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.WithField("phone", user.Phone).Info("User registered")
	return user, nil
}
