package service

import (
	"github.com/ugxchange/ugxchange/internal/config"
	"github.com/ugxchange/ugxchange/internal/models"
)

// RateService quotes the configured fixed exchange rate.
type RateService struct {
	cfg *config.RatesConfig
}

func NewRateService(cfg *config.RatesConfig) *RateService {
	return &RateService{cfg: cfg}
}

func (s *RateService) Quote() models.Rates {
	return models.Rates{Buy: s.cfg.Buy, Sell: s.cfg.Sell}
}
