package services

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// RateSource returns how many units of to one unit of from buys
type RateSource interface {
	GetRate(from, to string) (float64, error)
}

// FXService exposes USD-based exchange rates
type FXService struct {
	source RateSource
	log    zerolog.Logger
}

// NewFXService creates a new FX service
func NewFXService(source RateSource, log zerolog.Logger) *FXService {
	return &FXService{
		source: source,
		log:    log.With().Str("service", "fx").Logger(),
	}
}

// GetRate returns the USD-based rate: 1 USD = rate units of quoteCurrency
func (s *FXService) GetRate(quoteCurrency string) (float64, error) {
	quote := strings.ToUpper(strings.TrimSpace(quoteCurrency))
	if quote == "" {
		return 0, fmt.Errorf("empty currency")
	}
	if quote == "USD" {
		return 1.0, nil
	}

	rate, err := s.source.GetRate("USD", quote)
	if err != nil {
		s.log.Warn().Err(err).Str("currency", quote).Msg("Failed to get exchange rate")
		return 0, fmt.Errorf("failed to get USD/%s rate: %w", quote, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("invalid USD/%s rate %f", quote, rate)
	}
	return rate, nil
}
