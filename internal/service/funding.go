package service

import (
	"context"
	"errors"
	"strings"

	"stokvel-ledger/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SimulatedFundingSource stands in for the card processor in development
// and test environments. Authorization is deterministic: a card reference
// ending in "0000" declines, everything else approves.
type SimulatedFundingSource struct {
	log zerolog.Logger
}

// NewSimulatedFundingSource creates the simulator.
func NewSimulatedFundingSource(log zerolog.Logger) *SimulatedFundingSource {
	return &SimulatedFundingSource{log: log}
}

// Authorize implements ports.FundingSource.
func (s *SimulatedFundingSource) Authorize(_ context.Context, userID uuid.UUID, cardRef string, amount money.Money) error {
	if cardRef == "" {
		return errors.New("missing card reference")
	}
	if strings.HasSuffix(cardRef, "0000") {
		s.log.Info().
			Str("user_id", userID.String()).
			Int64("amount_cents", amount.Cents).
			Msg("simulated funding declined")
		return errors.New("card declined")
	}
	return nil
}
