package services

import (
	"time"

	"github.com/rs/zerolog"

	"agenda/internal/clock"
	"agenda/internal/store"
)

// DefaultJanitorTick is how often expired tokens are swept.
const DefaultJanitorTick = time.Hour

// TokenJanitor garbage-collects expired email-verification and
// password-reset tokens. It has no dependency on the reminder path.
type TokenJanitor struct {
	store store.Store
	clock clock.Clock
	log   zerolog.Logger
}

// NewTokenJanitor builds a janitor over the given store and clock
func NewTokenJanitor(st store.Store, clk clock.Clock, log zerolog.Logger) *TokenJanitor {
	return &TokenJanitor{store: st, clock: clk, log: log}
}

// RunTick deletes every token past its expiry instant.
func (j *TokenJanitor) RunTick() {
	emailTokens, resetTokens, err := j.store.DeleteExpiredTokens(j.clock.Now())
	if err != nil {
		j.log.Error().Err(err).Msg("failed to clean up expired tokens")
		return
	}

	if emailTokens > 0 || resetTokens > 0 {
		j.log.Info().
			Int64("email_verification_tokens", emailTokens).
			Int64("password_reset_tokens", resetTokens).
			Msg("cleaned up expired tokens")
	}
}
