// Package cooldown tracks when each author last submitted to each channel.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m3rciful/teleform/intake/domain"
	"github.com/m3rciful/teleform/intake/store"
)

// Ledger reads and writes cooldown records.
type Ledger struct {
	store store.Cooldowns
}

// New returns a Ledger.
func New(s store.Cooldowns) *Ledger {
	return &Ledger{store: s}
}

// RecordSuccess stamps at as the author's last submission to the channel.
func (l *Ledger) RecordSuccess(ctx context.Context, userID, channelID int64, at time.Time) error {
	err := l.store.UpsertCooldown(ctx, domain.CooldownRecord{UserID: userID, ChannelID: channelID, LastSuccessAt: at})
	if err != nil {
		return fmt.Errorf("cooldown.record: %w", err)
	}
	return nil
}

// Remaining is how long the author must still wait at now, zero when free.
func (l *Ledger) Remaining(ctx context.Context, userID, channelID int64, now time.Time, window time.Duration) (time.Duration, error) {
	rec, err := l.store.Cooldown(ctx, userID, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cooldown.remaining: %w", err)
	}
	return Left(rec.LastSuccessAt, now, window), nil
}

// Left is max(0, window - (now - last)).
func Left(last, now time.Time, window time.Duration) time.Duration {
	left := window - now.Sub(last)
	if left < 0 {
		return 0
	}
	return left
}
