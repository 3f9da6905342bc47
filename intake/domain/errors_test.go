package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("accept: %w", E(KindForbidden, "submission.accept", "user %d is not a moderator", 7))

	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, "submission.accept: user 7 is not a moderator", errors.Unwrap(err).Error())
}

func TestRateLimitedCarriesRemaining(t *testing.T) {
	err := RateLimited("submission.create", 3590*time.Second)

	remaining, ok := RemainingOf(err)
	assert.True(t, ok)
	assert.Equal(t, 3590*time.Second, remaining)
	assert.Equal(t, "RATE_LIMITED", err.Code())

	_, ok = RemainingOf(ErrForbidden)
	assert.False(t, ok)
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("chat not found")
	err := Wrap(KindDispatchFailure, "submission.dispatch", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrDispatchFailure)
	assert.Equal(t, "submission.dispatch: DISPATCH_FAILURE: chat not found", err.Error())
	assert.Equal(t, Kind(""), KindOf(cause))
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusAccepted))
	assert.True(t, CanTransition(StatusPending, StatusRejected))
	assert.True(t, CanTransition(StatusAccepted, StatusPublished))

	assert.False(t, CanTransition(StatusPending, StatusPublished))
	assert.False(t, CanTransition(StatusAccepted, StatusRejected))
	assert.False(t, CanTransition(StatusAccepted, StatusPending))
	for _, to := range []Status{StatusPending, StatusAccepted, StatusRejected, StatusPublished} {
		assert.False(t, CanTransition(StatusPublished, to))
		assert.False(t, CanTransition(StatusRejected, to))
	}
	assert.True(t, StatusPublished.Terminal())
	assert.False(t, StatusAccepted.Terminal())
}
