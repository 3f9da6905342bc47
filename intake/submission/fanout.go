package submission

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/teleform/core/logger"
	"github.com/m3rciful/teleform/core/metrics"
	"github.com/m3rciful/teleform/intake/domain"
)

// fanOut delivers sub to every recipient of ch with bounded concurrency.
// A failing or panicking delivery is logged and never affects the others.
func (l *Lifecycle) fanOut(ctx context.Context, sub domain.Submission, ch domain.Channel) int {
	started := time.Now()
	recipients, err := l.channels.Recipients(ctx, ch)
	if err != nil {
		logger.LogEvent(ctx, l.fanLog, slog.LevelError, "fanout.recipients",
			slog.String("status", "fail"),
			slog.Int64("submission_id", sub.ID),
			slog.Any("err", err),
		)
		return 0
	}

	var delivered atomic.Int32
	var g errgroup.Group
	g.SetLimit(l.limits.FanoutConcurrency)
	for _, uid := range recipients {
		g.Go(func() error {
			if err := l.deliver(ctx, uid, sub, ch); err != nil {
				metrics.RecordFanout(false)
				logger.LogEvent(ctx, l.fanLog, slog.LevelWarn, "fanout.deliver",
					slog.String("status", "fail"),
					slog.Int64("submission_id", sub.ID),
					slog.Int64("moderator_id", uid),
					slog.Any("err", err),
				)
				return nil
			}
			metrics.RecordFanout(true)
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	n := int(delivered.Load())
	logger.LogEvent(ctx, l.fanLog, slog.LevelInfo, "fanout.done",
		slog.String("status", "ok"),
		slog.Int64("submission_id", sub.ID),
		slog.Int("recipients", len(recipients)),
		slog.Int("delivered", n),
		slog.Duration("duration", logger.Took(started)),
	)
	return n
}

func (l *Lifecycle) deliver(ctx context.Context, uid int64, sub domain.Submission, ch domain.Channel) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return l.transport.DeliverToModerator(ctx, uid, sub, ch)
}
