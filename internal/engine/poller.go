package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seckill-client/internal/models"
	"seckill-client/internal/util"
)

// Poll defaults: one query per second for thirty seconds.
const (
	DefaultPollInterval = time.Second
	DefaultPollRetries  = 30
)

// PollOutcome is the terminal state of a confirmation poll loop.
type PollOutcome int

const (
	// PollConfirmed means the order materialized.
	PollConfirmed PollOutcome = iota
	// PollTimedOut means the retry ceiling was reached. Distinct from a
	// failure: the order may still exist, the user should check later.
	PollTimedOut
)

// PollResult reports how a poll loop resolved.
type PollResult struct {
	Outcome  PollOutcome
	Order    *models.Order
	Attempts int
}

// Poller resolves a pending attempt into a confirmed order or a timeout by
// querying the order reference at a fixed interval with a bounded number of
// attempts. Failed queries are expected while the backend materializes the
// order and never stop the loop early.
type Poller struct {
	fetcher  OrderFetcher
	interval time.Duration
	retries  int
	logger   *zap.Logger
}

// NewPoller creates a poller; non-positive interval or retries fall back to
// the defaults.
func NewPoller(fetcher OrderFetcher, interval time.Duration, retries int) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if retries <= 0 {
		retries = DefaultPollRetries
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		retries:  retries,
		logger:   util.GetLogger(),
	}
}

// Await blocks until the order is confirmed, the retry ceiling is reached, or
// ctx is cancelled. After cancellation no further query is issued, even if an
// in-flight one resolves later.
func (p *Poller) Await(ctx context.Context, orderNo int64) (*PollResult, error) {
	ctx, span := util.StartSpan(ctx, "Poller.Await")
	defer span.End()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		order, err := p.query(ctx, orderNo)
		if err == nil {
			p.logger.Info("Order confirmed",
				zap.Int64("order_no", orderNo),
				zap.Int("attempts", attempt))
			util.PollResolutionsTotal.WithLabelValues("confirmed").Inc()
			return &PollResult{Outcome: PollConfirmed, Order: order, Attempts: attempt}, nil
		}

		if attempt >= p.retries {
			p.logger.Warn("Order confirmation timed out",
				zap.Int64("order_no", orderNo),
				zap.Int("attempts", attempt))
			util.PollResolutionsTotal.WithLabelValues("timed_out").Inc()
			return &PollResult{Outcome: PollTimedOut, Attempts: attempt}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

// query issues one fetch. A panic inside the fetcher is contained and
// reported as an ordinary failed attempt so it cannot kill the loop.
func (p *Poller) query(ctx context.Context, orderNo int64) (order *models.Order, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("order query panicked", zap.Any("panic", r))
			order = nil
			err = fmt.Errorf("order query panicked: %v", r)
		}
	}()

	util.PollQueriesTotal.Inc()
	return p.fetcher.FetchOrderByNo(ctx, orderNo)
}
