package engine

import (
	"context"

	"seckill-client/internal/models"
)

// SubmitRequest is one purchase submission.
type SubmitRequest struct {
	UserID         int64  `json:"userId"`
	GoodsID        int64  `json:"goodsId"`
	Count          int    `json:"count"`
	Channel        string `json:"channel"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// SubmitResult is the synchronous acceptance of a submission. The order
// itself materializes later; OrderNo is the reference to poll with.
type SubmitResult struct {
	OrderNo int64 `json:"orderNo"`
}

// Submitter sends a purchase attempt to the backend.
type Submitter interface {
	SubmitPurchase(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

// OrderFetcher looks up an order by its reference. Returns ErrOrderNotReady
// while the order has not materialized yet.
type OrderFetcher interface {
	FetchOrderByNo(ctx context.Context, orderNo int64) (*models.Order, error)
}

// AttemptChecker asks the backend whether the user already holds an order for
// the offer. Best effort: failures never block the caller.
type AttemptChecker interface {
	CheckPriorAttempt(ctx context.Context, userID, goodsID int64) (bool, error)
}

// Severity classifies a user-visible notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Notifier surfaces a message to the user. Fire and forget.
type Notifier interface {
	Notify(message string, severity Severity)
}
