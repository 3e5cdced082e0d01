package sim

import (
	"context"
	"time"

	"go.uber.org/zap"

	"seckill-client/internal/models"
	"seckill-client/internal/util"
)

// OrderWorker consumes order events and materializes order rows after a
// configurable delay, reproducing the asynchronous order creation clients
// must poll through.
type OrderWorker struct {
	queue  Queue
	state  *State
	delay  time.Duration
	logger *zap.Logger
}

// NewOrderWorker creates a worker writing orders delay after submission.
func NewOrderWorker(queue Queue, state *State, delay time.Duration) *OrderWorker {
	return &OrderWorker{
		queue:  queue,
		state:  state,
		delay:  delay,
		logger: util.GetLogger(),
	}
}

// Start consumes until ctx is cancelled.
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker", zap.Duration("delay", w.delay))
	return w.queue.Consume(ctx, w.handle)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.queue.Close()
}

func (w *OrderWorker) handle(ctx context.Context, event *OrderCreatedEvent) error {
	if w.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.delay):
		}
	}

	goods, ok := w.state.GoodsByID(event.GoodsID)
	if !ok {
		w.logger.Error("Unknown goods in order event", zap.Int64("goods_id", event.GoodsID))
		return nil
	}

	now := time.Now()
	order := &models.Order{
		ID:          event.OrderNo,
		OrderNo:     event.OrderNo,
		UserID:      event.UserID,
		GoodsID:     event.GoodsID,
		GoodsName:   goods.Name,
		GoodsPrice:  goods.SeckillPrice,
		GoodsCount:  event.Count,
		TotalAmount: goods.SeckillPrice * int64(event.Count),
		Channel:     event.Channel,
		Status:      models.OrderStatusUnpaid,
		CreateTime:  now,
	}
	w.state.PutOrder(order)

	w.logger.Info("Order materialized",
		zap.Int64("order_no", order.OrderNo),
		zap.Int64("user_id", order.UserID),
		zap.Int64("goods_id", order.GoodsID))
	return nil
}
