package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seckill-client/internal/clock"
	"seckill-client/internal/guard"
	"seckill-client/internal/models"
	"seckill-client/internal/status"
	"seckill-client/internal/store"
	"seckill-client/internal/util"
)

// State is the purchase attempt lifecycle.
type State int

const (
	StateIdle State = iota
	StateChecking
	StateAdmitting
	StateSubmitting
	StateAwaitingConfirmation
	StateConfirmed
	StateRejected
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateAdmitting:
		return "admitting"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingConfirmation:
		return "awaiting-confirmation"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	case StateTimedOut:
		return "timed-out"
	}
	return "unknown"
}

// Result is the terminal outcome of one attempt.
type Result struct {
	State   State
	OrderNo int64
	Order   *models.Order
	// Reason is the user-facing explanation for a rejection.
	Reason string
	// LoginRequired means the attempt halted awaiting login. Deferred
	// retry, not a rejection.
	LoginRequired bool
	// Transient means the offer remains attemptable by this user.
	Transient bool
	// AlreadyHeld means the user already holds an order for the offer;
	// success-shaped for button-state purposes.
	AlreadyHeld bool
}

// Config tunes one engine instance.
type Config struct {
	Quantity     int
	Channel      string
	PollInterval time.Duration
	PollRetries  int
}

// Engine orchestrates a purchase attempt end to end: status check, login
// gate, local admission, fast local rejects, remote submit, optimistic
// record, confirmation polling. Side effects are visible only through store
// writes and the injected collaborators.
type Engine struct {
	clk      clock.Clock
	limiter  *guard.Limiter
	session  *store.SessionStore
	attempts *store.SeckillStore

	submitter Submitter
	poller    *Poller
	checker   AttemptChecker
	notifier  Notifier

	quantity int
	channel  string
	logger   *zap.Logger
}

// NewEngine wires the state machine. checker may be nil (reconciliation
// disabled).
func NewEngine(
	clk clock.Clock,
	limiter *guard.Limiter,
	session *store.SessionStore,
	attempts *store.SeckillStore,
	submitter Submitter,
	fetcher OrderFetcher,
	checker AttemptChecker,
	notifier Notifier,
	cfg Config,
) *Engine {
	if cfg.Quantity <= 0 {
		cfg.Quantity = 1
	}
	if cfg.Channel == "" {
		cfg.Channel = "PC"
	}
	return &Engine{
		clk:       clk,
		limiter:   limiter,
		session:   session,
		attempts:  attempts,
		submitter: submitter,
		poller:    NewPoller(fetcher, cfg.PollInterval, cfg.PollRetries),
		checker:   checker,
		notifier:  notifier,
		quantity:  cfg.Quantity,
		channel:   cfg.Channel,
		logger:    util.GetLogger(),
	}
}

// Attempt runs one purchase attempt for the offer. Blocking: it returns only
// once the attempt reaches a terminal state or ctx is cancelled.
func (e *Engine) Attempt(ctx context.Context, g *models.Goods) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Engine.Attempt")
	defer span.End()

	util.AttemptsTotal.Inc()

	// Checking: re-derive the effective status at click time. The render
	// the user clicked on may be stale.
	switch st := status.Derive(g, e.clk.Now()); st {
	case status.PendingStart:
		e.notify("The sale has not started yet", SeverityWarn)
		return e.reject(g, "not started", true, "not_started"), nil
	case status.Ended:
		e.notify("The sale has ended", SeverityInfo)
		return e.reject(g, "ended", false, "ended"), nil
	case status.Withdrawn:
		e.notify("This item has been withdrawn", SeverityInfo)
		return e.reject(g, "withdrawn", false, "withdrawn"), nil
	}

	sess := e.session.Current()
	if !sess.LoggedIn || sess.User == nil {
		e.notify("Please log in to participate", SeverityWarn)
		return &Result{State: StateChecking, LoginRequired: true, Transient: true}, nil
	}

	// Admitting: local sliding window. A denial is never recorded as a
	// failed attempt.
	if !e.limiter.TryAdmit(guard.PurchaseKey(g.ID), e.clk.Now()) {
		util.AdmissionDeniedTotal.Inc()
		e.notify("Too many requests, please slow down", SeverityWarn)
		return &Result{State: StateAdmitting, Reason: "too frequent", Transient: true}, nil
	}

	// Fast local rejects before spending a network round trip.
	if e.attempts.HasAttempted(g.ID) {
		e.notify("You already participated in this sale", SeverityWarn)
		r := e.reject(g, "already purchased", false, "already_attempted")
		r.AlreadyHeld = true
		return r, nil
	}
	if e.attempts.IsPending(g.ID) {
		return e.reject(g, "attempt already in progress", true, "pending"), nil
	}
	if g.StockCount <= 0 {
		e.notify("Sold out", SeverityInfo)
		return e.reject(g, "sold out", false, "out_of_stock"), nil
	}

	return e.submit(ctx, g, sess.User)
}

// submit sends the attempt and follows it through confirmation.
func (e *Engine) submit(ctx context.Context, g *models.Goods, user *models.User) (*Result, error) {
	// Pending is marked before the call returns so concurrent reads
	// immediately see the offer as in progress.
	e.attempts.SetPending(g.ID, true)

	req := SubmitRequest{
		UserID:         user.ID,
		GoodsID:        g.ID,
		Count:          e.quantity,
		Channel:        e.channel,
		IdempotencyKey: uuid.New().String(),
	}

	util.SubmissionsTotal.Inc()
	start := time.Now()
	res, err := e.submitter.SubmitPurchase(ctx, req)
	util.SubmitLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		e.attempts.SetPending(g.ID, false)
		return e.resolveSubmitError(g, err)
	}

	// Optimistic record ahead of confirmation: a restart before the poll
	// resolves must still show the offer as purchased.
	if err := e.attempts.AddRecord(g.ID, res.OrderNo, e.clk.Now()); err != nil {
		e.logger.Error("Failed to persist attempt record", zap.Error(err))
	}

	e.logger.Info("Submission accepted",
		zap.Int64("goods_id", g.ID),
		zap.Int64("order_no", res.OrderNo))

	return e.awaitConfirmation(ctx, g, res.OrderNo)
}

func (e *Engine) resolveSubmitError(g *models.Goods, err error) (*Result, error) {
	switch {
	case errors.Is(err, ErrAlreadyAttempted):
		// The server says this user already succeeded. Converge to a
		// success-shaped local state instead of surfacing an error.
		util.DuplicateConvergedTotal.Inc()
		if err := e.attempts.MarkAttempted(g.ID, e.clk.Now()); err != nil {
			e.logger.Error("Failed to persist attempted flag", zap.Error(err))
		}
		e.notify("You already secured this item", SeverityInfo)
		return &Result{State: StateConfirmed, AlreadyHeld: true}, nil

	case errors.Is(err, ErrUnauthenticated):
		// Stale credential. Drop the session and defer to login.
		if err := e.session.Clear(); err != nil {
			e.logger.Error("Failed to clear session", zap.Error(err))
		}
		e.notify("Session expired, please log in again", SeverityWarn)
		return &Result{State: StateSubmitting, LoginRequired: true, Transient: true}, nil

	case errors.Is(err, ErrOutOfStock):
		e.notify("Sold out", SeverityInfo)
		return e.reject(g, "sold out", false, "out_of_stock"), nil

	case errors.Is(err, ErrNotLive):
		e.notify("The sale window is closed", SeverityInfo)
		return e.reject(g, "sale not live", false, "not_live"), nil

	case errors.Is(err, ErrRateLimited):
		e.notify("The system is busy, please retry shortly", SeverityWarn)
		return e.reject(g, "rate limited by server", true, "rate_limited"), nil

	default:
		e.logger.Error("Submission failed",
			zap.Int64("goods_id", g.ID),
			zap.Error(err))
		e.notify("Something went wrong, please try again", SeverityError)
		return e.reject(g, "submission failed", true, "unknown"), nil
	}
}

func (e *Engine) awaitConfirmation(ctx context.Context, g *models.Goods, orderNo int64) (*Result, error) {
	poll, err := e.poller.Await(ctx, orderNo)
	if err != nil {
		// Cancelled. The pending marker must not outlive the attempt.
		e.attempts.SetPending(g.ID, false)
		return nil, err
	}

	e.attempts.SetPending(g.ID, false)

	if poll.Outcome == PollTimedOut {
		e.notify("Order is still processing, check your order history later", SeverityInfo)
		return &Result{State: StateTimedOut, OrderNo: orderNo}, nil
	}

	e.notify("Purchase successful", SeverityInfo)
	return &Result{State: StateConfirmed, OrderNo: orderNo, Order: poll.Order}, nil
}

// Reconcile back-fills the local attempted flag from server truth. Best
// effort: any failure is logged and ignored.
func (e *Engine) Reconcile(ctx context.Context, goodsID int64) {
	if e.checker == nil {
		return
	}
	sess := e.session.Current()
	if !sess.LoggedIn || sess.User == nil {
		return
	}
	attempted, err := e.checker.CheckPriorAttempt(ctx, sess.User.ID, goodsID)
	if err != nil {
		e.logger.Debug("Prior attempt check failed", zap.Error(err))
		return
	}
	if attempted && !e.attempts.HasAttempted(goodsID) {
		if err := e.attempts.MarkAttempted(goodsID, e.clk.Now()); err != nil {
			e.logger.Error("Failed to persist attempted flag", zap.Error(err))
		}
	}
}

// ButtonState derives the purchase button label and enablement for an offer
// from current time, stores and stock.
func (e *Engine) ButtonState(g *models.Goods) (label string, enabled bool) {
	switch status.Derive(g, e.clk.Now()) {
	case status.Withdrawn:
		return "Withdrawn", false
	case status.PendingStart:
		return "Coming soon", false
	case status.Ended:
		return "Ended", false
	}
	if g.StockCount <= 0 {
		return "Sold out", false
	}
	if e.session.Current().LoggedIn && e.attempts.HasAttempted(g.ID) {
		return "Purchased", false
	}
	if e.attempts.IsPending(g.ID) {
		return "Processing...", false
	}
	return "Buy now", true
}

func (e *Engine) reject(g *models.Goods, reason string, transient bool, metric string) *Result {
	util.AttemptsRejectedTotal.WithLabelValues(metric).Inc()
	return &Result{State: StateRejected, Reason: reason, Transient: transient}
}

func (e *Engine) notify(msg string, sev Severity) {
	if e.notifier != nil {
		e.notifier.Notify(msg, sev)
	}
}
