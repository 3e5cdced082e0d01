package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"seckill-client/config"
	"seckill-client/internal/clock"
	"seckill-client/internal/engine"
	"seckill-client/internal/guard"
	"seckill-client/internal/models"
	"seckill-client/internal/notify"
	"seckill-client/internal/remote"
	"seckill-client/internal/status"
	"seckill-client/internal/store"
	"seckill-client/internal/timer"
	"seckill-client/internal/util"
)

func main() {
	username := flag.String("user", "", "login as this user (uses the stored session when empty)")
	password := flag.String("pass", "demo", "password for -user")
	goodsID := flag.Int64("goods", 0, "attempt this offer (first live offer when 0)")
	flag.Parse()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Client.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting seckill client", zap.String("backend", cfg.Client.BaseURL))

	kv, err := store.OpenSQLiteKV(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open local storage: %v", err)
	}
	defer kv.Close()

	clk := clock.NewRealClock()
	sessions := store.NewSessionStore(kv)
	favorites := store.NewFavoriteStore(kv, clk)
	defer favorites.Close()
	attempts := store.NewSeckillStore(kv)

	client := remote.NewClient(cfg.Client.BaseURL, 10*time.Second, sessions.Token)
	notifier := notify.NewLogNotifier()

	limiter := guard.NewLimiter(
		time.Duration(cfg.Guard.WindowMs)*time.Millisecond,
		cfg.Guard.MaxPerWindow,
	)
	eng := engine.NewEngine(clk, limiter, sessions, attempts, client, client, client, notifier, engine.Config{
		Quantity:     cfg.Client.Quantity,
		Channel:      cfg.Client.Channel,
		PollInterval: time.Duration(cfg.Poller.IntervalMs) * time.Millisecond,
		PollRetries:  cfg.Poller.MaxAttempts,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Interrupted, cancelling...")
		cancel()
	}()

	if *username != "" {
		user, token, err := client.Login(ctx, *username, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		if err := sessions.SetSession(user, token); err != nil {
			log.Fatalf("Failed to persist session: %v", err)
		}
		logger.Info("Logged in", zap.String("username", user.Username), zap.Int64("user_id", user.ID))
	}

	goods, err := client.GetGoodsList(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch goods: %v", err)
	}

	target := pickTarget(goods, *goodsID, clk)
	if target == nil {
		log.Fatalf("No live offer to attempt")
	}

	label, enabled := eng.ButtonState(target)
	fmt.Printf("Offer %d %q: %s (attemptable=%v, stock=%d)\n",
		target.ID, target.Name, label, enabled, target.StockCount)

	// An upcoming offer gets favorited with a start reminder.
	if status.Derive(target, clk.Now()) == status.PendingStart {
		if !favorites.IsFavorited(target.ID) {
			if _, err := favorites.ToggleFavorite(target.ID); err != nil {
				logger.Warn("Failed to favorite offer", zap.Error(err))
			}
		}
		set, err := favorites.SetReminder(target.ID, target.StartTime, func() {
			notifier.Notify(fmt.Sprintf("Sale for %q starts in %s", target.Name, store.ReminderLead), engine.SeverityInfo)
		})
		if err != nil {
			logger.Warn("Failed to set reminder", zap.Error(err))
		} else if set {
			fmt.Printf("Reminder set for %s\n", target.StartTime.Add(-store.ReminderLead).Format(time.RFC3339))
		}
	}

	eng.Reconcile(ctx, target.ID)

	// Countdown to the end of the sale while the attempt runs.
	cd := timer.NewCountdown(clk, time.Second)
	cd.OnComplete(func() {
		notifier.Notify("The sale window just closed", engine.SeverityInfo)
	})
	cd.ArmGated(target.StartTime, target.EndTime)
	defer cd.Stop()

	result, err := eng.Attempt(ctx, target)
	if err != nil {
		log.Fatalf("Attempt aborted: %v", err)
	}

	switch result.State {
	case engine.StateConfirmed:
		if result.Order != nil {
			deadline := result.Order.CreateTime.Add(models.PayDeadline)
			payCd := timer.NewCountdown(clk, time.Second)
			payCd.Arm(deadline)
			_, rem := payCd.Snapshot()
			payCd.Stop()
			fmt.Printf("Confirmed: order %d, total %d, pay before %s (%dm%ds left)\n",
				result.Order.OrderNo, result.Order.TotalAmount,
				deadline.Format(time.RFC3339), rem.Minutes, rem.Seconds)
		} else {
			fmt.Println("You already hold an order for this offer")
		}
	case engine.StateTimedOut:
		fmt.Printf("Order %d is still processing, check your order history\n", result.OrderNo)
	default:
		if result.LoginRequired {
			fmt.Println("Login required: run again with -user")
		} else {
			fmt.Printf("Not purchased: %s\n", result.Reason)
		}
	}
}

// pickTarget selects the requested offer, or the first live one.
func pickTarget(goods []models.Goods, goodsID int64, clk clock.Clock) *models.Goods {
	for i := range goods {
		if goodsID != 0 && goods[i].ID == goodsID {
			return &goods[i]
		}
		if goodsID == 0 && status.Derive(&goods[i], clk.Now()) == status.Live {
			return &goods[i]
		}
	}
	return nil
}
