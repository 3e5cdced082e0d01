package sim

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/decrement_stock.lua
var decrementStockScript string

// StockKeeper owns the authoritative stock counters and the per-offer set of
// users who already attempted, so duplicate submissions are rejected before
// stock is touched.
type StockKeeper interface {
	Init(ctx context.Context, goodsID int64, count int) error
	TryDecrement(ctx context.Context, goodsID int64) (bool, error)
	TryMarkAttempt(ctx context.Context, userID, goodsID int64) (bool, error)
	ReleaseAttempt(ctx context.Context, userID, goodsID int64) error
	HasAttempt(ctx context.Context, userID, goodsID int64) (bool, error)
}

// RedisStock keeps counters in Redis with an atomic Lua decrement so
// concurrent submissions cannot oversell.
type RedisStock struct {
	rdb        *redis.Client
	decrScript *redis.Script
}

// NewRedisStock connects and loads the decrement script.
func NewRedisStock(addr, password string, db int) (*RedisStock, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStock{
		rdb:        rdb,
		decrScript: redis.NewScript(decrementStockScript),
	}, nil
}

// Close closes the Redis connection
func (r *RedisStock) Close() error {
	return r.rdb.Close()
}

func stockKey(goodsID int64) string {
	return fmt.Sprintf("seckill:stock:%d", goodsID)
}

func attemptKey(goodsID int64) string {
	return fmt.Sprintf("seckill:attempted:%d", goodsID)
}

// Init sets the stock counter for an offer
func (r *RedisStock) Init(ctx context.Context, goodsID int64, count int) error {
	return r.rdb.Set(ctx, stockKey(goodsID), count, 0).Err()
}

// TryDecrement atomically takes one unit of stock; false means sold out
func (r *RedisStock) TryDecrement(ctx context.Context, goodsID int64) (bool, error) {
	result, err := r.decrScript.Run(ctx, r.rdb, []string{stockKey(goodsID)}).Result()
	if err != nil {
		return false, fmt.Errorf("decrement stock script failed: %w", err)
	}
	success, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return success == 1, nil
}

// TryMarkAttempt records the user against the offer; false means a prior
// attempt exists
func (r *RedisStock) TryMarkAttempt(ctx context.Context, userID, goodsID int64) (bool, error) {
	added, err := r.rdb.SAdd(ctx, attemptKey(goodsID), userID).Result()
	if err != nil {
		return false, err
	}
	return added == 1, nil
}

// ReleaseAttempt removes the user's attempt mark (compensation)
func (r *RedisStock) ReleaseAttempt(ctx context.Context, userID, goodsID int64) error {
	return r.rdb.SRem(ctx, attemptKey(goodsID), userID).Err()
}

// HasAttempt reports whether the user already attempted the offer
func (r *RedisStock) HasAttempt(ctx context.Context, userID, goodsID int64) (bool, error) {
	return r.rdb.SIsMember(ctx, attemptKey(goodsID), userID).Result()
}

// MemoryStock is the fallback keeper used when no Redis address is
// configured.
type MemoryStock struct {
	mu        sync.Mutex
	stock     map[int64]int
	attempted map[int64]map[int64]struct{}
}

func NewMemoryStock() *MemoryStock {
	return &MemoryStock{
		stock:     map[int64]int{},
		attempted: map[int64]map[int64]struct{}{},
	}
}

func (m *MemoryStock) Init(_ context.Context, goodsID int64, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[goodsID] = count
	return nil
}

func (m *MemoryStock) TryDecrement(_ context.Context, goodsID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stock[goodsID] <= 0 {
		return false, nil
	}
	m.stock[goodsID]--
	return true, nil
}

func (m *MemoryStock) TryMarkAttempt(_ context.Context, userID, goodsID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.attempted[goodsID]
	if !ok {
		set = map[int64]struct{}{}
		m.attempted[goodsID] = set
	}
	if _, exists := set[userID]; exists {
		return false, nil
	}
	set[userID] = struct{}{}
	return true, nil
}

func (m *MemoryStock) ReleaseAttempt(_ context.Context, userID, goodsID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.attempted[goodsID]; ok {
		delete(set, userID)
	}
	return nil
}

func (m *MemoryStock) HasAttempt(_ context.Context, userID, goodsID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.attempted[goodsID]
	if !ok {
		return false, nil
	}
	_, exists := set[userID]
	return exists, nil
}
