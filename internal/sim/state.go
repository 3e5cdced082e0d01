package sim

import (
	"sync"
	"time"

	"seckill-client/internal/models"
)

// State is the simulator's in-memory world: offers, materialized orders and
// registered demo users.
type State struct {
	mu          sync.Mutex
	goods       map[int64]*models.Goods
	orders      map[int64]*models.Order
	users       map[string]*models.User
	nextUserID  int64
	nextOrderNo int64
}

// NewState seeds a demo catalog: one live sale, one upcoming, one ended.
func NewState(now time.Time) *State {
	s := &State{
		goods:       map[int64]*models.Goods{},
		orders:      map[int64]*models.Order{},
		users:       map[string]*models.User{},
		nextUserID:  1000,
		nextOrderNo: now.UnixMilli() * 1000,
	}

	seed := []*models.Goods{
		{
			ID: 1, Name: "Mechanical Keyboard", Title: "Hot-swappable, limited run",
			Price: 59900, SeckillPrice: 19900, StockCount: 100,
			StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
			Status: models.GoodsInProgress,
		},
		{
			ID: 2, Name: "Noise-Cancelling Headphones", Title: "Flash price, tonight only",
			Price: 129900, SeckillPrice: 49900, StockCount: 50,
			StartTime: now.Add(2 * time.Hour), EndTime: now.Add(4 * time.Hour),
			Status: models.GoodsNotStarted,
		},
		{
			ID: 3, Name: "Portable SSD 1TB", Title: "Yesterday's deal",
			Price: 89900, SeckillPrice: 39900, StockCount: 0,
			StartTime: now.Add(-26 * time.Hour), EndTime: now.Add(-24 * time.Hour),
			Status: models.GoodsEnded,
		},
	}
	for _, g := range seed {
		s.goods[g.ID] = g
	}
	return s
}

// Goods returns all offers.
func (s *State) Goods() []*models.Goods {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Goods, 0, len(s.goods))
	for _, g := range s.goods {
		out = append(out, g)
	}
	return out
}

// GoodsByID returns one offer.
func (s *State) GoodsByID(id int64) (*models.Goods, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goods[id]
	return g, ok
}

// DecrDisplayStock lowers the catalog stock counter shown to clients. The
// authoritative decrement happens in the stock keeper.
func (s *State) DecrDisplayStock(goodsID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.goods[goodsID]; ok && g.StockCount > 0 {
		g.StockCount--
	}
}

// Authenticate logs a demo user in, registering the username on first use.
func (s *State) Authenticate(username string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		return u
	}
	s.nextUserID++
	u := &models.User{ID: s.nextUserID, Username: username}
	s.users[username] = u
	return u
}

// NextOrderNo allocates a unique order reference.
func (s *State) NextOrderNo() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderNo++
	return s.nextOrderNo
}

// PutOrder materializes an order.
func (s *State) PutOrder(o *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderNo] = o
}

// OrderByNo looks an order up by reference.
func (s *State) OrderByNo(orderNo int64) (*models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderNo]
	return o, ok
}
