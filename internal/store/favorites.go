package store

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"seckill-client/internal/clock"
	"seckill-client/internal/util"
)

const (
	favoritesKey = "favorites"
	remindersKey = "reminders"
)

// ReminderLead is how far ahead of the sale start a reminder fires.
const ReminderLead = 5 * time.Minute

// FavoriteEntry marks an offer as favorited.
type FavoriteEntry struct {
	GoodsID int64     `json:"goodsId"`
	AddedAt time.Time `json:"addedAt"`
}

// ReminderEntry records the intent to be notified before a sale starts. The
// scheduled handle is process-local: only the intent survives a restart, a
// missed firing is never delivered retroactively.
type ReminderEntry struct {
	GoodsID   int64     `json:"goodsId"`
	StartTime time.Time `json:"startTime"`

	handle *time.Timer
}

// FavoriteStore holds favorite and reminder state, persisted on every
// mutation. Toggles are idempotent: toggling twice restores the prior
// serialized form exactly.
type FavoriteStore struct {
	mu        sync.Mutex
	kv        KV
	clk       clock.Clock
	logger    *zap.Logger
	favorites []FavoriteEntry
	reminders []*ReminderEntry
}

// NewFavoriteStore loads persisted favorites and reminder intents. Corrupt
// payloads fall back to empty state. Reminder timers are not reconstructed.
func NewFavoriteStore(kv KV, clk clock.Clock) *FavoriteStore {
	s := &FavoriteStore{kv: kv, clk: clk, logger: util.GetLogger()}
	s.favorites = loadList[FavoriteEntry](kv, favoritesKey, s.logger)
	s.reminders = loadList[*ReminderEntry](kv, remindersKey, s.logger)
	return s
}

func loadList[T any](kv KV, key string, logger *zap.Logger) []T {
	raw, ok, err := kv.Get(key)
	if err != nil {
		logger.Warn("failed to load store key", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var list []T
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		logger.Warn("corrupt store payload, falling back to empty",
			zap.String("key", key), zap.Error(err))
		return nil
	}
	return list
}

// ToggleFavorite adds or removes the favorite mark; returns true when the
// offer is favorited after the call.
func (s *FavoriteStore) ToggleFavorite(goodsID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.favorites {
		if f.GoodsID == goodsID {
			s.favorites = append(s.favorites[:i], s.favorites[i+1:]...)
			return false, s.persistFavoritesLocked()
		}
	}
	s.favorites = append(s.favorites, FavoriteEntry{GoodsID: goodsID, AddedAt: s.clk.Now()})
	return true, s.persistFavoritesLocked()
}

// IsFavorited reports whether the offer is favorited.
func (s *FavoriteStore) IsFavorited(goodsID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.favorites {
		if f.GoodsID == goodsID {
			return true
		}
	}
	return false
}

// FavoriteIDs returns the favorited offer IDs in insertion order.
func (s *FavoriteStore) FavoriteIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.favorites))
	for _, f := range s.favorites {
		ids = append(ids, f.GoodsID)
	}
	return ids
}

// SetReminder schedules deliver to run ReminderLead before startTime and
// persists the intent. Returns false without scheduling when the lead instant
// has already passed. Replaces any existing reminder for the same offer.
func (s *FavoriteStore) SetReminder(goodsID int64, startTime time.Time, deliver func()) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remindAt := startTime.Add(-ReminderLead)
	delay := remindAt.Sub(s.clk.Now())
	if delay <= 0 {
		return false, nil
	}

	s.removeReminderLocked(goodsID)

	entry := &ReminderEntry{GoodsID: goodsID, StartTime: startTime}
	entry.handle = time.AfterFunc(delay, func() {
		util.RemindersFiredTotal.Inc()
		deliver()
	})
	s.reminders = append(s.reminders, entry)
	return true, s.persistRemindersLocked()
}

// RemoveReminder cancels and forgets the reminder for the offer.
func (s *FavoriteStore) RemoveReminder(goodsID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeReminderLocked(goodsID)
	return s.persistRemindersLocked()
}

// HasReminder reports whether a reminder intent exists for the offer.
func (s *FavoriteStore) HasReminder(goodsID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reminders {
		if r.GoodsID == goodsID {
			return true
		}
	}
	return false
}

// Close cancels all scheduled reminder timers.
func (s *FavoriteStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reminders {
		if r.handle != nil {
			r.handle.Stop()
			r.handle = nil
		}
	}
}

func (s *FavoriteStore) removeReminderLocked(goodsID int64) {
	for i, r := range s.reminders {
		if r.GoodsID == goodsID {
			if r.handle != nil {
				r.handle.Stop()
			}
			s.reminders = append(s.reminders[:i], s.reminders[i+1:]...)
			return
		}
	}
}

func (s *FavoriteStore) persistFavoritesLocked() error {
	raw, err := json.Marshal(s.favorites)
	if err != nil {
		return err
	}
	return s.kv.Put(favoritesKey, string(raw))
}

func (s *FavoriteStore) persistRemindersLocked() error {
	raw, err := json.Marshal(s.reminders)
	if err != nil {
		return err
	}
	return s.kv.Put(remindersKey, string(raw))
}
