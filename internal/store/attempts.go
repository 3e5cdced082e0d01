package store

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"seckill-client/internal/util"
)

const recordsKey = "seckill_records"

// AttemptRecord is the durable trace of one accepted purchase attempt.
// Written at most once per offer and immutable afterward. OrderNo 0 means the
// attempt is known to exist (server-confirmed duplicate or reconciliation)
// but the order reference was never observed locally.
type AttemptRecord struct {
	GoodsID   int64     `json:"goodsId"`
	OrderNo   int64     `json:"orderNo"`
	CreatedAt time.Time `json:"createdAt"`
}

// SeckillStore tracks accepted attempts (persisted) and in-flight attempts
// (process-local, reconstructed as absent on restart). Records are written
// optimistically at submission time so a restart mid-confirmation still shows
// the offer as already purchased.
type SeckillStore struct {
	mu      sync.Mutex
	kv      KV
	logger  *zap.Logger
	records []AttemptRecord
	pending map[int64]struct{}
}

// NewSeckillStore loads persisted attempt records; corrupt payloads fall back
// to empty state.
func NewSeckillStore(kv KV) *SeckillStore {
	s := &SeckillStore{kv: kv, logger: util.GetLogger(), pending: map[int64]struct{}{}}
	s.records = loadList[AttemptRecord](kv, recordsKey, s.logger)
	return s
}

// AddRecord records an accepted attempt exactly once. A second call for the
// same offer is a no-op; the first record is immutable.
func (s *SeckillStore) AddRecord(goodsID, orderNo int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.GoodsID == goodsID {
			return nil
		}
	}
	s.records = append(s.records, AttemptRecord{GoodsID: goodsID, OrderNo: orderNo, CreatedAt: now})
	return s.persistLocked()
}

// MarkAttempted back-fills an attempted flag without an order reference,
// used when the server reports the user already holds an order.
func (s *SeckillStore) MarkAttempted(goodsID int64, now time.Time) error {
	return s.AddRecord(goodsID, 0, now)
}

// HasAttempted reports whether an accepted attempt exists for the offer.
func (s *SeckillStore) HasAttempted(goodsID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.GoodsID == goodsID {
			return true
		}
	}
	return false
}

// RecordFor returns the attempt record for the offer, if any.
func (s *SeckillStore) RecordFor(goodsID int64) (AttemptRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.GoodsID == goodsID {
			return r, true
		}
	}
	return AttemptRecord{}, false
}

// Records returns a copy of all attempt records.
func (s *SeckillStore) Records() []AttemptRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AttemptRecord, len(s.records))
	copy(out, s.records)
	return out
}

// SetPending marks or clears the in-flight state for the offer.
func (s *SeckillStore) SetPending(goodsID int64, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pending {
		s.pending[goodsID] = struct{}{}
	} else {
		delete(s.pending, goodsID)
	}
}

// IsPending reports whether an attempt is currently mid-flight for the offer.
func (s *SeckillStore) IsPending(goodsID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[goodsID]
	return ok
}

// Reset drops all records and pending markers and persists the empty state.
func (s *SeckillStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.pending = map[int64]struct{}{}
	return s.persistLocked()
}

func (s *SeckillStore) persistLocked() error {
	raw, err := json.Marshal(s.records)
	if err != nil {
		return err
	}
	return s.kv.Put(recordsKey, string(raw))
}
