package status

import (
	"time"

	"seckill-client/internal/models"
)

// Effective is the lifecycle state of an offer at a given instant.
type Effective int

const (
	Withdrawn Effective = iota
	PendingStart
	Live
	Ended
)

func (e Effective) String() string {
	switch e {
	case Withdrawn:
		return "withdrawn"
	case PendingStart:
		return "pending-start"
	case Live:
		return "live"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// Derive computes the effective state of an offer from its time window and the
// server withdrawal flag. A withdrawal always wins; everything else is clock
// math, so a stale server-cached phase label is never trusted. Both window
// boundaries are inclusive: now == start and now == end are Live.
func Derive(g *models.Goods, now time.Time) Effective {
	if g.Status == models.GoodsOffShelf {
		return Withdrawn
	}
	if now.Before(g.StartTime) {
		return PendingStart
	}
	if now.After(g.EndTime) {
		return Ended
	}
	return Live
}
