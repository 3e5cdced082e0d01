package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"seckill-client/internal/models"
)

func TestDerive(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	goods := func(flag int) *models.Goods {
		return &models.Goods{ID: 1, StartTime: start, EndTime: end, Status: flag}
	}

	tests := []struct {
		name string
		flag int
		now  time.Time
		want Effective
	}{
		{"before start", models.GoodsNotStarted, start.Add(-time.Second), PendingStart},
		{"exactly at start", models.GoodsNotStarted, start, Live},
		{"mid window", models.GoodsInProgress, start.Add(time.Hour), Live},
		{"exactly at end", models.GoodsInProgress, end, Live},
		{"after end", models.GoodsInProgress, end.Add(time.Millisecond), Ended},
		{"withdrawn during window", models.GoodsOffShelf, start.Add(time.Hour), Withdrawn},
		{"withdrawn before start", models.GoodsOffShelf, start.Add(-time.Hour), Withdrawn},
		{"stale live flag before start", models.GoodsInProgress, start.Add(-time.Minute), PendingStart},
		{"stale pending flag after end", models.GoodsNotStarted, end.Add(time.Minute), Ended},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(goods(tt.flag), tt.now))
		})
	}
}

func TestDeriveIsPure(t *testing.T) {
	g := &models.Goods{
		StartTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
	}
	now := g.StartTime.Add(time.Minute)

	first := Derive(g, now)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Derive(g, now))
	}
	// Interleaved calls with other instants must not affect the result.
	Derive(g, g.EndTime.Add(time.Hour))
	assert.Equal(t, first, Derive(g, now))
}
