package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seckill-client/internal/clock"
	"seckill-client/internal/models"
)

func mockClk() *clock.MockClock {
	return clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

func TestSQLiteKVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.db")

	kv, err := OpenSQLiteKV(path)
	require.NoError(t, err)

	require.NoError(t, kv.Put("k", "v1"))
	require.NoError(t, kv.Put("k", "v2"))

	v, ok, err := kv.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	_, ok, err = kv.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Delete("k"))
	_, ok, err = kv.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Close())

	// State survives reopening the same file.
	kv, err = OpenSQLiteKV(path)
	require.NoError(t, err)
	defer kv.Close()
	require.NoError(t, kv.Put("persisted", "yes"))
	v, ok, err = kv.Get("persisted")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestSessionStoreRoundTrip(t *testing.T) {
	kv := NewMemoryKV()

	s := NewSessionStore(kv)
	assert.False(t, s.Current().LoggedIn)
	assert.Empty(t, s.Token())

	user := &models.User{ID: 7, Username: "alice"}
	require.NoError(t, s.SetSession(user, "tok-123"))
	assert.Equal(t, "tok-123", s.Token())

	// A fresh store over the same KV sees the persisted session.
	restored := NewSessionStore(kv)
	cur := restored.Current()
	assert.True(t, cur.LoggedIn)
	assert.Equal(t, "tok-123", cur.Token)
	require.NotNil(t, cur.User)
	assert.Equal(t, int64(7), cur.User.ID)

	require.NoError(t, restored.Clear())
	assert.Empty(t, restored.Token())
	assert.False(t, NewSessionStore(kv).Current().LoggedIn)
}

func TestSessionStoreCorruptPayload(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Put("session", "{not json"))

	s := NewSessionStore(kv)
	assert.False(t, s.Current().LoggedIn)
	assert.Empty(t, s.Token())
}

func TestToggleFavoriteRestoresSerializedForm(t *testing.T) {
	kv := NewMemoryKV()
	clk := mockClk()
	s := NewFavoriteStore(kv, clk)

	on, err := s.ToggleFavorite(1)
	require.NoError(t, err)
	assert.True(t, on)

	before, ok, err := kv.Get("favorites")
	require.NoError(t, err)
	require.True(t, ok)

	on, err = s.ToggleFavorite(2)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = s.ToggleFavorite(2)
	require.NoError(t, err)
	assert.False(t, on)

	after, ok, err := kv.Get("favorites")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestFavoriteStorePersistence(t *testing.T) {
	kv := NewMemoryKV()
	clk := mockClk()

	s := NewFavoriteStore(kv, clk)
	_, err := s.ToggleFavorite(3)
	require.NoError(t, err)
	_, err = s.ToggleFavorite(1)
	require.NoError(t, err)

	restored := NewFavoriteStore(kv, clk)
	assert.True(t, restored.IsFavorited(3))
	assert.True(t, restored.IsFavorited(1))
	assert.False(t, restored.IsFavorited(2))
	assert.Equal(t, []int64{3, 1}, restored.FavoriteIDs())
}

func TestFavoriteStoreCorruptPayload(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Put("favorites", "null}"))

	s := NewFavoriteStore(kv, mockClk())
	assert.Empty(t, s.FavoriteIDs())
}

func TestSetReminderLeadPassed(t *testing.T) {
	kv := NewMemoryKV()
	clk := mockClk()
	s := NewFavoriteStore(kv, clk)
	defer s.Close()

	// Start within the lead window: nothing to schedule.
	set, err := s.SetReminder(1, clk.Now().Add(ReminderLead-time.Second), func() {})
	require.NoError(t, err)
	assert.False(t, set)
	assert.False(t, s.HasReminder(1))

	set, err = s.SetReminder(1, clk.Now().Add(ReminderLead+time.Hour), func() {})
	require.NoError(t, err)
	assert.True(t, set)
	assert.True(t, s.HasReminder(1))

	require.NoError(t, s.RemoveReminder(1))
	assert.False(t, s.HasReminder(1))
}

func TestReminderFires(t *testing.T) {
	kv := NewMemoryKV()
	clk := clock.NewRealClock()
	s := NewFavoriteStore(kv, clk)
	defer s.Close()

	fired := make(chan struct{}, 1)
	set, err := s.SetReminder(1, clk.Now().Add(ReminderLead+30*time.Millisecond), func() {
		fired <- struct{}{}
	})
	require.NoError(t, err)
	require.True(t, set)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reminder never fired")
	}
}

func TestReminderIntentSurvivesRestartWithoutHandle(t *testing.T) {
	kv := NewMemoryKV()
	clk := mockClk()

	s := NewFavoriteStore(kv, clk)
	set, err := s.SetReminder(5, clk.Now().Add(time.Hour), func() {})
	require.NoError(t, err)
	require.True(t, set)
	s.Close()

	// The intent is persisted; the timer handle is not reconstructed.
	restored := NewFavoriteStore(kv, clk)
	assert.True(t, restored.HasReminder(5))
	restored.mu.Lock()
	defer restored.mu.Unlock()
	require.Len(t, restored.reminders, 1)
	assert.Nil(t, restored.reminders[0].handle)
}

func TestSeckillStoreRecordImmutable(t *testing.T) {
	kv := NewMemoryKV()
	s := NewSeckillStore(kv)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.AddRecord(1, 1001, now))
	require.NoError(t, s.AddRecord(1, 9999, now.Add(time.Hour)))

	rec, ok := s.RecordFor(1)
	require.True(t, ok)
	assert.Equal(t, int64(1001), rec.OrderNo)
	assert.Equal(t, now, rec.CreatedAt)
	assert.True(t, s.HasAttempted(1))
	assert.False(t, s.HasAttempted(2))
}

func TestSeckillStoreMarkAttempted(t *testing.T) {
	kv := NewMemoryKV()
	s := NewSeckillStore(kv)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.MarkAttempted(4, now))
	rec, ok := s.RecordFor(4)
	require.True(t, ok)
	assert.Zero(t, rec.OrderNo)

	// The flag persists but the order reference stays unknown.
	restored := NewSeckillStore(kv)
	assert.True(t, restored.HasAttempted(4))
}

func TestSeckillStorePendingIsProcessLocal(t *testing.T) {
	kv := NewMemoryKV()
	s := NewSeckillStore(kv)

	s.SetPending(1, true)
	assert.True(t, s.IsPending(1))

	restored := NewSeckillStore(kv)
	assert.False(t, restored.IsPending(1))

	s.SetPending(1, false)
	assert.False(t, s.IsPending(1))
}

func TestSeckillStoreCorruptPayload(t *testing.T) {
	kv := NewMemoryKV()
	require.NoError(t, kv.Put("seckill_records", `{"goodsId":`))

	s := NewSeckillStore(kv)
	assert.Empty(t, s.Records())
}

func TestSeckillStoreReset(t *testing.T) {
	kv := NewMemoryKV()
	s := NewSeckillStore(kv)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.AddRecord(1, 1001, now))
	s.SetPending(2, true)

	require.NoError(t, s.Reset())
	assert.Empty(t, s.Records())
	assert.False(t, s.IsPending(2))
	assert.Empty(t, NewSeckillStore(kv).Records())
}
