package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hunter/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	path := filepath.Join(t.TempDir(), "hunter.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAgentRepoCreateGetList(t *testing.T) {
	db := newTestDB(t)
	repo := NewAgentRepo(db)
	ctx := context.Background()
	now := time.Now()

	agent := models.Agent{ID: "a1", Name: "crypto-1", Kind: models.KindCryptoHunter, Status: models.AgentIdle, Active: true, Config: "{}", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, agent))

	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "crypto-1", got.Name)
	assert.True(t, got.Active)

	list, err := repo.List(ctx, models.KindCryptoHunter)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.UpdateStatus(ctx, "a1", models.AgentError, "boom", now))
	got, err = repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AgentError, got.Status)
	assert.Equal(t, "boom", got.LastError)
}

func TestPositionRepoRoundTripsOpenAndClose(t *testing.T) {
	db := newTestDB(t)
	agents := NewAgentRepo(db)
	positions := NewPositionRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, agents.Create(ctx, models.Agent{ID: "a1", Name: "crypto-1", Kind: models.KindCryptoHunter, Status: models.AgentIdle, Config: "{}", CreatedAt: now, UpdatedAt: now}))

	pos := models.Position{ID: "p1", AgentID: "a1", Symbol: "BTC-USD", Side: models.SideLong, Quantity: 1, EntryPrice: 100, AllocatedAmount: 100, Status: models.PositionOpen, CreatedAt: now}
	require.NoError(t, positions.SavePosition(ctx, pos))

	open, err := positions.OpenPositions(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "BTC-USD", open[0].Symbol)

	closedAt := now.Add(time.Hour)
	pos.Status = models.PositionClosed
	pos.ClosedAt = &closedAt
	require.NoError(t, positions.SavePosition(ctx, pos))

	open, err = positions.OpenPositions(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, open)

	trade := models.Trade{ID: "t1", AgentID: "a1", PositionID: "p1", Symbol: "BTC-USD", Side: models.TradeSell, Quantity: 1, Price: 110, Notional: 110, OrderType: models.OrderMarket, Status: "filled", ExecutedAt: now}
	require.NoError(t, positions.InsertTrade(ctx, trade))
	trades, err := positions.TradesForAgent(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
}

func TestWatchlistRepoExpiresStaleRows(t *testing.T) {
	db := newTestDB(t)
	agents := NewAgentRepo(db)
	wl := NewWatchlistRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, agents.Create(ctx, models.Agent{ID: "a1", Name: "crypto-1", Kind: models.KindCryptoHunter, Status: models.AgentIdle, Config: "{}", CreatedAt: now, UpdatedAt: now}))

	old := now.Add(-72 * time.Hour)
	require.NoError(t, wl.UpsertWatchlist(ctx, models.Watchlist{ID: "w1", AgentID: "a1", Symbol: "ETH-USD", Status: models.WatchWatching, CreatedAt: old, UpdatedAt: old}))

	require.NoError(t, wl.ExpireOlderThan(ctx, "a1", now.Add(-48*time.Hour)))

	rows, err := wl.Watchlist(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWatchlistRepoUpsertReusesWatchingRow(t *testing.T) {
	db := newTestDB(t)
	agents := NewAgentRepo(db)
	wl := NewWatchlistRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, agents.Create(ctx, models.Agent{ID: "a1", Name: "crypto-1", Kind: models.KindCryptoHunter, Status: models.AgentIdle, Config: "{}", CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, wl.UpsertWatchlist(ctx, models.Watchlist{
		ID: "w1", AgentID: "a1", Symbol: "ETH-USD", Status: models.WatchWatching,
		EntryPrice: 100, CreatedAt: now, UpdatedAt: now,
	}))
	// A later cycle re-scores the same symbol under a fresh id; this must
	// update the existing watching row rather than insert a second one.
	require.NoError(t, wl.UpsertWatchlist(ctx, models.Watchlist{
		ID: "w2", AgentID: "a1", Symbol: "ETH-USD", Status: models.WatchWatching,
		EntryPrice: 110, CreatedAt: now, UpdatedAt: now.Add(time.Minute),
	}))

	rows, err := wl.Watchlist(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "w1", rows[0].ID)
	assert.Equal(t, 110.0, rows[0].EntryPrice)
}

func TestWatchlistRepoKindFollowsAgentNotTrigger(t *testing.T) {
	db := newTestDB(t)
	agents := NewAgentRepo(db)
	wl := NewWatchlistRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, agents.Create(ctx, models.Agent{ID: "g1", Name: "gem-1", Kind: models.KindGemHunter, Status: models.AgentIdle, Config: "{}", CreatedAt: now, UpdatedAt: now}))
	// entry_trigger=immediate used to be read as "crypto" regardless of
	// the owning agent; kind must follow the agent instead.
	require.NoError(t, wl.UpsertWatchlist(ctx, models.Watchlist{
		ID: "w1", AgentID: "g1", Symbol: "AAPL", Status: models.WatchWatching,
		EntryTrigger: models.TriggerImmediate, CreatedAt: now, UpdatedAt: now,
	}))

	var kind string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT kind FROM watchlist WHERE id = ?`, "w1").Scan(&kind))
	assert.Equal(t, "equities", kind)
}

func TestAgentRunRepoOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	agents := NewAgentRepo(db)
	runs := NewAgentRunRepo(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, agents.Create(ctx, models.Agent{ID: "a1", Name: "crypto-1", Kind: models.KindCryptoHunter, Status: models.AgentIdle, Config: "{}", CreatedAt: now, UpdatedAt: now}))

	require.NoError(t, runs.Insert(ctx, "a1", models.AgentRun{Scanned: 3, StartedAt: now, EndedAt: now}))
	require.NoError(t, runs.Insert(ctx, "a1", models.AgentRun{Scanned: 5, StartedAt: now.Add(time.Minute), EndedAt: now.Add(time.Minute)}))

	history, err := runs.ForAgent(ctx, "a1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 5, history[0].Scanned)
}
