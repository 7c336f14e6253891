package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/olympiad/internal/db"
	"github.com/udisondev/olympiad/internal/olympiad"
)

// Полный жизненный цикл сервиса против реального PostgreSQL:
// первый запуск → бои → shutdown → рестарт → rollover → рестарт.

type noopDriver struct{}

func (noopDriver) Start(func(olympiad.MatchResult)) {}
func (noopDriver) Stop()                            {}
func (noopDriver) IsQuiescent() bool                { return true }

type noopAnnouncer struct{}

func (noopAnnouncer) Broadcast(string) {}

type noopPublisher struct{}

func (noopPublisher) PublishHeroes([]*olympiad.Hero) error { return nil }

func setupDB(t *testing.T) *db.DB {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, db.RunMigrations(ctx, sharedPGDSN))

	database, err := db.New(ctx, sharedPGDSN)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	// Изоляция между тестами на общем контейнере.
	for _, table := range []string{"olympiad_nobles", "olympiad_nobles_eom", "olympiad_heroes", "olympiad_data"} {
		_, err := database.Pool().Exec(ctx, "TRUNCATE "+table)
		require.NoError(t, err)
	}
	return database
}

func testRules() olympiad.Rules {
	r := olympiad.DefaultRules()
	r.DrainPollInterval = 10 * time.Millisecond
	r.DrainTimeout = 100 * time.Millisecond
	r.AnnounceGames = false
	return r
}

func newController(repo *db.NobleRepository) *olympiad.Controller {
	return olympiad.NewController(
		testRules(),
		olympiad.NewOlympiad(),
		repo,
		noopDriver{},
		noopAnnouncer{},
		noopPublisher{},
		nil,
	)
}

func waitCycle(t *testing.T, c *olympiad.Controller, want int32) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if c.Olympiad().CurrentCycle() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("cycle = %d; want %d", c.Olympiad().CurrentCycle(), want)
}

func TestOlympiadLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	database := setupDB(t)
	ctx := context.Background()
	repo := db.NewNobleRepository(database.Pool())

	// --- Первый запуск: дефолтное состояние уходит в БД.
	ctrl := newController(repo)
	require.NoError(t, ctrl.Load(ctx))
	assert.EqualValues(t, 0, ctrl.Olympiad().CurrentCycle())

	// Участники и бои.
	nobles := ctrl.Olympiad().Nobles()
	nobles.GetOrCreate(1, 88, "Alice")
	nobles.GetOrCreate(2, 88, "Bob")
	for range 11 {
		ctrl.HandleMatchResult(olympiad.MatchResult{WinnerID: 1, LoserID: 2, Classed: true})
	}

	ctrl.Stop(ctx)

	// --- Рестарт: статистика пережила процесс.
	ctrl = newController(repo)
	require.NoError(t, ctrl.Load(ctx))

	alice, ok := ctrl.Olympiad().GetNobleStats(1)
	require.True(t, ok)
	assert.EqualValues(t, 11, alice.Matches)
	assert.EqualValues(t, 11, alice.Wins)
	assert.True(t, alice.Points > olympiad.StartPoints)

	// --- Rollover: снимок в БД, живые записи очищены, цикл инкрементирован.
	ctrl.ForceRollover()
	waitCycle(t, ctrl, 1)
	ctrl.Stop(ctx)

	snapshot, err := repo.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1, "только Alice прошла порог wins > 0")
	assert.EqualValues(t, 1, snapshot[0].CharID)

	live, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)

	// --- Второй рестарт: новый цикл на месте, ранги и герои восстановлены.
	ctrl = newController(repo)
	require.NoError(t, ctrl.Load(ctx))
	assert.EqualValues(t, 1, ctrl.Olympiad().CurrentCycle())
	assert.True(t, ctrl.Olympiad().OlympiadEnd().After(time.Now()))
	assert.Equal(t, olympiad.Rank1, ctrl.Olympiad().GetRank(1))
	assert.Equal(t, 1, ctrl.Olympiad().GetPosition(1))
	if h := ctrl.Olympiad().HeroTable().Hero(88); assert.NotNil(t, h) {
		assert.EqualValues(t, 1, h.Count)
	}
	ctrl.Stop(ctx)
}

func TestOlympiadLifecycle_BanSurvivesRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	database := setupDB(t)
	ctx := context.Background()
	repo := db.NewNobleRepository(database.Pool())

	ctrl := newController(repo)
	require.NoError(t, ctrl.Load(ctx))

	ctrl.Olympiad().Nobles().GetOrCreate(1, 88, "Mallory")
	ctrl.Ban(1)
	ctrl.Stop(ctx)

	ctrl = newController(repo)
	require.NoError(t, ctrl.Load(ctx))

	stats, ok := ctrl.Olympiad().GetNobleStats(1)
	require.True(t, ok)
	assert.True(t, stats.Points < 0, "ban sign survives restart")

	ctrl.Unban(1)
	stats, _ = ctrl.Olympiad().GetNobleStats(1)
	assert.EqualValues(t, olympiad.StartPoints, stats.Points)
	ctrl.Stop(ctx)
}

func TestOlympiadLifecycle_WeeklyStatePersisted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	database := setupDB(t)
	ctx := context.Background()
	repo := db.NewNobleRepository(database.Pool())

	ctrl := newController(repo)
	require.NoError(t, ctrl.Load(ctx))
	firstWeekly := ctrl.Olympiad().NextWeeklyChange()
	ctrl.Stop(ctx)

	state, err := repo.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.True(t, state.NextWeeklyChange.Equal(firstWeekly))
}
