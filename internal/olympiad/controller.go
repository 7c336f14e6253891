package olympiad

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/olympiad/internal/metrics"
)

// Controller — машина состояний цикла олимпиады: Armed (таймеры
// взведены) → RollingOver (шаги 1-9) → Armed (следующий цикл).
//
// Владеет таймерами конца цикла, конца валидации и weekly grant,
// а также WindowScheduler. Все таймеры хранятся для cancel-before-arm:
// повторный Start не дублирует их.
type Controller struct {
	rules    Rules
	oly      *Olympiad
	store    Store
	announce Announcer
	heroes   HeroPublisher
	metrics  *metrics.Metrics
	windows  *WindowScheduler

	// now подменяется в тестах.
	now func() time.Time

	mu              sync.Mutex
	endTimer        *time.Timer
	weeklyTimer     *time.Timer
	validationTimer *time.Timer

	// rolloverMu сериализует rollover: админский ForceRollover встаёт
	// в очередь (Lock), плановый таймер при занятом rollover отбрасывается
	// (TryLock + warning).
	rolloverMu sync.Mutex
}

// NewController создаёт контроллер. Таймеры не взводятся до Start.
func NewController(
	rules Rules,
	oly *Olympiad,
	store Store,
	driver MatchDriver,
	announce Announcer,
	heroes HeroPublisher,
	m *metrics.Metrics,
) *Controller {
	c := &Controller{
		rules:    rules,
		oly:      oly,
		store:    store,
		announce: announce,
		heroes:   heroes,
		metrics:  m,
		now:      time.Now,
	}
	c.windows = NewWindowScheduler(rules, oly, driver, announce, m, c.HandleMatchResult)
	return c
}

// Olympiad returns the underlying aggregate (queries, admin surfaces).
func (c *Controller) Olympiad() *Olympiad { return c.oly }

// Load восстанавливает метаданные цикла и таблицу nobles из БД.
// Вызывается один раз перед Start.
func (c *Controller) Load(ctx context.Context) error {
	state, err := c.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("loading olympiad state: %w", err)
	}

	now := c.now()
	if state == nil {
		// Первый запуск: новый цикл с дефолтами.
		c.oly.SetCurrentCycle(0)
		c.oly.SetOlympiadEnd(NextOlympiadEnd(c.rules, now))
		c.oly.SetNextWeeklyChange(now.Add(c.rules.WeeklyPeriod))
		c.oly.SetValidationEnd(time.Time{})
		if err := c.saveState(ctx); err != nil {
			return fmt.Errorf("saving initial olympiad state: %w", err)
		}
	} else {
		c.oly.LoadState(*state)
	}

	nobles, err := c.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading nobles: %w", err)
	}
	c.oly.Nobles().Load(nobles)

	// Ранги прошлого цикла и счётчики геройств переживают рестарт.
	snapshot, err := c.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading leaderboard snapshot: %w", err)
	}
	c.oly.SetRankings(snapshot)

	heroes, err := c.store.LoadHeroes(ctx)
	if err != nil {
		return fmt.Errorf("loading heroes: %w", err)
	}
	heroCounts, err := c.store.LoadHeroCounts(ctx)
	if err != nil {
		return fmt.Errorf("loading hero counts: %w", err)
	}
	c.oly.HeroTable().Load(heroes, heroCounts)

	c.metrics.SetNoblesRegistered(len(nobles))
	c.metrics.SetCurrentCycle(c.oly.CurrentCycle())

	slog.Info("olympiad loaded",
		"cycle", c.oly.CurrentCycle(),
		"nobles", len(nobles),
		"ranked", len(snapshot),
		"heroes", len(heroes),
		"cycle_end", c.oly.OlympiadEnd(),
		"next_weekly", c.oly.NextWeeklyChange())

	return nil
}

// Start взводит таймеры цикла и запускает window scheduler.
// Идемпотентен: каждый таймер снимается перед повторным взводом.
// Конец цикла в прошлом приводит к немедленному rollover тем же
// кодовым путём, что и плановый.
func (c *Controller) Start() {
	c.mu.Lock()

	now := c.now()

	if c.endTimer != nil {
		c.endTimer.Stop()
	}
	untilEnd := c.oly.OlympiadEnd().Sub(now)
	if untilEnd < resumeDelay {
		untilEnd = resumeDelay
	}
	c.endTimer = time.AfterFunc(untilEnd, c.onCycleEnd)

	if c.weeklyTimer != nil {
		c.weeklyTimer.Stop()
	}
	untilWeekly := c.oly.NextWeeklyChange().Sub(now)
	if untilWeekly < resumeDelay {
		untilWeekly = resumeDelay
	}
	c.weeklyTimer = time.AfterFunc(untilWeekly, c.onWeeklyTick)

	if c.validationTimer != nil {
		c.validationTimer.Stop()
		c.validationTimer = nil
	}
	if now.Before(c.oly.ValidationEnd()) {
		c.oly.SetPeriod(PeriodValidation)
		c.validationTimer = time.AfterFunc(c.oly.ValidationEnd().Sub(now), c.onValidationEnd)
	} else {
		c.oly.SetPeriod(PeriodCompetition)
	}

	c.mu.Unlock()

	c.windows.Start()

	slog.Info("olympiad controller armed",
		"cycle", c.oly.CurrentCycle(),
		"period", c.oly.Period(),
		"cycle_end_in", untilEnd.Round(time.Second),
		"weekly_in", untilWeekly.Round(time.Second))
}

// Stop снимает все таймеры, останавливает окно (с дожиданием quiescence)
// и сохраняет текущее состояние таблицы.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	if c.endTimer != nil {
		c.endTimer.Stop()
		c.endTimer = nil
	}
	if c.weeklyTimer != nil {
		c.weeklyTimer.Stop()
		c.weeklyTimer = nil
	}
	if c.validationTimer != nil {
		c.validationTimer.Stop()
		c.validationTimer = nil
	}
	c.mu.Unlock()

	c.windows.Stop(ctx)

	c.persistDirty(ctx)
	if err := c.saveState(ctx); err != nil {
		slog.Error("saving olympiad state on shutdown", "err", err)
	}
	slog.Info("olympiad controller stopped")
}

// ForceRollover — административный запуск rollover. Немедленный ack:
// сам rollover выполняется в фоне, тем же кодовым путём, что и плановый.
// Конкурентные вызовы сериализуются, не перемежаются.
func (c *Controller) ForceRollover() {
	c.mu.Lock()
	if c.endTimer != nil {
		c.endTimer.Stop()
	}
	c.mu.Unlock()

	go func() {
		c.rolloverMu.Lock()
		defer c.rolloverMu.Unlock()
		c.rollover(context.Background())
	}()
}

// onCycleEnd — срабатывание таймера конца цикла. Если rollover уже
// идёт (повторное срабатывание, гонка с ForceRollover) — отбрасывается
// с warning, идущий rollover не прерывается.
func (c *Controller) onCycleEnd() {
	if !c.rolloverMu.TryLock() {
		slog.Warn("cycle end fired while rollover in progress, ignoring")
		return
	}
	defer c.rolloverMu.Unlock()
	c.rollover(context.Background())
}

// rollover выполняет шаги конца цикла строго по порядку.
// Caller держит rolloverMu.
//
// Ошибки персистентности ретраятся один раз, затем логируются и
// пропускаются: in-memory состояние всегда движется дальше, зависший
// rollover хуже потерянной записи рейтинга.
func (c *Controller) rollover(ctx context.Context) {
	cycle := c.oly.CurrentCycle()
	start := c.now()
	slog.Info("olympiad cycle rollover started", "cycle", cycle)

	// 1. Объявить конец цикла.
	c.announce.Broadcast(fmt.Sprintf("Olympiad period %d has ended.", cycle))

	// 2. Остановить окно и дождаться quiescence драйвера (bounded).
	c.mu.Lock()
	if c.weeklyTimer != nil {
		c.weeklyTimer.Stop()
	}
	c.mu.Unlock()
	c.windows.Stop(ctx)

	// 3. Сохранить dirty записи.
	c.persistDirty(ctx)

	// 4. Снимок лидерборда + отбор героев.
	all := c.oly.Nobles().All()
	snapshot := BuildSnapshot(all, c.rules.MinMatches)
	candidates := SelectHeroes(c.oly.Nobles(), c.rules.MinMatches)
	c.oly.HeroTable().ComputeNewHeroes(candidates)

	// 5. Публикация героев: fire-and-continue. Счётчики геройств уходят
	// в БД, чтобы пережить рестарт.
	if err := c.heroes.PublishHeroes(candidates); err != nil {
		slog.Error("publishing heroes", "cycle", cycle, "err", err)
	}
	newHeroes := c.oly.HeroTable().CurrentList()
	if err := c.withRetry(ctx, "save heroes", func() error {
		return c.store.SaveHeroes(ctx, newHeroes)
	}); err != nil {
		slog.Error("saving hero counts", "cycle", cycle, "err", err)
	}

	// 6. Записать снимок, очистить хранилище живых записей.
	if err := c.withRetry(ctx, "replace snapshot", func() error {
		return c.store.ReplaceSnapshot(ctx, snapshot)
	}); err != nil {
		slog.Error("replacing leaderboard snapshot", "cycle", cycle, "err", err)
	}
	if err := c.withRetry(ctx, "clear nobles", func() error {
		return c.store.DeleteAll(ctx)
	}); err != nil {
		slog.Error("clearing noble storage", "cycle", cycle, "err", err)
	}

	// 7. Валидация 24ч, инкремент цикла, сброс таблицы.
	now := c.now()
	c.oly.SetValidationEnd(now.Add(c.rules.ValidationPeriod))
	newCycle := c.oly.IncrementCycle()
	c.oly.Nobles().Clear()
	c.oly.SetRankings(snapshot)
	c.metrics.SetNoblesRegistered(0)

	// 8. Новый конец цикла и weekly, write-through.
	c.oly.SetOlympiadEnd(NextOlympiadEnd(c.rules, now))
	c.oly.SetNextWeeklyChange(now.Add(c.rules.WeeklyPeriod))
	if err := c.saveState(ctx); err != nil {
		slog.Error("saving olympiad state", "cycle", newCycle, "err", err)
	}

	c.metrics.RolloverCompleted(newCycle)
	c.announce.Broadcast(fmt.Sprintf("Olympiad period %d has started.", newCycle))
	slog.Info("olympiad cycle rollover finished",
		"cycle", newCycle,
		"heroes", len(candidates),
		"ranked", len(snapshot),
		"took", c.now().Sub(start).Round(time.Millisecond))

	// 9. Перевзвести таймеры и окно для нового цикла.
	c.Start()
}

// onWeeklyTick начисляет еженедельный бонус всем записям и перевзводит
// weekly-таймер на now + WeeklyPeriod.
func (c *Controller) onWeeklyTick() {
	if c.oly.Period() != PeriodValidation {
		c.oly.Nobles().AddAllWeeklyPoints(c.rules.WeeklyGrant)
		c.metrics.WeeklyGrant()
		slog.Info("weekly olympiad points granted", "nobles", c.oly.Nobles().Count())
	}

	now := c.now()
	c.oly.SetNextWeeklyChange(now.Add(c.rules.WeeklyPeriod))
	if err := c.saveState(context.Background()); err != nil {
		slog.Error("saving olympiad state after weekly tick", "err", err)
	}

	c.mu.Lock()
	if c.weeklyTimer != nil {
		c.weeklyTimer.Stop()
	}
	c.weeklyTimer = time.AfterFunc(c.rules.WeeklyPeriod, c.onWeeklyTick)
	c.mu.Unlock()
}

// onValidationEnd закрывает период валидации.
func (c *Controller) onValidationEnd() {
	c.oly.SetPeriod(PeriodCompetition)
	slog.Info("olympiad validation period ended", "cycle", c.oly.CurrentCycle())
}

// HandleMatchResult применяет исход боя к таблице nobles.
// Переходящие очки: points проигравшего / делитель типа боя, не больше
// MaxPoints. Ничья: оба теряют points/DrawPenaltyDiv.
func (c *Controller) HandleMatchResult(res MatchResult) {
	nobles := c.oly.Nobles()

	if res.Draw {
		for _, charID := range []int64{res.WinnerID, res.LoserID} {
			n := nobles.Get(charID)
			if n == nil {
				slog.Warn("match result for unknown noble", "char_id", charID)
				continue
			}
			penalty := abs32(n.Points()) / DrawPenaltyDiv
			if penalty > MaxPoints {
				penalty = MaxPoints
			}
			n.RecordResult(OutcomeDraw, res.Classed, -penalty)
		}
		c.metrics.MatchRecorded()
		return
	}

	winner := nobles.Get(res.WinnerID)
	loser := nobles.Get(res.LoserID)
	if winner == nil || loser == nil {
		slog.Warn("match result for unknown noble",
			"winner_id", res.WinnerID, "winner_known", winner != nil,
			"loser_id", res.LoserID, "loser_known", loser != nil)
		return
	}

	div := int32(NonClassedScoreDiv)
	if res.Classed {
		div = ClassedScoreDiv
	}
	transferred := abs32(loser.Points()) / div
	if transferred > MaxPoints {
		transferred = MaxPoints
	}

	winner.RecordResult(OutcomeWin, res.Classed, transferred)
	loser.RecordResult(OutcomeLoss, res.Classed, -transferred)
	c.metrics.MatchRecorded()
	c.metrics.SetNoblesRegistered(nobles.Count())
}

// Ban — обратимый soft-ban: points становятся отрицательными с
// сохранением модуля. Немедленный ack, запись уходит в БД при
// следующем flush.
func (c *Controller) Ban(charID int64) {
	if n := c.oly.Nobles().Get(charID); n != nil {
		n.Ban()
		slog.Info("noble banned from olympiad", "char_id", charID)
	}
}

// Unban восстанавливает знак points.
func (c *Controller) Unban(charID int64) {
	if n := c.oly.Nobles().Get(charID); n != nil {
		n.Unban()
		slog.Info("noble unbanned from olympiad", "char_id", charID)
	}
}

// persistDirty сохраняет все dirty записи (upsert, retry once).
func (c *Controller) persistDirty(ctx context.Context) {
	dirty := c.oly.Nobles().Dirty()
	saved := 0
	for _, n := range dirty {
		stats := n.Stats()
		err := c.withRetry(ctx, "upsert noble", func() error {
			return c.store.Upsert(ctx, stats)
		})
		if err != nil {
			slog.Error("saving noble", "char_id", stats.CharID, "err", err)
			continue
		}
		n.MarkClean()
		saved++
	}
	if len(dirty) > 0 {
		slog.Info("noble data persisted", "dirty", len(dirty), "saved", saved)
	}
}

// saveState — write-through метаданных цикла (retry once).
func (c *Controller) saveState(ctx context.Context) error {
	state := c.oly.State()
	return c.withRetry(ctx, "save state", func() error {
		return c.store.SaveState(ctx, state)
	})
}

// withRetry выполняет вызов store, при ошибке повторяет один раз.
func (c *Controller) withRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	slog.Warn("store call failed, retrying", "op", op, "err", err)
	if ctx.Err() != nil {
		c.metrics.PersistenceError()
		return err
	}
	if err = fn(); err != nil {
		c.metrics.PersistenceError()
		return err
	}
	return nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
