package olympiad

import (
	"sync"
	"sync/atomic"
	"time"
)

// Olympiad хранит состояние полного жизненного цикла олимпиады:
// Competition (period=0) → Validation (period=1) → новый цикл.
// L2J reference: Olympiad.java
//
// ⚠️ КРИТИЧНО: все shared флаги используют atomic.Bool/Int32
// вместо static boolean (fix Java race condition).
type Olympiad struct {
	// Period state — atomic для thread safety
	period           atomic.Int32 // 0 = Competition, 1 = Validation
	currentCycle     atomic.Int32
	olympiadEnd      atomic.Int64 // Unix ms
	validationEnd    atomic.Int64
	nextWeeklyChange atomic.Int64
	compEnd          atomic.Int64

	// ⚠️ atomic.Bool — fix Java race condition
	inCompPeriod atomic.Bool

	mu        sync.RWMutex
	compStart time.Time

	nobles    *NobleTable
	heroTable *HeroTable

	// Ранги и места за последний закрытый цикл.
	ranksMu   sync.RWMutex
	ranks     map[int64]Rank
	positions map[int64]int
	snapshot  []SnapshotEntry
}

// NewOlympiad создаёт новый экземпляр олимпиады.
func NewOlympiad() *Olympiad {
	return &Olympiad{
		nobles:    NewNobleTable(),
		heroTable: NewHeroTable(),
		ranks:     make(map[int64]Rank),
		positions: make(map[int64]int),
	}
}

// Nobles returns the noble table.
func (o *Olympiad) Nobles() *NobleTable { return o.nobles }

// HeroTable returns the hero table.
func (o *Olympiad) HeroTable() *HeroTable { return o.heroTable }

// Period returns the current olympiad period.
func (o *Olympiad) Period() Period { return Period(o.period.Load()) }

// CurrentCycle returns the current cycle number.
func (o *Olympiad) CurrentCycle() int32 { return o.currentCycle.Load() }

// InCompPeriod reports whether the competition window is open.
func (o *Olympiad) InCompPeriod() bool { return o.inCompPeriod.Load() }

// IsOlympiadEnd reports whether the olympiad is in validation (period != 0).
func (o *Olympiad) IsOlympiadEnd() bool { return o.period.Load() != 0 }

// OlympiadEnd returns the instant when the current cycle ends.
func (o *Olympiad) OlympiadEnd() time.Time { return fromMillis(o.olympiadEnd.Load()) }

// ValidationEnd returns the instant when reward redemption closes.
func (o *Olympiad) ValidationEnd() time.Time { return fromMillis(o.validationEnd.Load()) }

// NextWeeklyChange returns the next weekly bonus instant.
func (o *Olympiad) NextWeeklyChange() time.Time { return fromMillis(o.nextWeeklyChange.Load()) }

// RemainingTimeToEnd returns time until cycle end.
func (o *Olympiad) RemainingTimeToEnd() time.Duration {
	remaining := time.Until(o.OlympiadEnd())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CompStart returns the open instant of the current/next window.
func (o *Olympiad) CompStart() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.compStart
}

// CompEnd returns the close instant of the current/next window.
func (o *Olympiad) CompEnd() time.Time { return time.UnixMilli(o.compEnd.Load()) }

// SetPeriod устанавливает период (rollover / загрузка из БД).
func (o *Olympiad) SetPeriod(p Period) { o.period.Store(int32(p)) }

// SetCurrentCycle устанавливает номер цикла (загрузка из БД).
func (o *Olympiad) SetCurrentCycle(c int32) { o.currentCycle.Store(c) }

// IncrementCycle инкрементирует номер цикла и возвращает новый.
func (o *Olympiad) IncrementCycle() int32 { return o.currentCycle.Add(1) }

// SetOlympiadEnd устанавливает конец цикла.
func (o *Olympiad) SetOlympiadEnd(t time.Time) { o.olympiadEnd.Store(toMillis(t)) }

// SetValidationEnd устанавливает конец валидации.
func (o *Olympiad) SetValidationEnd(t time.Time) { o.validationEnd.Store(toMillis(t)) }

// SetNextWeeklyChange устанавливает время следующего weekly grant.
func (o *Olympiad) SetNextWeeklyChange(t time.Time) { o.nextWeeklyChange.Store(toMillis(t)) }

// Миллисекундные атомики: 0 означает "не установлено" (zero time).
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// StartCompPeriod открывает окно соревнований.
func (o *Olympiad) StartCompPeriod() { o.inCompPeriod.Store(true) }

// EndCompPeriod закрывает окно соревнований.
func (o *Olympiad) EndCompPeriod() { o.inCompPeriod.Store(false) }

// SetCompSchedule устанавливает границы текущего/следующего окна.
func (o *Olympiad) SetCompSchedule(open, end time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.compStart = open
	o.compEnd.Store(end.UnixMilli())
}

// State возвращает персистентные метаданные цикла.
func (o *Olympiad) State() State {
	return State{
		Version:          StateVersion,
		CurrentCycle:     o.currentCycle.Load(),
		OlympiadEnd:      o.OlympiadEnd(),
		ValidationEnd:    o.ValidationEnd(),
		NextWeeklyChange: o.NextWeeklyChange(),
	}
}

// LoadState восстанавливает метаданные цикла из БД.
func (o *Olympiad) LoadState(s State) {
	o.currentCycle.Store(s.CurrentCycle)
	o.olympiadEnd.Store(toMillis(s.OlympiadEnd))
	o.validationEnd.Store(toMillis(s.ValidationEnd))
	o.nextWeeklyChange.Store(toMillis(s.NextWeeklyChange))
}

// SetRankings публикует снимок, ранги и места закрытого цикла.
func (o *Olympiad) SetRankings(snapshot []SnapshotEntry) {
	o.ranksMu.Lock()
	defer o.ranksMu.Unlock()
	o.snapshot = snapshot
	o.ranks = CalculateRanks(snapshot)
	o.positions = Positions(snapshot)
}

// GetRank returns the last cycle's rank for a noble (0 if not ranked).
func (o *Olympiad) GetRank(charID int64) Rank {
	o.ranksMu.RLock()
	defer o.ranksMu.RUnlock()
	return o.ranks[charID]
}

// GetPosition returns the 1-based leaderboard place (0 if not ranked).
func (o *Olympiad) GetPosition(charID int64) int {
	o.ranksMu.RLock()
	defer o.ranksMu.RUnlock()
	return o.positions[charID]
}

// Snapshot возвращает снимок лидерборда последнего закрытого цикла.
func (o *Olympiad) Snapshot() []SnapshotEntry {
	o.ranksMu.RLock()
	defer o.ranksMu.RUnlock()
	result := make([]SnapshotEntry, len(o.snapshot))
	copy(result, o.snapshot)
	return result
}

// GetClassLeaderboard возвращает имена топа класса из последнего снимка.
func (o *Olympiad) GetClassLeaderboard(classID int32) []string {
	o.ranksMu.RLock()
	defer o.ranksMu.RUnlock()

	var names []string
	for _, e := range o.snapshot {
		if e.ClassID != classID {
			continue
		}
		names = append(names, e.Name)
		if len(names) >= LeaderboardLimit {
			break
		}
	}
	return names
}

// RegisterNoble регистрирует благородного в олимпиаду.
// Returns error reason string (empty = success).
func (o *Olympiad) RegisterNoble(charID int64, classID int32, name string, classBased bool) string {
	if !o.InCompPeriod() {
		return "competitions not active"
	}
	if o.Period() == PeriodValidation {
		return "validation period"
	}

	noble := o.nobles.Get(charID)
	if noble == nil {
		noble = o.nobles.GetOrCreate(charID, classID, name)
	}

	if noble.Banned() {
		return "banned from the olympiad"
	}

	points := noble.Points()
	if classBased && points < MinClassedPoints {
		return "not enough points for classed"
	}
	if !classBased && points < MinNonClassedPoints {
		return "not enough points for non-classed"
	}

	return ""
}

// GetNobleStats returns stats snapshot for a noble.
func (o *Olympiad) GetNobleStats(charID int64) (NobleStats, bool) {
	noble := o.nobles.Get(charID)
	if noble == nil {
		return NobleStats{}, false
	}
	return noble.Stats(), true
}

// SettleNoble отмечает награду цикла как полученную.
// Допустимо только до конца периода валидации.
func (o *Olympiad) SettleNoble(charID int64, now time.Time) bool {
	if now.After(o.ValidationEnd()) {
		return false
	}
	noble := o.nobles.Get(charID)
	if noble == nil || noble.Settled() {
		return false
	}
	noble.Settle()
	return true
}
