package olympiad

import "sync"

// Noble хранит олимпийскую статистику одного благородного персонажа.
// Потокобезопасный: используется sync.RWMutex.
//
// Отрицательные points кодируют бан: модуль сохраняет "силу" игрока,
// знак исключает его из лидерборда и отбора героев.
type Noble struct {
	mu sync.RWMutex

	charID  int64
	classID int32
	name    string

	points     int32
	matches    int32
	wins       int32
	losses     int32
	draws      int32
	classed    int32
	nonClassed int32

	// settled: награда за прошлый цикл уже получена.
	settled bool

	// dirty: есть несохранённые изменения. Сбрасывается после
	// успешного upsert.
	dirty bool
}

// NewNoble создаёт запись Noble с начальными очками и dirty=true.
func NewNoble(charID int64, classID int32, name string) *Noble {
	return &Noble{
		charID:  charID,
		classID: classID,
		name:    name,
		points:  StartPoints,
		dirty:   true,
	}
}

// CharID returns the character DB ID.
func (n *Noble) CharID() int64 {
	return n.charID
}

// ClassID returns the character's class ID.
func (n *Noble) ClassID() int32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.classID
}

// SetClassID updates the noble's class ID (after class transfer).
func (n *Noble) SetClassID(id int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.classID = id
	n.dirty = true
}

// Name returns the character name.
func (n *Noble) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// Points returns current olympiad points (negative while banned).
func (n *Noble) Points() int32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.points
}

// Matches returns total completed matches.
func (n *Noble) Matches() int32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.matches
}

// Banned reports whether the noble is soft-banned (points < 0).
func (n *Noble) Banned() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.points < 0
}

// Settled reports whether this cycle's reward has been redeemed.
func (n *Noble) Settled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.settled
}

// Settle отмечает награду как полученную.
func (n *Noble) Settle() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.settled = true
	n.dirty = true
}

// Dirty reports whether the record has unsaved changes.
func (n *Noble) Dirty() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dirty
}

// MarkClean сбрасывает dirty после успешной записи в БД.
func (n *Noble) MarkClean() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dirty = false
}

// RecordResult записывает исход боя: счётчики + дельта очков.
// Инварианты wins+losses+draws == matches и classed+nonClassed == matches
// сохраняются при любой последовательности вызовов.
func (n *Noble) RecordResult(outcome Outcome, classed bool, delta int32) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.matches++
	switch outcome {
	case OutcomeWin:
		n.wins++
	case OutcomeLoss:
		n.losses++
	case OutcomeDraw:
		n.draws++
	}
	if classed {
		n.classed++
	} else {
		n.nonClassed++
	}

	// Бан (points < 0): счётчики растут, очки двигаются по модулю,
	// знак не трогаем.
	if n.points < 0 {
		mag := -n.points + delta
		if mag < 0 {
			mag = 0
		}
		n.points = -mag
	} else {
		n.points += delta
		if n.points < 0 {
			n.points = 0
		}
	}
	n.dirty = true
}

// Ban делает points отрицательными, сохраняя модуль (reversible soft-ban).
func (n *Noble) Ban() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.points > 0 {
		n.points = -n.points
	}
	n.dirty = true
}

// Unban восстанавливает знак points.
func (n *Noble) Unban() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.points < 0 {
		n.points = -n.points
	}
	n.dirty = true
}

// AddWeeklyPoints начисляет еженедельный бонус. Забаненные (points < 0)
// пропускаются, чтобы бонус не размывал знак.
func (n *Noble) AddWeeklyPoints(bonus int32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.points < 0 {
		return
	}
	n.points += bonus
	n.dirty = true
}

// Stats returns a snapshot of all stats.
func (n *Noble) Stats() NobleStats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return NobleStats{
		CharID:     n.charID,
		ClassID:    n.classID,
		Name:       n.name,
		Points:     n.points,
		Matches:    n.matches,
		Wins:       n.wins,
		Losses:     n.losses,
		Draws:      n.draws,
		Classed:    n.classed,
		NonClassed: n.nonClassed,
		Settled:    n.settled,
	}
}

// LoadStats loads stats from DB (bypasses validation).
func (n *Noble) LoadStats(stats NobleStats) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.classID = stats.ClassID
	n.name = stats.Name
	n.points = stats.Points
	n.matches = stats.Matches
	n.wins = stats.Wins
	n.losses = stats.Losses
	n.draws = stats.Draws
	n.classed = stats.Classed
	n.nonClassed = stats.NonClassed
	n.settled = stats.Settled
	n.dirty = false
}

// NobleStats — иммутабельный снимок статистики Noble.
type NobleStats struct {
	CharID     int64
	ClassID    int32
	Name       string
	Points     int32
	Matches    int32
	Wins       int32
	Losses     int32
	Draws      int32
	Classed    int32
	NonClassed int32
	Settled    bool
}

// NobleTable хранит всех участников текущего цикла.
// Потокобезопасна через sync.RWMutex; живая map наружу не отдаётся.
type NobleTable struct {
	mu     sync.RWMutex
	nobles map[int64]*Noble // charID → Noble
}

// NewNobleTable creates an empty NobleTable.
func NewNobleTable() *NobleTable {
	return &NobleTable{
		nobles: make(map[int64]*Noble),
	}
}

// GetOrCreate добавляет нового noble или возвращает существующего.
func (t *NobleTable) GetOrCreate(charID int64, classID int32, name string) *Noble {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n, ok := t.nobles[charID]; ok {
		return n
	}
	n := NewNoble(charID, classID, name)
	t.nobles[charID] = n
	return n
}

// Get возвращает Noble по charID (nil если не зарегистрирован).
func (t *NobleTable) Get(charID int64) *Noble {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nobles[charID]
}

// Remove удаляет Noble (admin).
func (t *NobleTable) Remove(charID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.nobles, charID)
}

// Clear удаляет всех участников (rollover).
func (t *NobleTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nobles = make(map[int64]*Noble)
}

// All возвращает snapshot всех nobles.
func (t *NobleTable) All() []NobleStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make([]NobleStats, 0, len(t.nobles))
	for _, n := range t.nobles {
		result = append(result, n.Stats())
	}
	return result
}

// Dirty возвращает записи с несохранёнными изменениями.
func (t *NobleTable) Dirty() []*Noble {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var result []*Noble
	for _, n := range t.nobles {
		if n.Dirty() {
			result = append(result, n)
		}
	}
	return result
}

// Count returns the number of registered nobles.
func (t *NobleTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nobles)
}

// ByClassID возвращает список nobles для указанного класса.
func (t *NobleTable) ByClassID(classID int32) []*Noble {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var result []*Noble
	for _, n := range t.nobles {
		if n.ClassID() == classID {
			result = append(result, n)
		}
	}
	return result
}

// AddAllWeeklyPoints начисляет еженедельные очки всем nobles.
// Держит table lock на весь проход: конкурентные читатели видят либо
// состояние до, либо после всего прохода.
func (t *NobleTable) AddAllWeeklyPoints(bonus int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range t.nobles {
		n.AddWeeklyPoints(bonus)
	}
}

// Load заменяет содержимое таблицы загруженными из БД записями.
func (t *NobleTable) Load(stats []NobleStats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nobles = make(map[int64]*Noble, len(stats))
	for _, s := range stats {
		n := &Noble{charID: s.CharID}
		n.LoadStats(s)
		t.nobles[s.CharID] = n
	}
}
