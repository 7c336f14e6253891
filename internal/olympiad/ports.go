package olympiad

import (
	"context"
	"time"
)

// Store — шлюз персистентности олимпиады. Реализация — internal/db.
// Ошибки store логируются и не валят rollover: источник истины —
// память (см. Controller.rollover).
type Store interface {
	// LoadAll загружает все записи текущего цикла.
	LoadAll(ctx context.Context) ([]NobleStats, error)

	// Upsert сохраняет одну запись (insert или update).
	Upsert(ctx context.Context, stats NobleStats) error

	// DeleteAll очищает записи текущего цикла (rollover).
	DeleteAll(ctx context.Context) error

	// ReplaceSnapshot атомарно заменяет end-of-month снимок.
	ReplaceSnapshot(ctx context.Context, snapshot []SnapshotEntry) error

	// LoadSnapshot загружает последний сохранённый снимок (порядок по месту).
	LoadSnapshot(ctx context.Context) ([]SnapshotEntry, error)

	// SaveHeroes сохраняет героев rollover (upsert по charID); прежние
	// герои теряют отметку текущих, но их счётчики остаются.
	SaveHeroes(ctx context.Context, heroes []Hero) error

	// LoadHeroes загружает героев последнего rollover.
	LoadHeroes(ctx context.Context) ([]Hero, error)

	// LoadHeroCounts возвращает количество геройств по charID, включая
	// героев прошлых циклов.
	LoadHeroCounts(ctx context.Context) (map[int64]int32, error)

	// LoadState возвращает метаданные цикла (nil, nil на первом запуске).
	LoadState(ctx context.Context) (*State, error)

	// SaveState сохраняет метаданные цикла (write-through).
	SaveState(ctx context.Context, state State) error
}

// MatchResult — исход одного боя, сообщаемый драйвером матчей.
type MatchResult struct {
	WinnerID int64
	LoserID  int64
	Draw     bool
	Classed  bool
	Duration time.Duration
}

// MatchDriver — внешний процесс, гоняющий бои пока окно открыто.
// Ядро только запускает/останавливает его и ждёт quiescence.
type MatchDriver interface {
	// Start запускает периодический matchmaking. Результаты боёв
	// приходят через onResult (может вызываться конкурентно).
	Start(onResult func(MatchResult))

	// Stop останавливает matchmaking. Идущие бои доигрываются.
	Stop()

	// IsQuiescent reports whether no matches are in flight.
	IsQuiescent() bool
}

// Announcer — широковещательные объявления. Fire-and-forget.
type Announcer interface {
	Broadcast(message string)
}

// HeroPublisher применяет игровые эффекты нового набора героев
// (награды, скиллы, сообщения игрокам).
type HeroPublisher interface {
	PublishHeroes(heroes []*Hero) error
}
