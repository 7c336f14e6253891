package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/olympiad/internal/olympiad"
)

// NobleRepository реализует olympiad.Store для PostgreSQL.
type NobleRepository struct {
	pool *pgxpool.Pool
}

// NewNobleRepository создаёт новый PostgreSQL repository.
func NewNobleRepository(pool *pgxpool.Pool) *NobleRepository {
	return &NobleRepository{pool: pool}
}

// LoadAll загружает все записи текущего цикла.
func (r *NobleRepository) LoadAll(ctx context.Context) ([]olympiad.NobleStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT char_id, class_id, char_name, olympiad_points,
		        competitions_done, competitions_won, competitions_lost, competitions_drawn,
		        competitions_classed, competitions_nonclassed, settled
		 FROM olympiad_nobles`)
	if err != nil {
		return nil, fmt.Errorf("querying nobles: %w", err)
	}
	defer rows.Close()

	var result []olympiad.NobleStats
	for rows.Next() {
		var s olympiad.NobleStats
		if err := rows.Scan(&s.CharID, &s.ClassID, &s.Name, &s.Points,
			&s.Matches, &s.Wins, &s.Losses, &s.Draws,
			&s.Classed, &s.NonClassed, &s.Settled); err != nil {
			return nil, fmt.Errorf("scanning noble row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nobles: %w", err)
	}
	return result, nil
}

// Upsert сохраняет одну запись (INSERT ... ON CONFLICT DO UPDATE).
func (r *NobleRepository) Upsert(ctx context.Context, s olympiad.NobleStats) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO olympiad_nobles
		   (char_id, class_id, char_name, olympiad_points,
		    competitions_done, competitions_won, competitions_lost, competitions_drawn,
		    competitions_classed, competitions_nonclassed, settled)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 ON CONFLICT (char_id) DO UPDATE SET
		   class_id = EXCLUDED.class_id,
		   char_name = EXCLUDED.char_name,
		   olympiad_points = EXCLUDED.olympiad_points,
		   competitions_done = EXCLUDED.competitions_done,
		   competitions_won = EXCLUDED.competitions_won,
		   competitions_lost = EXCLUDED.competitions_lost,
		   competitions_drawn = EXCLUDED.competitions_drawn,
		   competitions_classed = EXCLUDED.competitions_classed,
		   competitions_nonclassed = EXCLUDED.competitions_nonclassed,
		   settled = EXCLUDED.settled`,
		s.CharID, s.ClassID, s.Name, s.Points,
		s.Matches, s.Wins, s.Losses, s.Draws,
		s.Classed, s.NonClassed, s.Settled,
	)
	if err != nil {
		return fmt.Errorf("upserting noble %d: %w", s.CharID, err)
	}
	return nil
}

// DeleteAll очищает записи текущего цикла (rollover).
func (r *NobleRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM olympiad_nobles`); err != nil {
		return fmt.Errorf("deleting nobles: %w", err)
	}
	return nil
}

// ReplaceSnapshot атомарно заменяет end-of-month снимок: очистка и
// вставка в одной транзакции.
func (r *NobleRepository) ReplaceSnapshot(ctx context.Context, snapshot []olympiad.SnapshotEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM olympiad_nobles_eom`); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	for i, e := range snapshot {
		if _, err := tx.Exec(ctx,
			`INSERT INTO olympiad_nobles_eom
			   (char_id, class_id, char_name, olympiad_points, competitions_done, competitions_won, place)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			e.CharID, e.ClassID, e.Name, e.Points, e.Matches, e.Wins, i+1,
		); err != nil {
			return fmt.Errorf("inserting snapshot entry %d: %w", e.CharID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot transaction: %w", err)
	}
	return nil
}

// LoadSnapshot загружает последний сохранённый снимок (порядок по месту).
func (r *NobleRepository) LoadSnapshot(ctx context.Context) ([]olympiad.SnapshotEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT char_id, class_id, char_name, olympiad_points, competitions_done, competitions_won
		 FROM olympiad_nobles_eom ORDER BY place`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	defer rows.Close()

	var result []olympiad.SnapshotEntry
	for rows.Next() {
		var e olympiad.SnapshotEntry
		if err := rows.Scan(&e.CharID, &e.ClassID, &e.Name, &e.Points, &e.Matches, &e.Wins); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot: %w", err)
	}
	return result, nil
}

// SaveHeroes сохраняет героев rollover. Прежние герои теряют отметку
// is_current, их строки (и hero_count) остаются.
func (r *NobleRepository) SaveHeroes(ctx context.Context, heroes []olympiad.Hero) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin heroes transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE olympiad_heroes SET is_current = FALSE`); err != nil {
		return fmt.Errorf("demoting previous heroes: %w", err)
	}

	for _, h := range heroes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO olympiad_heroes (char_id, class_id, char_name, hero_count, is_current)
			 VALUES ($1,$2,$3,$4,TRUE)
			 ON CONFLICT (char_id) DO UPDATE SET
			   class_id = EXCLUDED.class_id,
			   char_name = EXCLUDED.char_name,
			   hero_count = EXCLUDED.hero_count,
			   is_current = TRUE`,
			h.CharID, h.ClassID, h.Name, h.Count,
		); err != nil {
			return fmt.Errorf("upserting hero %d: %w", h.CharID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit heroes transaction: %w", err)
	}
	return nil
}

// LoadHeroes возвращает героев последнего rollover.
func (r *NobleRepository) LoadHeroes(ctx context.Context) ([]olympiad.Hero, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT char_id, class_id, char_name, hero_count
		 FROM olympiad_heroes WHERE is_current ORDER BY class_id`)
	if err != nil {
		return nil, fmt.Errorf("querying heroes: %w", err)
	}
	defer rows.Close()

	var heroes []olympiad.Hero
	for rows.Next() {
		var h olympiad.Hero
		if err := rows.Scan(&h.CharID, &h.ClassID, &h.Name, &h.Count); err != nil {
			return nil, fmt.Errorf("scanning hero row: %w", err)
		}
		heroes = append(heroes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating heroes: %w", err)
	}
	return heroes, nil
}

// LoadHeroCounts возвращает количество геройств по charID.
func (r *NobleRepository) LoadHeroCounts(ctx context.Context) (map[int64]int32, error) {
	rows, err := r.pool.Query(ctx, `SELECT char_id, hero_count FROM olympiad_heroes`)
	if err != nil {
		return nil, fmt.Errorf("querying hero counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int32)
	for rows.Next() {
		var charID int64
		var count int32
		if err := rows.Scan(&charID, &count); err != nil {
			return nil, fmt.Errorf("scanning hero count row: %w", err)
		}
		counts[charID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hero counts: %w", err)
	}
	return counts, nil
}

// LoadState возвращает метаданные цикла.
// Возвращает nil, nil на первом запуске (строки ещё нет).
func (r *NobleRepository) LoadState(ctx context.Context) (*olympiad.State, error) {
	var (
		version      int32
		cycle        int32
		end          int64
		validation   int64
		weeklyChange int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT version, current_cycle, olympiad_end, validation_end, next_weekly_change
		 FROM olympiad_data WHERE id = 1`,
	).Scan(&version, &cycle, &end, &validation, &weeklyChange)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying olympiad state: %w", err)
	}

	return &olympiad.State{
		Version:          version,
		CurrentCycle:     cycle,
		OlympiadEnd:      timeFromMillis(end),
		ValidationEnd:    timeFromMillis(validation),
		NextWeeklyChange: timeFromMillis(weeklyChange),
	}, nil
}

// timeFromMillis: 0 в БД означает "не установлено" (zero time).
func timeFromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func millisFromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// SaveState сохраняет метаданные цикла (write-through, одна строка).
func (r *NobleRepository) SaveState(ctx context.Context, s olympiad.State) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO olympiad_data (id, version, current_cycle, olympiad_end, validation_end, next_weekly_change)
		 VALUES (1, $1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   version = EXCLUDED.version,
		   current_cycle = EXCLUDED.current_cycle,
		   olympiad_end = EXCLUDED.olympiad_end,
		   validation_end = EXCLUDED.validation_end,
		   next_weekly_change = EXCLUDED.next_weekly_change`,
		s.Version, s.CurrentCycle,
		millisFromTime(s.OlympiadEnd), millisFromTime(s.ValidationEnd), millisFromTime(s.NextWeeklyChange),
	)
	if err != nil {
		return fmt.Errorf("saving olympiad state: %w", err)
	}
	return nil
}
