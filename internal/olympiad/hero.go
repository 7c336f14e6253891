package olympiad

import (
	"sort"
	"sync"
)

// Hero — победитель цикла в своём классе.
type Hero struct {
	CharID  int64
	ClassID int32
	Name    string
	Points  int32
	Matches int32
	Wins    int32

	// Count — сколько раз персонаж становился героем.
	Count int32
}

// HeroTable хранит героев текущего и прошлого цикла.
// Потокобезопасна через sync.RWMutex.
type HeroTable struct {
	mu sync.RWMutex

	current  map[int32]*Hero // classID → Hero
	previous map[int32]*Hero // герои прошлого цикла, только для отображения
	counts   map[int64]int32 // charID → сколько раз был героем
}

// NewHeroTable creates an empty HeroTable.
func NewHeroTable() *HeroTable {
	return &HeroTable{
		current:  make(map[int32]*Hero),
		previous: make(map[int32]*Hero),
		counts:   make(map[int64]int32),
	}
}

// IsHero checks if a character is a current hero.
func (ht *HeroTable) IsHero(charID int64) bool {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	for _, h := range ht.current {
		if h.CharID == charID {
			return true
		}
	}
	return false
}

// Hero returns the current hero for a class (nil if the class has none).
func (ht *HeroTable) Hero(classID int32) *Hero {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	h := ht.current[classID]
	if h == nil {
		return nil
	}
	cp := *h
	return &cp
}

// PreviousHero returns last cycle's hero for a class (nil if none).
func (ht *HeroTable) PreviousHero(classID int32) *Hero {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	h := ht.previous[classID]
	if h == nil {
		return nil
	}
	cp := *h
	return &cp
}

// CurrentList возвращает текущий набор героев списком (с Count).
func (ht *HeroTable) CurrentList() []Hero {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	result := make([]Hero, 0, len(ht.current))
	for _, h := range ht.current {
		result = append(result, *h)
	}
	return result
}

// Current returns a snapshot of the current champion set.
func (ht *HeroTable) Current() map[int32]Hero {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	result := make(map[int32]Hero, len(ht.current))
	for classID, h := range ht.current {
		result[classID] = *h
	}
	return result
}

// ComputeNewHeroes устанавливает новых героев из кандидатов.
// Текущие герои уходят в previous; counts инкрементируются.
func (ht *HeroTable) ComputeNewHeroes(candidates []*Hero) {
	ht.mu.Lock()
	defer ht.mu.Unlock()

	ht.previous = ht.current
	ht.current = make(map[int32]*Hero, len(candidates))

	for _, c := range candidates {
		ht.counts[c.CharID]++
		cp := *c
		cp.Count = ht.counts[c.CharID]
		ht.current[cp.ClassID] = &cp
	}
}

// Load восстанавливает героев и количество геройств из БД.
// Герои прошлого цикла не сохраняются и после рестарта пусты;
// counts включает и тех, кто сейчас героем не является.
func (ht *HeroTable) Load(heroes []Hero, counts map[int64]int32) {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	ht.current = make(map[int32]*Hero, len(heroes))
	for _, h := range heroes {
		cp := h
		ht.current[h.ClassID] = &cp
	}
	ht.counts = make(map[int64]int32, len(counts))
	for charID, c := range counts {
		ht.counts[charID] = c
	}
}

// SelectHeroes выбирает героев из NobleTable по классам.
// Для каждого класса из HeroClassIDs выбирается top-1 noble:
//   - минимум minMatches матчей,
//   - минимум HeroMinWins побед,
//   - не забанен (points >= 0),
//   - сортировка: points DESC → matches DESC → wins DESC.
//
// Класс без подходящих кандидатов героя не получает — это ожидаемый
// результат, не ошибка.
func SelectHeroes(nobles *NobleTable, minMatches int32) []*Hero {
	var candidates []*Hero

	for _, classID := range HeroClassIDs {
		classNobles := nobles.ByClassID(classID)

		var eligible []NobleStats
		for _, n := range classNobles {
			stats := n.Stats()
			if stats.Points < 0 {
				continue
			}
			if stats.Matches >= minMatches && stats.Wins >= HeroMinWins {
				eligible = append(eligible, stats)
			}
		}

		if len(eligible) == 0 {
			continue
		}

		sort.Slice(eligible, func(i, j int) bool {
			return nobleLess(eligible[i], eligible[j])
		})

		top := eligible[0]
		candidates = append(candidates, &Hero{
			CharID:  top.CharID,
			ClassID: top.ClassID,
			Name:    top.Name,
			Points:  top.Points,
			Matches: top.Matches,
			Wins:    top.Wins,
		})
	}

	return candidates
}
