package olympiad

import "sort"

// SnapshotEntry — одна строка end-of-month снимка лидерборда.
// Снимок иммутабелен после создания.
type SnapshotEntry struct {
	CharID  int64
	ClassID int32
	Name    string
	Points  int32
	Matches int32
	Wins    int32
}

// nobleLess — порядок лидерборда: points DESC → matches DESC → wins DESC.
func nobleLess(a, b NobleStats) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.Matches != b.Matches {
		return a.Matches > b.Matches
	}
	return a.Wins > b.Wins
}

// BuildSnapshot строит end-of-month снимок из живой таблицы:
// фильтр участия (matches >= minMatches, wins >= HeroMinWins, не бан)
// и полная сортировка.
func BuildSnapshot(stats []NobleStats, minMatches int32) []SnapshotEntry {
	eligible := make([]NobleStats, 0, len(stats))
	for _, s := range stats {
		if s.Points < 0 {
			continue
		}
		if s.Matches >= minMatches && s.Wins >= HeroMinWins {
			eligible = append(eligible, s)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return nobleLess(eligible[i], eligible[j])
	})

	snapshot := make([]SnapshotEntry, 0, len(eligible))
	for _, s := range eligible {
		snapshot = append(snapshot, SnapshotEntry{
			CharID:  s.CharID,
			ClassID: s.ClassID,
			Name:    s.Name,
			Points:  s.Points,
			Matches: s.Matches,
			Wins:    s.Wins,
		})
	}
	return snapshot
}

// CalculateRanks рассчитывает ранги по снимку.
// Ранги: top 1%→1, top 10%→2, top 25%→3, top 50%→4, rest→5.
//
// Если граница 1% округляется в 0, она форсируется в 1, а остальные
// границы сдвигаются на +1 каждая — как в Olympiad.loadNoblesRank().
func CalculateRanks(snapshot []SnapshotEntry) map[int64]Rank {
	total := len(snapshot)
	if total == 0 {
		return nil
	}

	rank1 := int(float64(total)*0.01 + 0.5)
	rank2 := int(float64(total)*0.10 + 0.5)
	rank3 := int(float64(total)*0.25 + 0.5)
	rank4 := int(float64(total)*0.50 + 0.5)
	if rank1 == 0 {
		rank1 = 1
		rank2++
		rank3++
		rank4++
	}

	ranks := make(map[int64]Rank, total)
	for i, e := range snapshot {
		place := i + 1
		switch {
		case place <= rank1:
			ranks[e.CharID] = Rank1
		case place <= rank2:
			ranks[e.CharID] = Rank2
		case place <= rank3:
			ranks[e.CharID] = Rank3
		case place <= rank4:
			ranks[e.CharID] = Rank4
		default:
			ranks[e.CharID] = Rank5
		}
	}
	return ranks
}

// Positions возвращает 1-based место каждого участника снимка.
// Место (а не ранг) используется для запросов вида "nth place".
func Positions(snapshot []SnapshotEntry) map[int64]int {
	if len(snapshot) == 0 {
		return nil
	}
	positions := make(map[int64]int, len(snapshot))
	for i, e := range snapshot {
		positions[e.CharID] = i + 1
	}
	return positions
}
