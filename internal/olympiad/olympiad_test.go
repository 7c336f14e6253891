package olympiad

import (
	"testing"
	"time"
)

func TestOlympiad_RegisterNoble_OutsideWindow(t *testing.T) {
	o := NewOlympiad()

	if reason := o.RegisterNoble(1, 88, "a", true); reason == "" {
		t.Error("registration outside competition window must fail")
	}
}

func TestOlympiad_RegisterNoble_Validation(t *testing.T) {
	o := NewOlympiad()
	o.StartCompPeriod()
	o.SetPeriod(PeriodValidation)

	if reason := o.RegisterNoble(1, 88, "a", true); reason == "" {
		t.Error("registration during validation must fail")
	}
}

func TestOlympiad_RegisterNoble_Success(t *testing.T) {
	o := NewOlympiad()
	o.StartCompPeriod()

	if reason := o.RegisterNoble(1, 88, "a", true); reason != "" {
		t.Errorf("registration failed: %q", reason)
	}
	if o.Nobles().Count() != 1 {
		t.Errorf("Count() = %d; want 1", o.Nobles().Count())
	}
}

func TestOlympiad_RegisterNoble_Banned(t *testing.T) {
	o := NewOlympiad()
	o.StartCompPeriod()
	o.Nobles().GetOrCreate(1, 88, "a").Ban()

	if reason := o.RegisterNoble(1, 88, "a", true); reason == "" {
		t.Error("banned noble must not register")
	}
}

func TestOlympiad_RegisterNoble_MinPoints(t *testing.T) {
	o := NewOlympiad()
	o.StartCompPeriod()

	// Очки ниже порога non-classed (5), но выше classed (3).
	n := o.Nobles().GetOrCreate(1, 88, "a")
	n.LoadStats(NobleStats{CharID: 1, ClassID: 88, Name: "a", Points: 4})

	if reason := o.RegisterNoble(1, 88, "a", false); reason == "" {
		t.Error("non-classed registration with 4 points must fail")
	}
	if reason := o.RegisterNoble(1, 88, "a", true); reason != "" {
		t.Errorf("classed registration with 4 points failed: %q", reason)
	}
}

func TestOlympiad_SettleNoble(t *testing.T) {
	o := NewOlympiad()
	now := time.Date(2026, time.February, 1, 13, 0, 0, 0, time.UTC)
	o.SetValidationEnd(now.Add(ValidationPeriod))
	o.Nobles().GetOrCreate(1, 88, "a")

	if !o.SettleNoble(1, now) {
		t.Fatal("SettleNoble failed inside validation window")
	}
	// Повторная выдача запрещена.
	if o.SettleNoble(1, now) {
		t.Error("SettleNoble succeeded twice")
	}
}

func TestOlympiad_SettleNoble_AfterValidation(t *testing.T) {
	o := NewOlympiad()
	now := time.Date(2026, time.February, 3, 13, 0, 0, 0, time.UTC)
	o.SetValidationEnd(now.Add(-time.Hour))
	o.Nobles().GetOrCreate(1, 88, "a")

	if o.SettleNoble(1, now) {
		t.Error("SettleNoble succeeded after validation end")
	}
}

func TestOlympiad_SettleNoble_Unknown(t *testing.T) {
	o := NewOlympiad()
	o.SetValidationEnd(time.Now().Add(time.Hour))

	if o.SettleNoble(42, time.Now()) {
		t.Error("SettleNoble succeeded for unknown noble")
	}
}

func TestOlympiad_StateRoundTrip(t *testing.T) {
	o := NewOlympiad()
	in := State{
		Version:          StateVersion,
		CurrentCycle:     7,
		OlympiadEnd:      time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC),
		ValidationEnd:    time.Date(2026, time.January, 2, 12, 0, 0, 0, time.UTC),
		NextWeeklyChange: time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC),
	}

	o.LoadState(in)
	out := o.State()

	if out.CurrentCycle != 7 {
		t.Errorf("CurrentCycle = %d; want 7", out.CurrentCycle)
	}
	if !out.OlympiadEnd.Equal(in.OlympiadEnd) {
		t.Errorf("OlympiadEnd = %v; want %v", out.OlympiadEnd, in.OlympiadEnd)
	}
	if !out.ValidationEnd.Equal(in.ValidationEnd) {
		t.Errorf("ValidationEnd = %v; want %v", out.ValidationEnd, in.ValidationEnd)
	}
	if !out.NextWeeklyChange.Equal(in.NextWeeklyChange) {
		t.Errorf("NextWeeklyChange = %v; want %v", out.NextWeeklyChange, in.NextWeeklyChange)
	}
}

func TestOlympiad_SetRankings(t *testing.T) {
	o := NewOlympiad()
	o.SetRankings([]SnapshotEntry{
		{CharID: 1, ClassID: 88, Name: "first", Points: 100},
		{CharID: 2, ClassID: 93, Name: "second", Points: 50},
		{CharID: 3, ClassID: 88, Name: "third", Points: 10},
	})

	if r := o.GetRank(1); r != Rank1 {
		t.Errorf("GetRank(1) = %d; want %d", r, Rank1)
	}
	if p := o.GetPosition(2); p != 2 {
		t.Errorf("GetPosition(2) = %d; want 2", p)
	}
	if r := o.GetRank(99); r != 0 {
		t.Errorf("GetRank(unknown) = %d; want 0", r)
	}
}

func TestOlympiad_GetClassLeaderboard(t *testing.T) {
	o := NewOlympiad()
	o.SetRankings([]SnapshotEntry{
		{CharID: 1, ClassID: 88, Name: "first", Points: 100},
		{CharID: 2, ClassID: 93, Name: "other", Points: 50},
		{CharID: 3, ClassID: 88, Name: "third", Points: 10},
	})

	names := o.GetClassLeaderboard(88)
	if len(names) != 2 || names[0] != "first" || names[1] != "third" {
		t.Errorf("GetClassLeaderboard(88) = %v; want [first third]", names)
	}
	if names := o.GetClassLeaderboard(107); len(names) != 0 {
		t.Errorf("GetClassLeaderboard(107) = %v; want empty", names)
	}
}

func TestOlympiad_GetClassLeaderboard_Limit(t *testing.T) {
	o := NewOlympiad()
	snapshot := make([]SnapshotEntry, LeaderboardLimit+5)
	for i := range snapshot {
		snapshot[i] = SnapshotEntry{CharID: int64(i + 1), ClassID: 88, Name: "n", Points: int32(100 - i)}
	}
	o.SetRankings(snapshot)

	if names := o.GetClassLeaderboard(88); len(names) != LeaderboardLimit {
		t.Errorf("len = %d; want %d", len(names), LeaderboardLimit)
	}
}

func TestOlympiad_InValidationState(t *testing.T) {
	now := time.Date(2026, time.February, 1, 13, 0, 0, 0, time.UTC)
	s := State{ValidationEnd: now.Add(time.Hour)}
	if !s.InValidation(now) {
		t.Error("InValidation = false before validation end")
	}
	if s.InValidation(now.Add(2 * time.Hour)) {
		t.Error("InValidation = true after validation end")
	}
}
