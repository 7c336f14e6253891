package olympiad

import "testing"

func TestNewNoble(t *testing.T) {
	n := NewNoble(100, 88, "Alice")

	if n.CharID() != 100 {
		t.Errorf("CharID() = %d; want 100", n.CharID())
	}
	if n.ClassID() != 88 {
		t.Errorf("ClassID() = %d; want 88", n.ClassID())
	}
	if n.Name() != "Alice" {
		t.Errorf("Name() = %q; want Alice", n.Name())
	}
	if n.Points() != StartPoints {
		t.Errorf("Points() = %d; want %d", n.Points(), StartPoints)
	}
	if n.Matches() != 0 {
		t.Errorf("Matches() = %d; want 0", n.Matches())
	}
	if !n.Dirty() {
		t.Error("new noble must be dirty until first save")
	}
}

func TestNoble_RecordResult_Win(t *testing.T) {
	n := NewNoble(1, 88, "a")
	initial := n.Points()

	n.RecordResult(OutcomeWin, true, 5)

	s := n.Stats()
	if s.Points != initial+5 {
		t.Errorf("Points = %d; want %d", s.Points, initial+5)
	}
	if s.Matches != 1 || s.Wins != 1 || s.Classed != 1 {
		t.Errorf("counters = %+v; want matches=1 wins=1 classed=1", s)
	}
}

func TestNoble_RecordResult_Loss_NoNegative(t *testing.T) {
	n := NewNoble(1, 88, "a")

	n.RecordResult(OutcomeLoss, false, -100) // штраф > очков

	s := n.Stats()
	if s.Points != 0 {
		t.Errorf("Points = %d; want 0", s.Points)
	}
	if s.Losses != 1 || s.NonClassed != 1 {
		t.Errorf("counters = %+v; want losses=1 nonClassed=1", s)
	}
}

func TestNoble_CounterInvariant(t *testing.T) {
	n := NewNoble(1, 88, "a")

	seq := []struct {
		outcome Outcome
		classed bool
		delta   int32
	}{
		{OutcomeWin, true, 7},
		{OutcomeLoss, false, -3},
		{OutcomeDraw, true, -1},
		{OutcomeWin, false, 10},
		{OutcomeDraw, false, 0},
		{OutcomeLoss, true, -10},
	}
	for _, step := range seq {
		n.RecordResult(step.outcome, step.classed, step.delta)

		s := n.Stats()
		if s.Wins+s.Losses+s.Draws != s.Matches {
			t.Fatalf("wins+losses+draws = %d; matches = %d",
				s.Wins+s.Losses+s.Draws, s.Matches)
		}
		if s.Classed+s.NonClassed != s.Matches {
			t.Fatalf("classed+nonClassed = %d; matches = %d",
				s.Classed+s.NonClassed, s.Matches)
		}
	}
}

func TestNoble_BanReversibility(t *testing.T) {
	n := NewNoble(1, 88, "a")
	n.RecordResult(OutcomeWin, true, 24)
	before := n.Points()

	n.Ban()
	if !n.Banned() {
		t.Fatal("Banned() = false after Ban")
	}
	if n.Points() != -before {
		t.Errorf("Points() while banned = %d; want %d", n.Points(), -before)
	}

	n.Unban()
	if n.Banned() {
		t.Fatal("Banned() = true after Unban")
	}
	if n.Points() != before {
		t.Errorf("Points() after unban = %d; want %d", n.Points(), before)
	}
}

func TestNoble_RecordResult_WhileBanned(t *testing.T) {
	n := NewNoble(1, 88, "a")
	n.Ban() // -StartPoints

	// Счётчики растут, очки двигаются по модулю, знак сохраняется.
	n.RecordResult(OutcomeWin, true, 5)

	s := n.Stats()
	if s.Points != -(StartPoints + 5) {
		t.Errorf("Points = %d; want %d", s.Points, -(StartPoints + 5))
	}
	if s.Matches != 1 || s.Wins != 1 {
		t.Errorf("counters = %+v; want matches=1 wins=1", s)
	}
}

func TestNoble_AddWeeklyPoints(t *testing.T) {
	n := NewNoble(1, 88, "a")

	n.AddWeeklyPoints(WeeklyPoints)
	if n.Points() != StartPoints+WeeklyPoints {
		t.Errorf("Points() = %d; want %d", n.Points(), StartPoints+WeeklyPoints)
	}
}

func TestNoble_AddWeeklyPoints_SkipsBanned(t *testing.T) {
	n := NewNoble(1, 88, "a")
	n.Ban()
	banned := n.Points()

	n.AddWeeklyPoints(WeeklyPoints)
	if n.Points() != banned {
		t.Errorf("Points() = %d; want unchanged %d", n.Points(), banned)
	}
}

func TestNoble_DirtyTracking(t *testing.T) {
	n := NewNoble(1, 88, "a")
	n.MarkClean()
	if n.Dirty() {
		t.Fatal("Dirty() = true after MarkClean")
	}

	n.RecordResult(OutcomeWin, true, 1)
	if !n.Dirty() {
		t.Error("Dirty() = false after mutation")
	}
}

func TestNobleTable_GetOrCreate(t *testing.T) {
	table := NewNobleTable()

	n1 := table.GetOrCreate(1, 88, "Alice")
	n2 := table.GetOrCreate(1, 93, "Other")

	if n1 != n2 {
		t.Error("GetOrCreate created a duplicate for existing charID")
	}
	if n1.ClassID() != 88 {
		t.Errorf("ClassID() = %d; want original 88", n1.ClassID())
	}
	if table.Count() != 1 {
		t.Errorf("Count() = %d; want 1", table.Count())
	}
}

func TestNobleTable_Get_Missing(t *testing.T) {
	table := NewNobleTable()
	if table.Get(42) != nil {
		t.Error("Get(42) should be nil for empty table")
	}
}

func TestNobleTable_Clear(t *testing.T) {
	table := NewNobleTable()
	table.GetOrCreate(1, 88, "a")
	table.GetOrCreate(2, 93, "b")

	table.Clear()

	if table.Count() != 0 {
		t.Errorf("Count() after Clear = %d; want 0", table.Count())
	}
}

func TestNobleTable_Dirty(t *testing.T) {
	table := NewNobleTable()
	a := table.GetOrCreate(1, 88, "a")
	table.GetOrCreate(2, 93, "b")
	a.MarkClean()

	dirty := table.Dirty()
	if len(dirty) != 1 {
		t.Fatalf("len(Dirty()) = %d; want 1", len(dirty))
	}
	if dirty[0].CharID() != 2 {
		t.Errorf("Dirty()[0].CharID() = %d; want 2", dirty[0].CharID())
	}
}

func TestNobleTable_AddAllWeeklyPoints(t *testing.T) {
	table := NewNobleTable()
	table.GetOrCreate(1, 88, "a")
	table.GetOrCreate(2, 93, "b")

	table.AddAllWeeklyPoints(WeeklyPoints)

	for _, s := range table.All() {
		if s.Points != StartPoints+WeeklyPoints {
			t.Errorf("noble %d points = %d; want %d", s.CharID, s.Points, StartPoints+WeeklyPoints)
		}
	}
}

func TestNobleTable_Load(t *testing.T) {
	table := NewNobleTable()
	table.GetOrCreate(99, 88, "stale")

	table.Load([]NobleStats{
		{CharID: 1, ClassID: 88, Name: "Alice", Points: 40, Matches: 12, Wins: 8, Losses: 3, Draws: 1, Classed: 6, NonClassed: 6},
	})

	if table.Count() != 1 {
		t.Fatalf("Count() = %d; want 1", table.Count())
	}
	n := table.Get(1)
	if n == nil {
		t.Fatal("Get(1) = nil after Load")
	}
	if n.Dirty() {
		t.Error("loaded noble must not be dirty")
	}
	if n.Points() != 40 || n.Matches() != 12 {
		t.Errorf("loaded stats = %+v", n.Stats())
	}
}
