package olympiad

import "time"

// StateVersion — версия схемы персистентных метаданных цикла.
// При расширении набора полей инкрементируется.
const StateVersion = 1

// State — метаданные цикла, переживающие рестарт процесса.
// Java: GlobalVariablesManager "olympiadData" (cycle;end;validation;weekly).
type State struct {
	Version          int32
	CurrentCycle     int32
	OlympiadEnd      time.Time
	ValidationEnd    time.Time
	NextWeeklyChange time.Time
}

// InValidation reports whether the validation grace window is still open.
func (s State) InValidation(now time.Time) bool {
	return now.Before(s.ValidationEnd)
}

// NextOlympiadEnd вычисляет конец нового цикла.
// Retail: первое число следующего месяца, 12:00.
// Weekly ruleset: ближайший понедельник, 12:00.
func NextOlympiadEnd(rules Rules, now time.Time) time.Time {
	if rules.WeeklyCycle {
		end := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
		// До следующего понедельника, минимум +1 день.
		end = end.AddDate(0, 0, 1)
		for end.Weekday() != time.Monday {
			end = end.AddDate(0, 0, 1)
		}
		return end
	}

	// time.Date нормализует month 13 в январь следующего года; AddDate
	// здесь не годится — 31 января он переносит в март.
	return time.Date(now.Year(), now.Month()+1, 1, 12, 0, 0, 0, now.Location())
}
