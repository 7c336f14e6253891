package olympiad

import "time"

// Конфигурация олимпиады. Значения из Olympiad.java / OlympiadConfig.java.
const (
	// StartPoints — начальное количество очков при регистрации в олимпиаде.
	StartPoints = 18

	// WeeklyPoints — еженедельное пополнение очков.
	WeeklyPoints = 10

	// MaxPoints — максимум очков за один бой (±10).
	MaxPoints = 10

	// CompStartHour — час начала соревнований (18:00).
	CompStartHour = 18

	// CompStartMinute — минута начала соревнований.
	CompStartMinute = 0

	// CompPeriodDuration — длительность окна соревнований (6 часов).
	CompPeriodDuration = 6 * time.Hour

	// WeeklyPeriod — интервал еженедельного пополнения очков.
	WeeklyPeriod = 7 * 24 * time.Hour

	// ValidationPeriod — длительность периода валидации (24 часа).
	ValidationPeriod = 24 * time.Hour

	// RegistrationCloseWarning — за сколько до конца окна объявляется
	// закрытие регистрации.
	RegistrationCloseWarning = 10 * time.Minute

	// MatchmakingInterval — период запуска драйвера матчей во время окна.
	MatchmakingInterval = 30 * time.Second

	// AnnounceInterval — период анонсов идущих боёв.
	AnnounceInterval = 30 * time.Second

	// DrainPollInterval — период опроса драйвера при ожидании quiescence.
	DrainPollInterval = time.Minute

	// DrainTimeout — жёсткий потолок ожидания quiescence. После него
	// teardown продолжается принудительно.
	DrainTimeout = 15 * time.Minute

	// HeroMinMatches — минимум матчей для лидерборда и отбора героев.
	HeroMinMatches = 10

	// HeroMinMatchesLegacy — порог для alternate ruleset.
	HeroMinMatchesLegacy = 5

	// HeroMinWins — минимум побед для лидерборда и отбора героев.
	HeroMinWins = 1

	// MinClassedPoints — минимум очков для регистрации на classed матч.
	MinClassedPoints = 3

	// MinNonClassedPoints — минимум очков для регистрации на non-classed матч.
	MinNonClassedPoints = 5

	// ClassedScoreDiv — делитель переходящих очков для class-based боя.
	ClassedScoreDiv = 3

	// NonClassedScoreDiv — делитель переходящих очков для non-class-based боя.
	NonClassedScoreDiv = 5

	// DrawPenaltyDiv — делитель штрафа при ничьей.
	DrawPenaltyDiv = 5

	// LeaderboardLimit — размер class leaderboard в ответах запросов.
	LeaderboardLimit = 10
)

// Period определяет текущий период олимпиады.
type Period int32

const (
	// PeriodCompetition — период соревнований (основной).
	PeriodCompetition Period = 0
	// PeriodValidation — период валидации (подсчёт героев, выдача наград).
	PeriodValidation Period = 1
)

// String возвращает текстовое представление периода.
func (p Period) String() string {
	switch p {
	case PeriodCompetition:
		return "COMPETITION"
	case PeriodValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// Rank определяет ранг в олимпиаде (top 1%, 10%, 25%, 50%, rest).
type Rank int32

const (
	Rank1 Rank = 1 // Top 1%
	Rank2 Rank = 2 // Top 10%
	Rank3 Rank = 3 // Top 25%
	Rank4 Rank = 4 // Top 50%
	Rank5 Rank = 5 // Rest
)

// Outcome — исход одного боя для участника.
type Outcome int32

const (
	OutcomeWin Outcome = iota
	OutcomeLoss
	OutcomeDraw
)

// String возвращает текстовое представление исхода.
func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "WIN"
	case OutcomeLoss:
		return "LOSS"
	case OutcomeDraw:
		return "DRAW"
	default:
		return "UNKNOWN"
	}
}

// HeroClassIDs — классы, участвующие в отборе героев.
// Java: 88-118, 131-134 (3rd class transfer IDs).
var HeroClassIDs = []int32{
	88, 89, 90, 91, 92, 93, 94, 95, 96, 97, 98,
	99, 100, 101, 102, 103, 104, 105, 106, 107, 108,
	109, 110, 111, 112, 113, 114, 115, 116, 117, 118,
	131, 132, 133, 134,
}

// Rules — параметры цикла, меняемые конфигом (alternate ruleset Tenkai
// Legacy: недельные циклы и порог 5 матчей).
type Rules struct {
	// WeeklyCycle: цикл заканчивается в ближайший понедельник вместо
	// первого числа следующего месяца.
	WeeklyCycle bool

	// MinMatches — порог участия в лидерборде/отборе героев.
	MinMatches int32

	// WeeklyGrant — размер еженедельного пополнения очков.
	WeeklyGrant int32

	// WindowDays — дни недели, в которые открывается окно соревнований.
	WindowDays []time.Weekday

	StartHour   int
	StartMinute int
	CompPeriod  time.Duration

	WeeklyPeriod     time.Duration
	ValidationPeriod time.Duration

	DrainPollInterval time.Duration
	DrainTimeout      time.Duration

	MatchmakingInterval time.Duration
	AnnounceGames       bool
}

// DefaultRules returns retail-like rules (monthly cycle, threshold 10).
func DefaultRules() Rules {
	return Rules{
		WeeklyCycle:         false,
		MinMatches:          HeroMinMatches,
		WeeklyGrant:         WeeklyPoints,
		WindowDays:          []time.Weekday{time.Friday, time.Saturday, time.Sunday},
		StartHour:           CompStartHour,
		StartMinute:         CompStartMinute,
		CompPeriod:          CompPeriodDuration,
		WeeklyPeriod:        WeeklyPeriod,
		ValidationPeriod:    ValidationPeriod,
		DrainPollInterval:   DrainPollInterval,
		DrainTimeout:        DrainTimeout,
		MatchmakingInterval: MatchmakingInterval,
		AnnounceGames:       true,
	}
}

// LegacyRules returns the alternate ruleset (weekly cycle, threshold 5).
func LegacyRules() Rules {
	r := DefaultRules()
	r.WeeklyCycle = true
	r.MinMatches = HeroMinMatchesLegacy
	return r
}
