package olympiad

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/olympiad/internal/metrics"
)

// resumeDelay — задержка срабатывания open-таймера, когда окно уже идёт
// (рестарт посреди окна). Java: getMillisToCompBegin() возвращает 10L.
const resumeDelay = 10 * time.Millisecond

// NextWindow вычисляет ближайшее окно соревнований для момента now.
//
// Если окно сегодняшнего дня ещё не закрылось, возвращается оно —
// в том числе с open в прошлом ("возобновить идущее окно"). Иначе
// поиск идёт вперёд по дням из rules.WindowDays.
//
// Чистая функция: вся арифметика следующего окна живёт здесь и
// тестируется без живых часов.
func NextWindow(rules Rules, now time.Time) (open, end time.Time) {
	days := rules.WindowDays
	if len(days) == 0 {
		days = []time.Weekday{time.Friday}
	}

	open = time.Date(now.Year(), now.Month(), now.Day(),
		rules.StartHour, rules.StartMinute, 0, 0, now.Location())
	for !windowDay(days, open.Weekday()) {
		open = open.AddDate(0, 0, 1)
	}
	end = open.Add(rules.CompPeriod)

	if now.Before(end) {
		return open, end
	}

	// Сегодняшнее окно уже закрылось — искать со следующего дня.
	open = open.AddDate(0, 0, 1)
	for !windowDay(days, open.Weekday()) {
		open = open.AddDate(0, 0, 1)
	}
	return open, open.Add(rules.CompPeriod)
}

func windowDay(days []time.Weekday, d time.Weekday) bool {
	for _, wd := range days {
		if wd == d {
			return true
		}
	}
	return false
}

// WindowScheduler владеет таймерами open/close окна соревнований и
// жизненным циклом драйвера матчей внутри окна.
//
// Потокобезопасен; каждый таймер хранится для cancel-before-arm.
type WindowScheduler struct {
	rules    Rules
	oly      *Olympiad
	driver   MatchDriver
	announce Announcer
	metrics  *metrics.Metrics
	onResult func(MatchResult)

	// now подменяется в тестах.
	now func() time.Time

	mu            sync.Mutex
	stopped       bool
	driverRunning bool
	openTimer     *time.Timer
	closeTimer    *time.Timer
	regCloseTimer *time.Timer
	announceStop  chan struct{}
}

// NewWindowScheduler создаёт scheduler. Таймеры не взводятся до Start.
func NewWindowScheduler(
	rules Rules,
	oly *Olympiad,
	driver MatchDriver,
	announce Announcer,
	m *metrics.Metrics,
	onResult func(MatchResult),
) *WindowScheduler {
	return &WindowScheduler{
		rules:    rules,
		oly:      oly,
		driver:   driver,
		announce: announce,
		metrics:  m,
		onResult: onResult,
		now:      time.Now,
	}
}

// Start вычисляет ближайшее окно и взводит open-таймер.
// Повторный вызов перевзводит таймеры (cancel-before-arm), не дублируя их.
func (s *WindowScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = false
	s.cancelTimersLocked()

	now := s.now()
	open, end := NextWindow(s.rules, now)
	s.oly.SetCompSchedule(open, end)

	delay := open.Sub(now)
	if delay < resumeDelay {
		delay = resumeDelay
	}

	slog.Info("competition window scheduled",
		"open", open, "close", end, "in", delay.Round(time.Second))

	s.openTimer = time.AfterFunc(delay, s.onWindowOpen)
}

// Stop снимает все таймеры и, если окно открыто, останавливает драйвер
// после ограниченного ожидания quiescence.
func (s *WindowScheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	s.stopped = true
	s.cancelTimersLocked()
	wasRunning := s.driverRunning
	s.driverRunning = false
	s.stopAnnouncerLocked()
	s.mu.Unlock()

	if wasRunning {
		s.oly.EndCompPeriod()
		s.metrics.SetCompOpen(false)
		drainDriver(ctx, s.driver, s.rules, s.metrics)
		s.driver.Stop()
	}
}

// cancelTimersLocked снимает взведённые таймеры. Caller держит mu.
func (s *WindowScheduler) cancelTimersLocked() {
	if s.openTimer != nil {
		s.openTimer.Stop()
		s.openTimer = nil
	}
	if s.closeTimer != nil {
		s.closeTimer.Stop()
		s.closeTimer = nil
	}
	if s.regCloseTimer != nil {
		s.regCloseTimer.Stop()
		s.regCloseTimer = nil
	}
}

func (s *WindowScheduler) stopAnnouncerLocked() {
	if s.announceStop != nil {
		close(s.announceStop)
		s.announceStop = nil
	}
}

// onWindowOpen — срабатывание open-таймера.
func (s *WindowScheduler) onWindowOpen() {
	s.mu.Lock()
	if s.stopped || s.driverRunning {
		s.mu.Unlock()
		return
	}
	s.driverRunning = true

	now := s.now()
	untilClose := s.oly.CompEnd().Sub(now)
	if untilClose <= 0 {
		// Гонка с закрытием: окно уже истекло, перепланировать.
		s.driverRunning = false
		s.mu.Unlock()
		s.Start()
		return
	}

	if s.rules.AnnounceGames {
		stop := make(chan struct{})
		s.announceStop = stop
		go s.announceLoop(stop)
	}

	if untilClose > RegistrationCloseWarning {
		s.regCloseTimer = time.AfterFunc(untilClose-RegistrationCloseWarning, func() {
			s.announce.Broadcast("The registration period for the Grand Olympiad Games has ended.")
		})
	}
	s.closeTimer = time.AfterFunc(untilClose, s.onWindowClose)
	s.mu.Unlock()

	s.oly.StartCompPeriod()
	s.metrics.SetCompOpen(true)
	s.announce.Broadcast("The Grand Olympiad Games have started.")
	slog.Info("olympiad competition window opened", "close", now.Add(untilClose))

	s.driver.Start(s.onResult)
}

// onWindowClose — срабатывание close-таймера: закрыть окно, дождаться
// quiescence (с потолком), остановить драйвер и перепланировать.
func (s *WindowScheduler) onWindowClose() {
	s.mu.Lock()
	if s.stopped || !s.driverRunning {
		s.mu.Unlock()
		return
	}
	s.driverRunning = false
	s.stopAnnouncerLocked()
	s.mu.Unlock()

	s.oly.EndCompPeriod()
	s.metrics.SetCompOpen(false)
	s.announce.Broadcast("The Grand Olympiad Games have ended.")
	slog.Info("olympiad competition window closed")

	drainDriver(context.Background(), s.driver, s.rules, s.metrics)
	s.driver.Stop()

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if !stopped {
		// Следующее окно считается от свежего момента, не от
		// состояния, захваченного до закрытия.
		s.Start()
	}
}

// announceLoop периодически напоминает про идущие игры, пока окно открыто.
func (s *WindowScheduler) announceLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(AnnounceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.announce.Broadcast("Grand Olympiad Games are in progress.")
		}
	}
}

// drainDriver блокирует до quiescence драйвера матчей.
//
// Ограниченное, отменяемое ожидание: poll каждые DrainPollInterval,
// жёсткий потолок DrainTimeout, после которого teardown продолжается
// принудительно (идущие бои обрывает собственный cleanup драйвера).
func drainDriver(ctx context.Context, driver MatchDriver, rules Rules, m *metrics.Metrics) {
	if driver.IsQuiescent() {
		return
	}

	start := time.Now()
	deadline := time.NewTimer(rules.DrainTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(rules.DrainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("match driver drain cancelled", "waited", time.Since(start).Round(time.Second))
			m.ObserveDrain(time.Since(start).Seconds())
			return
		case <-deadline.C:
			slog.Warn("match driver drain timed out, forcing stop",
				"waited", time.Since(start).Round(time.Second))
			m.DrainTimeout()
			m.ObserveDrain(time.Since(start).Seconds())
			return
		case <-ticker.C:
			if driver.IsQuiescent() {
				m.ObserveDrain(time.Since(start).Seconds())
				return
			}
		}
	}
}
