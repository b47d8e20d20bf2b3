package detect

import (
	"sync"
	"time"

	"github.com/Iron-Ham/agentmux/internal/logging"
)

// CancelFunc stops a scheduled timer. It is safe to call more than
// once and after the timer fired.
type CancelFunc func()

// Scheduler schedules a callback after a delay. The production
// implementation uses real timers; tests inject a fake.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) CancelFunc
}

// TimerScheduler is the Scheduler backed by the runtime timer wheel.
type TimerScheduler struct{}

// AfterFunc schedules fn on its own goroutine after d.
func (TimerScheduler) AfterFunc(d time.Duration, fn func()) CancelFunc {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Callbacks receives the machine's one-time and per-cycle signals.
// Nil entries are skipped. Callbacks run outside the monitor lock.
type Callbacks struct {
	OnInitialized func(sessionID string)
	OnActivated   func(sessionID string)
	OnNotify      func(sessionID string)
}

// Monitor runs one detection machine per tracked session, translating
// Step effects into real timer scheduling and callbacks.
type Monitor struct {
	cfg   Config
	sched Scheduler
	cb    Callbacks
	log   *logging.Logger

	mu       sync.Mutex
	sessions map[string]*watch
}

type watch struct {
	state      State
	cancelArm  CancelFunc
	cancelIdle CancelFunc
}

// NewMonitor builds a Monitor. A nil scheduler defaults to real timers
// and a nil logger to a no-op logger.
func NewMonitor(cfg Config, sched Scheduler, cb Callbacks, log *logging.Logger) *Monitor {
	if sched == nil {
		sched = TimerScheduler{}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Monitor{
		cfg:      cfg,
		sched:    sched,
		cb:       cb,
		log:      log.WithComponent("detect"),
		sessions: make(map[string]*watch),
	}
}

// Track starts watching a session. Tracking an already-tracked session
// is a no-op.
func (m *Monitor) Track(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; ok {
		return
	}
	m.sessions[sessionID] = &watch{}
}

// Untrack stops watching a session and cancels its timers. Untracking
// an unknown session is a no-op.
func (m *Monitor) Untrack(sessionID string) {
	m.mu.Lock()
	w, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	if w.cancelArm != nil {
		w.cancelArm()
	}
	if w.cancelIdle != nil {
		w.cancelIdle()
	}
}

// Tracked reports whether the session is being watched.
func (m *Monitor) Tracked(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

// Phase returns the current phase of a tracked session, PhaseIdle for
// unknown sessions.
func (m *Monitor) Phase(sessionID string) Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.sessions[sessionID]; ok {
		return w.state.Phase()
	}
	return PhaseIdle
}

// HandleOutput feeds a terminal output chunk of n bytes.
func (m *Monitor) HandleOutput(sessionID string, n int) {
	m.apply(sessionID, OutputEvent{Len: n})
}

// HandleEnter feeds a plain Enter keystroke.
func (m *Monitor) HandleEnter(sessionID string) {
	m.apply(sessionID, EnterEvent{})
}

// HandleKey feeds a non-Enter keystroke.
func (m *Monitor) HandleKey(sessionID string, modified bool) {
	m.apply(sessionID, KeyEvent{Modified: modified})
}

// HandleExternalStop feeds a structured completion signal from the
// host, bypassing the heuristics.
func (m *Monitor) HandleExternalStop(sessionID string) {
	m.apply(sessionID, ExternalStop{})
}

// apply runs one event through the session's machine and executes the
// resulting effects. Events for untracked sessions, including timers
// firing after Untrack, are dropped.
func (m *Monitor) apply(sessionID string, ev Event) {
	m.mu.Lock()
	w, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return
	}
	next, fx := Step(m.cfg, w.state, ev)
	w.state = next

	if fx.CancelArmDelay && w.cancelArm != nil {
		w.cancelArm()
		w.cancelArm = nil
	}
	if fx.CancelIdle && w.cancelIdle != nil {
		w.cancelIdle()
		w.cancelIdle = nil
	}
	if fx.ScheduleArmDelay {
		token := fx.ArmDelayToken
		w.cancelArm = m.sched.AfterFunc(m.cfg.ArmDelay, func() {
			m.apply(sessionID, ArmDelayElapsed{Token: token})
		})
	}
	if fx.ScheduleIdle {
		token := fx.IdleToken
		w.cancelIdle = m.sched.AfterFunc(m.cfg.IdleTimeout, func() {
			m.apply(sessionID, IdleElapsed{Token: token})
		})
	}
	m.mu.Unlock()

	if fx.Initialized {
		m.log.WithSession(sessionID).Debug("session produced first output")
		if m.cb.OnInitialized != nil {
			m.cb.OnInitialized(sessionID)
		}
	}
	if fx.Activated {
		m.log.WithSession(sessionID).Debug("session received first submit")
		if m.cb.OnActivated != nil {
			m.cb.OnActivated(sessionID)
		}
	}
	if fx.Notify {
		m.log.WithSession(sessionID).Info("session went idle after work")
		if m.cb.OnNotify != nil {
			m.cb.OnNotify(sessionID)
		}
	}
}
