package detect

import "time"

// DefaultOutputThreshold is the output volume, in bytes, a window must
// exceed before silence becomes meaningful.
const DefaultOutputThreshold = 100

// DefaultIdleTimeout is how long an armed session must stay silent
// before it is considered done.
const DefaultIdleTimeout = 2 * time.Second

// Config carries the tunables of the detection machine.
type Config struct {
	// ArmDelay postpones the accumulation window after Enter. Zero
	// opens the window immediately.
	ArmDelay time.Duration
	// IdleTimeout is the silence span that fires a completion signal
	// once armed.
	IdleTimeout time.Duration
	// OutputThreshold is the byte volume a window must exceed to arm.
	OutputThreshold int
}

// DefaultConfig returns the stock tunables.
func DefaultConfig() Config {
	return Config{
		ArmDelay:        0,
		IdleTimeout:     DefaultIdleTimeout,
		OutputThreshold: DefaultOutputThreshold,
	}
}

// Phase is the observable state of the machine.
type Phase int

const (
	// PhaseIdle means no submission is being watched.
	PhaseIdle Phase = iota
	// PhaseArmPending means a window is pending or accumulating but the
	// output threshold has not been crossed yet.
	PhaseArmPending
	// PhaseArmed means the threshold was crossed and silence now counts.
	PhaseArmed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseArmPending:
		return "arm-pending"
	case PhaseArmed:
		return "armed"
	default:
		return "unknown"
	}
}

// State is the per-session machine state. The zero value is a fresh
// idle machine.
type State struct {
	HasStarted        bool
	Activated         bool
	WindowOpen        bool
	Armed             bool
	OutputSinceSubmit int

	// Sequence tokens for outstanding timers. A timer event whose token
	// does not match the current sequence is stale.
	ArmDelaySeq int
	IdleSeq     int

	// armDelayLive marks the current ArmDelaySeq as having an
	// outstanding timer rather than a cancelled one.
	armDelayLive bool
}

// Phase derives the observable phase from the state fields.
func (s State) Phase() Phase {
	switch {
	case s.Armed:
		return PhaseArmed
	case s.WindowOpen || s.armDelayLive:
		return PhaseArmPending
	default:
		return PhaseIdle
	}
}

// Event is one input to the machine.
type Event interface {
	isEvent()
}

// OutputEvent reports a chunk of terminal output of Len bytes.
type OutputEvent struct {
	Len int
}

// EnterEvent reports a plain Enter keystroke, no modifiers and not
// mid-composition.
type EnterEvent struct{}

// KeyEvent reports any keystroke other than plain Enter. Modified
// chords are ignored for cancellation purposes.
type KeyEvent struct {
	Modified bool
}

// ArmDelayElapsed reports that the arm-delay timer scheduled with the
// given token fired.
type ArmDelayElapsed struct {
	Token int
}

// IdleElapsed reports that the idle-timeout timer scheduled with the
// given token fired.
type IdleElapsed struct {
	Token int
}

// ExternalStop reports a structured completion signal from the host,
// bypassing the volume/silence heuristics.
type ExternalStop struct{}

func (OutputEvent) isEvent()     {}
func (EnterEvent) isEvent()      {}
func (KeyEvent) isEvent()        {}
func (ArmDelayElapsed) isEvent() {}
func (IdleElapsed) isEvent()     {}
func (ExternalStop) isEvent()    {}

// Effects is what the caller must do after a transition. Timer
// scheduling carries the token the resulting timer event must echo.
type Effects struct {
	// Initialized fires once, on the first output chunk ever seen.
	Initialized bool
	// Activated fires once, on the first plain Enter ever seen.
	Activated bool
	// Notify fires when an armed session went silent long enough, or on
	// an external stop. At most one per work cycle.
	Notify bool

	ScheduleArmDelay bool
	ArmDelayToken    int
	CancelArmDelay   bool

	ScheduleIdle bool
	IdleToken    int
	CancelIdle   bool
}

// Step applies one event to the machine. It never mutates st; the new
// state and the effects to execute are returned.
func Step(cfg Config, st State, ev Event) (State, Effects) {
	var fx Effects
	switch e := ev.(type) {
	case OutputEvent:
		if !st.HasStarted {
			st.HasStarted = true
			fx.Initialized = true
		}
		if st.Armed {
			// Still working. Push the silence deadline out.
			st.IdleSeq++
			fx.CancelIdle = true
			fx.ScheduleIdle = true
			fx.IdleToken = st.IdleSeq
			return st, fx
		}
		if st.WindowOpen {
			st.OutputSinceSubmit += e.Len
			if st.OutputSinceSubmit > cfg.OutputThreshold {
				st.Armed = true
				st.IdleSeq++
				fx.ScheduleIdle = true
				fx.IdleToken = st.IdleSeq
			}
		}
		return st, fx

	case EnterEvent:
		if !st.Activated {
			st.Activated = true
			fx.Activated = true
		}
		st.OutputSinceSubmit = 0
		st.Armed = false
		st.WindowOpen = false
		st.IdleSeq++
		st.ArmDelaySeq++
		fx.CancelIdle = true
		fx.CancelArmDelay = true
		if cfg.ArmDelay > 0 {
			st.armDelayLive = true
			fx.ScheduleArmDelay = true
			fx.ArmDelayToken = st.ArmDelaySeq
		} else {
			st.WindowOpen = true
		}
		return st, fx

	case KeyEvent:
		if e.Modified {
			return st, fx
		}
		st.OutputSinceSubmit = 0
		st.Armed = false
		st.WindowOpen = false
		st.armDelayLive = false
		st.IdleSeq++
		st.ArmDelaySeq++
		fx.CancelIdle = true
		fx.CancelArmDelay = true
		return st, fx

	case ArmDelayElapsed:
		if e.Token != st.ArmDelaySeq || !st.armDelayLive {
			return st, fx
		}
		st.armDelayLive = false
		st.WindowOpen = true
		return st, fx

	case IdleElapsed:
		if e.Token != st.IdleSeq || !st.Armed {
			return st, fx
		}
		fx.Notify = true
		st.Armed = false
		st.WindowOpen = false
		st.OutputSinceSubmit = 0
		return st, fx

	case ExternalStop:
		fx.Notify = true
		st.Armed = false
		st.WindowOpen = false
		st.armDelayLive = false
		st.OutputSinceSubmit = 0
		st.IdleSeq++
		st.ArmDelaySeq++
		fx.CancelIdle = true
		fx.CancelArmDelay = true
		return st, fx
	}
	return st, fx
}
