package region

import (
	"image"
	"sync"
)

// Phase is the state of a selection session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePressed
	PhaseDragging
	PhaseCaptured
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePressed:
		return "pressed"
	case PhaseDragging:
		return "dragging"
	case PhaseCaptured:
		return "captured"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool { return p == PhaseCaptured || p == PhaseCancelled }

// Session is one selection gesture. Transition methods return a new value and
// never modify the receiver, so a Session can be shared freely with renderers.
type Session struct {
	Metrics Metrics
	MinSpan int
	Phase   Phase
	Anchor  Point
	Current Point
	// Box is only meaningful once Phase == PhaseCaptured.
	Box CaptureBox
}

// NewSession starts an idle session. A non-positive minSpan selects DefaultMinSpan.
func NewSession(m Metrics, minSpan int) Session {
	if minSpan <= 0 {
		minSpan = DefaultMinSpan
	}
	return Session{Metrics: m, MinSpan: minSpan, Phase: PhaseIdle}
}

// Press records the drag anchor.
func (s Session) Press(p Point) Session {
	if s.Phase.Terminal() {
		return s
	}
	p = s.Metrics.Clamp(p)
	s.Phase = PhasePressed
	s.Anchor = p
	s.Current = p
	return s
}

// Drag moves the free corner of the selection. Motion without a press is ignored.
func (s Session) Drag(p Point) Session {
	if s.Phase != PhasePressed && s.Phase != PhaseDragging {
		return s
	}
	s.Phase = PhaseDragging
	s.Current = s.Metrics.Clamp(p)
	return s
}

// Release ends the gesture. Selections narrower or shorter than MinSpan end
// cancelled; others end captured with Box in absolute coordinates.
func (s Session) Release(p Point) Session {
	if s.Phase != PhasePressed && s.Phase != PhaseDragging {
		return s
	}
	s.Current = s.Metrics.Clamp(p)
	local := Normalize(s.Anchor, s.Current)
	if local.Dx() < s.MinSpan || local.Dy() < s.MinSpan {
		s.Phase = PhaseCancelled
		return s
	}
	s.Phase = PhaseCaptured
	s.Box = ToCaptureBox(local, s.Metrics)
	return s
}

// Cancel aborts the session from any non-terminal phase.
func (s Session) Cancel() Session {
	if s.Phase.Terminal() {
		return s
	}
	s.Phase = PhaseCancelled
	return s
}

// Done reports whether the session reached a terminal phase.
func (s Session) Done() bool { return s.Phase.Terminal() }

// Captured returns the capture box and true when the session ended with a capture.
func (s Session) Captured() (CaptureBox, bool) {
	if s.Phase != PhaseCaptured {
		return CaptureBox{}, false
	}
	return s.Box, true
}

// Outline is the local rectangle to draw, empty when nothing is being dragged.
func (s Session) Outline() image.Rectangle {
	if s.Phase != PhasePressed && s.Phase != PhaseDragging {
		return image.Rectangle{}
	}
	return Normalize(s.Anchor, s.Current)
}

// Listener observes session changes. prev and next are both values, so a
// listener cannot alter the tracked state.
type Listener func(prev, next Session)

// Tracker holds the live session for an overlay and fans changes out to
// listeners. The overlay feeds input events in; renderers subscribe.
type Tracker struct {
	mu        sync.Mutex
	session   Session
	listeners []Listener
}

// NewTracker wraps an initial session.
func NewTracker(s Session) *Tracker {
	return &Tracker{session: s}
}

// Subscribe registers l for every subsequent change.
func (t *Tracker) Subscribe(l Listener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

// Session returns the current session.
func (t *Tracker) Session() Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

func (t *Tracker) Press(p Point) Session   { return t.apply(func(s Session) Session { return s.Press(p) }) }
func (t *Tracker) Drag(p Point) Session    { return t.apply(func(s Session) Session { return s.Drag(p) }) }
func (t *Tracker) Release(p Point) Session { return t.apply(func(s Session) Session { return s.Release(p) }) }
func (t *Tracker) Cancel() Session         { return t.apply(Session.Cancel) }

func (t *Tracker) apply(step func(Session) Session) Session {
	t.mu.Lock()
	prev := t.session
	next := step(prev)
	t.session = next
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	if next != prev {
		for _, l := range listeners {
			l(prev, next)
		}
	}
	return next
}
