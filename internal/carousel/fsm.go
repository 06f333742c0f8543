// Package carousel drives the rotating homepage banner: a pure state machine
// plus a controller that feeds it timer, pointer and touch events one at a time.
package carousel

import "fmt"

// SwipeThreshold is the horizontal distance in pixels a touch has to travel
// before it counts as a swipe.
const SwipeThreshold = 50

type Phase int

const (
	Idle Phase = iota
	Paused
	ManualAdvancing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Paused:
		return "paused"
	case ManualAdvancing:
		return "manual-advancing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type EventKind int

const (
	Tick EventKind = iota
	Next
	Prev
	Jump
	HoverStart
	HoverEnd
	TouchStart
	TouchMove
	TouchEnd
	Settle
)

var eventNames = [...]string{"tick", "next", "prev", "jump", "hover-start", "hover-end", "touch-start", "touch-move", "touch-end", "settle"}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one input to the state machine. Index is used by Jump, X by the
// touch events and Gen by Settle.
type Event struct {
	Kind  EventKind
	Index int
	X     float64
	Gen   uint64
}

func JumpTo(i int) Event { return Event{Kind: Jump, Index: i} }
func TouchAt(x float64) Event { return Event{Kind: TouchStart, X: x} }
func TouchMoveTo(x float64) Event { return Event{Kind: TouchMove, X: x} }
func SettleGen(gen uint64) Event { return Event{Kind: Settle, Gen: gen} }

// State is the full carousel state. It is a value type; Reduce never mutates
// its argument.
type State struct {
	Count int
	Index int
	Phase Phase

	// Hovered keeps the pause across a manual transition so the carousel
	// settles back into Paused rather than Idle.
	Hovered bool

	// SkipNext swallows the first auto-advance after a manual move.
	SkipNext bool

	// Gen identifies the latest manual transition; only a Settle carrying it
	// ends ManualAdvancing.
	Gen uint64

	Touching bool
	StartX   float64
	EndX     float64
}

// NewState returns the initial state for a carousel of count items.
func NewState(count int) State {
	if count < 0 {
		count = 0
	}
	return State{Count: count}
}

// Reduce applies ev to s and returns the next state.
func Reduce(s State, ev Event) State {
	switch ev.Kind {
	case Tick:
		if s.Count == 0 || s.Hovered {
			return s
		}
		if s.SkipNext {
			s.SkipNext = false
			return s
		}
		s.Index = (s.Index + 1) % s.Count
		return s

	case Next:
		if s.Count == 0 {
			return s
		}
		return manual(s, (s.Index+1)%s.Count)

	case Prev:
		if s.Count == 0 {
			return s
		}
		return manual(s, (s.Index-1+s.Count)%s.Count)

	case Jump:
		if ev.Index < 0 || ev.Index >= s.Count {
			return s
		}
		return manual(s, ev.Index)

	case HoverStart:
		s.Hovered = true
		if s.Phase == Idle {
			s.Phase = Paused
		}
		return s

	case HoverEnd:
		s.Hovered = false
		if s.Phase == Paused {
			s.Phase = Idle
		}
		return s

	case TouchStart:
		if s.Phase == ManualAdvancing {
			return s
		}
		s.Touching = true
		s.StartX, s.EndX = ev.X, ev.X
		return s

	case TouchMove:
		if s.Phase == ManualAdvancing || !s.Touching {
			return s
		}
		s.EndX = ev.X
		return s

	case TouchEnd:
		if s.Phase == ManualAdvancing || !s.Touching {
			return s
		}
		delta := s.StartX - s.EndX
		s.Touching = false
		s.StartX, s.EndX = 0, 0
		switch {
		case delta > SwipeThreshold:
			return Reduce(s, Event{Kind: Next})
		case delta < -SwipeThreshold:
			return Reduce(s, Event{Kind: Prev})
		}
		return s

	case Settle:
		if s.Phase != ManualAdvancing || ev.Gen != s.Gen {
			return s
		}
		s.Phase = Idle
		if s.Hovered {
			s.Phase = Paused
		}
		return s
	}
	return s
}

func manual(s State, index int) State {
	s.Index = index
	s.SkipNext = true
	s.Phase = ManualAdvancing
	s.Gen++
	s.Touching = false
	return s
}
