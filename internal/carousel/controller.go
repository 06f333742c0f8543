package carousel

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultSettleDelay = 100 * time.Millisecond
)

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the auto-advance period.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithSettleDelay sets how long a manual transition lasts.
func WithSettleDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.settle = d
		}
	}
}

// WithTicks replaces the auto-advance ticker with ch.
func WithTicks(ch <-chan time.Time) Option {
	return func(c *Controller) {
		c.ticks = ch
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// Controller owns a carousel State and applies events to it serially from a
// single goroutine started by Run.
type Controller struct {
	log      *slog.Logger
	interval time.Duration
	settle   time.Duration
	ticks    <-chan time.Time
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.RWMutex
	state     State
	observers []func(State)
}

// NewController creates a controller for count items.
func NewController(count int, opts ...Option) *Controller {
	c := &Controller{
		log:      slog.Default().With("component", "carousel"),
		interval: DefaultInterval,
		settle:   DefaultSettleDelay,
		events:   make(chan Event, 32),
		done:     make(chan struct{}),
		state:    NewState(count),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// OnChange registers fn to be called from the controller goroutine after
// every state change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Send queues ev. It reports false once the controller has stopped.
func (c *Controller) Send(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) Next() { c.Send(Event{Kind: Next}) }
func (c *Controller) Prev() { c.Send(Event{Kind: Prev}) }
func (c *Controller) Jump(i int) { c.Send(JumpTo(i)) }
func (c *Controller) HoverStart() { c.Send(Event{Kind: HoverStart}) }
func (c *Controller) HoverEnd() { c.Send(Event{Kind: HoverEnd}) }
func (c *Controller) TouchStart(x float64) { c.Send(TouchAt(x)) }
func (c *Controller) TouchMove(x float64) { c.Send(TouchMoveTo(x)) }
func (c *Controller) TouchEnd() { c.Send(Event{Kind: TouchEnd}) }

// Run processes events until ctx is cancelled. With no items there is
// nothing to rotate and Run returns immediately without starting a timer.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stopOnce.Do(func() { close(c.done) })

	if c.State().Count == 0 {
		c.log.Debug("carousel has no items, not starting")
		return nil
	}

	ticks := c.ticks
	if ticks == nil {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var (
		settleTimer *time.Timer
		settleC     <-chan time.Time
		settleGen   uint64
	)
	defer func() {
		if settleTimer != nil {
			settleTimer.Stop()
		}
	}()

	c.log.Info("carousel started", "items", c.State().Count, "interval", c.interval)
	for {
		var ev Event
		select {
		case <-ctx.Done():
			c.log.Info("carousel stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticks:
			ev = Event{Kind: Tick}
		case <-settleC:
			settleC = nil
			ev = SettleGen(settleGen)
		case ev = <-c.events:
		}

		prev, next := c.apply(ev)
		if next.Gen != prev.Gen {
			// Every manual move restarts the settle window.
			if settleTimer != nil {
				settleTimer.Stop()
			}
			settleTimer = time.NewTimer(c.settle)
			settleC = settleTimer.C
			settleGen = next.Gen
		}
	}
}

func (c *Controller) apply(ev Event) (State, State) {
	c.mu.Lock()
	prev := c.state
	next := Reduce(prev, ev)
	c.state = next
	observers := append([]func(State){}, c.observers...)
	c.mu.Unlock()

	if next == prev {
		return prev, next
	}
	if ev.Kind != Tick {
		c.log.Debug("carousel event", "event", ev.Kind.String(), "index", next.Index, "phase", next.Phase.String())
	}
	for _, fn := range observers {
		fn(next)
	}
	return prev, next
}
