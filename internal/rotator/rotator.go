package rotator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Ticker is the repeating timer driving auto-advance.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Reset(d time.Duration) { t.t.Reset(d) }
func (t timeTicker) Stop() { t.t.Stop() }
func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

// Option customises a Rotator.
type Option func(*Rotator)

// WithTicker replaces the wall-clock ticker, mainly for tests.
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(r *Rotator) {
		if fn != nil {
			r.newTicker = fn
		}
	}
}

// WithLogger attaches a logger for lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Rotator) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithName labels the rotator in logs.
func WithName(name string) Option {
	return func(r *Rotator) { r.name = name }
}

type selectReq struct {
	index int
	reply chan error
}

// Rotator owns a State and the ticker that advances it. Ticks and selections
// are applied by a single goroutine in arrival order. A Select resets the
// ticker so the chosen slide stays up for a full interval.
type Rotator struct {
	interval  time.Duration
	newTicker func(time.Duration) Ticker
	logger    *zap.Logger
	name      string

	mu    sync.RWMutex
	state State

	subMu   sync.Mutex
	subs    map[int]func(int)
	nextSub int

	selects   chan selectReq
	stop      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// New builds a rotator over n slides and starts its ticker.
func New(n int, interval time.Duration, opts ...Option) (*Rotator, error) {
	st, err := NewState(n)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("rotator: interval must be positive (got %s)", interval)
	}
	r := &Rotator{
		interval:  interval,
		newTicker: newTimeTicker,
		logger:    zap.NewNop(),
		state:     st,
		subs:      map[int]func(int){},
		selects:   make(chan selectReq),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	ticker := r.newTicker(interval)
	go r.loop(ticker)
	return r, nil
}

func (r *Rotator) loop(t Ticker) {
	defer close(r.done)
	defer t.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-t.C():
			r.mu.Lock()
			idx := r.state.Tick()
			r.mu.Unlock()
			r.notify(idx)
		case req := <-r.selects:
			r.mu.Lock()
			err := r.state.Select(req.index)
			idx := r.state.index
			r.mu.Unlock()
			if err == nil {
				t.Reset(r.interval)
				r.notify(idx)
			}
			req.reply <- err
		}
	}
}

// Select shows slide i and restarts the interval. It returns once the loop
// has applied the change, so any later tick advances from i.
func (r *Rotator) Select(i int) error {
	if r.closed.Load() {
		return ErrClosed
	}
	req := selectReq{index: i, reply: make(chan error, 1)}
	select {
	case r.selects <- req:
	case <-r.done:
		return ErrClosed
	}
	select {
	case err := <-req.reply:
		return err
	case <-r.done:
		select {
		case err := <-req.reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// Index returns the active slide.
func (r *Rotator) Index() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.index
}

// Len returns the number of slides.
func (r *Rotator) Len() int { return r.state.n }

// Interval returns the auto-advance period.
func (r *Rotator) Interval() time.Duration { return r.interval }

// Subscribe registers fn to be called with the new index after every
// transition. fn runs on the rotator goroutine and must not block.
func (r *Rotator) Subscribe(fn func(int)) (cancel func()) {
	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.subMu.Unlock()
	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

func (r *Rotator) notify(idx int) {
	r.subMu.Lock()
	fns := make([]func(int), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.Unlock()
	for _, fn := range fns {
		fn(idx)
	}
}

// Close stops the ticker and waits for the loop to exit. The index is frozen
// afterwards. Safe to call more than once.
func (r *Rotator) Close() {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		close(r.stop)
		<-r.done
		r.logger.Debug("rotator stopped", zap.String("rotator", r.name), zap.Int("index", r.Index()))
	})
}

// Closed reports whether Close has been called.
func (r *Rotator) Closed() bool { return r.closed.Load() }
