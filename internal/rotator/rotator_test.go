package rotator

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeTicker struct {
	c chan time.Time

	mu      sync.Mutex
	resets  int
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Reset(time.Duration) {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeTicker) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func (f *fakeTicker) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type harness struct {
	r       *Rotator
	ticker  *fakeTicker
	changes chan int
}

func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	ft := &fakeTicker{c: make(chan time.Time)}
	r, err := New(n, time.Second, WithTicker(func(time.Duration) Ticker { return ft }), WithName("test"))
	require.NoError(t, err)
	h := &harness{r: r, ticker: ft, changes: make(chan int, 16)}
	r.Subscribe(func(i int) { h.changes <- i })
	t.Cleanup(r.Close)
	return h
}

func (h *harness) tick(t *testing.T) int {
	t.Helper()
	h.ticker.c <- time.Now()
	select {
	case idx := <-h.changes:
		return idx
	case <-time.After(2 * time.Second):
		t.Fatal("tick not applied")
		return -1
	}
}

func (h *harness) drain() {
	for {
		select {
		case <-h.changes:
		default:
			return
		}
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStateWrapsAround(t *testing.T) {
	st, err := NewState(3)
	require.NoError(t, err)

	got := []int{st.Index()}
	for i := 0; i < 3; i++ {
		got = append(got, st.Tick())
	}
	require.Equal(t, []int{0, 1, 2, 0}, got)
}

func TestStateSelectThenTick(t *testing.T) {
	st, _ := NewState(3)
	require.NoError(t, st.Select(2))
	require.Equal(t, 2, st.Index())
	require.Equal(t, 0, st.Tick())
}

func TestStateRejectsOutOfRange(t *testing.T) {
	st, _ := NewState(3)
	require.ErrorIs(t, st.Select(3), ErrIndexOutOfRange)
	require.ErrorIs(t, st.Select(-1), ErrIndexOutOfRange)
	require.Equal(t, 0, st.Index())

	_, err := NewState(0)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestStateIndexAlwaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 1; n <= 7; n++ {
		st, err := NewState(n)
		require.NoError(t, err)
		for step := 0; step < 500; step++ {
			if rng.Intn(3) == 0 {
				_ = st.Select(rng.Intn(n+4) - 2)
			} else {
				st.Tick()
			}
			require.GreaterOrEqual(t, st.Index(), 0)
			require.Less(t, st.Index(), n)
		}
	}
}

func TestRotatorTicksWrap(t *testing.T) {
	h := newHarness(t, 3)
	require.Equal(t, 0, h.r.Index())
	require.Equal(t, 1, h.tick(t))
	require.Equal(t, 2, h.tick(t))
	require.Equal(t, 0, h.tick(t))
	require.Equal(t, 0, h.r.Index())
}

func TestRotatorSelectResetsIntervalAndNextTickWraps(t *testing.T) {
	h := newHarness(t, 3)

	require.NoError(t, h.r.Select(2))
	require.Equal(t, 2, h.r.Index())
	require.Equal(t, 1, h.ticker.Resets())
	h.drain()

	require.Equal(t, 0, h.tick(t))
}

func TestRotatorSelectIsVisibleToFollowingTick(t *testing.T) {
	h := newHarness(t, 4)
	require.NoError(t, h.r.Select(1))
	h.drain()
	require.Equal(t, 2, h.tick(t))
}

func TestRotatorRejectsOutOfRangeSelect(t *testing.T) {
	h := newHarness(t, 3)
	require.ErrorIs(t, h.r.Select(5), ErrIndexOutOfRange)
	require.Equal(t, 0, h.r.Index())
	require.Equal(t, 0, h.ticker.Resets())
}

func TestRotatorCloseStopsTickerAndFreezesIndex(t *testing.T) {
	h := newHarness(t, 3)
	h.tick(t)

	h.r.Close()
	h.r.Close()

	require.True(t, h.ticker.Stopped())
	require.True(t, h.r.Closed())
	require.ErrorIs(t, h.r.Select(0), ErrClosed)
	require.Equal(t, 1, h.r.Index())
}

func TestRotatorNoMutationAfterTeardown(t *testing.T) {
	r, err := New(3, 2*time.Millisecond)
	require.NoError(t, err)

	advanced := make(chan struct{}, 1)
	r.Subscribe(func(int) {
		select {
		case advanced <- struct{}{}:
		default:
		}
	})
	select {
	case <-advanced:
	case <-time.After(2 * time.Second):
		t.Fatal("real ticker never fired")
	}

	r.Close()
	frozen := r.Index()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, frozen, r.Index())
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(0, time.Second)
	require.ErrorIs(t, err, ErrEmpty)

	_, err = New(3, 0)
	require.Error(t, err)
}

func TestSubscribeCancel(t *testing.T) {
	h := newHarness(t, 2)
	calls := make(chan int, 4)
	cancel := h.r.Subscribe(func(i int) { calls <- i })
	h.tick(t)
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not called")
	}

	cancel()
	h.tick(t)
	require.Empty(t, calls)
}
