package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/obsidianstack/amplifi-exporter/internal/amplifi"
)

// baseTime is a fixed reference point so all test timings are deterministic.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// step is one scripted Fetch outcome: how long it takes and what it returns.
type step struct {
	took time.Duration
	err  error
}

type fakeSource struct {
	clock      *fakeClock
	steps      []step
	fetches    int
	connects   int
	connectErr error
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Connect(context.Context) error {
	s.connects++
	return s.connectErr
}

func (s *fakeSource) Fetch(context.Context) (*amplifi.Snapshot, error) {
	st := step{took: time.Second}
	if s.fetches < len(s.steps) {
		st = s.steps[s.fetches]
	}
	s.fetches++
	s.clock.advance(st.took)
	if st.err != nil {
		return nil, st.err
	}
	return &amplifi.Snapshot{}, nil
}

type fakeProjector struct {
	calls int
	err   error
}

func (p *fakeProjector) Project(*amplifi.Snapshot) error {
	p.calls++
	return p.err
}

// harness wires a Scheduler to a fake clock and a sleeper that records
// every wait and cancels the run after maxSleeps of them.
type harness struct {
	sched  *Scheduler
	src    *fakeSource
	proj   *fakeProjector
	clock  *fakeClock
	sleeps []time.Duration
}

func newHarness(t *testing.T, interval time.Duration, maxSleeps int, steps ...step) (*harness, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clock := &fakeClock{t: baseTime}
	h := &harness{
		src:   &fakeSource{clock: clock, steps: steps},
		proj:  &fakeProjector{},
		clock: clock,
	}
	h.sched = New(h.src, h.proj, interval, DefaultCooldown)
	h.sched.now = clock.now
	h.sched.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		clock.advance(d)
		if len(h.sleeps) >= maxSleeps {
			cancel()
			return ctx.Err()
		}
		return nil
	}
	return h, ctx
}

func TestNextDelay(t *testing.T) {
	tests := []struct {
		interval, elapsed, want time.Duration
	}{
		{15 * time.Second, 0, 15 * time.Second},
		{15 * time.Second, 4 * time.Second, 11 * time.Second},
		{15 * time.Second, 15 * time.Second, 0},
		{15 * time.Second, 40 * time.Second, 0},
		{5 * time.Second, 4999 * time.Millisecond, time.Millisecond},
	}
	for _, tc := range tests {
		if got := NextDelay(tc.interval, tc.elapsed); got != tc.want {
			t.Errorf("NextDelay(%v, %v) = %v, want %v", tc.interval, tc.elapsed, got, tc.want)
		}
	}
}

func TestScheduler_DriftCorrectedSleep(t *testing.T) {
	h, ctx := newHarness(t, 15*time.Second, 3,
		step{took: 4 * time.Second},
		step{took: 20 * time.Second},
		step{took: 0},
	)

	if err := h.sched.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil after cancel", err)
	}

	want := []time.Duration{11 * time.Second, 0, 15 * time.Second}
	if len(h.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", h.sleeps, want)
	}
	for i := range want {
		if h.sleeps[i] != want[i] {
			t.Errorf("sleeps[%d] = %v, want %v", i, h.sleeps[i], want[i])
		}
	}
	if h.proj.calls != 3 {
		t.Errorf("Project calls = %d, want 3 (no tick skipped)", h.proj.calls)
	}
	if h.src.connects != 1 {
		t.Errorf("connects = %d, want 1", h.src.connects)
	}

	st := h.sched.Status()
	if st.Polls != 3 || st.LastDuration != 0 || st.State != StatePolling {
		t.Errorf("Status() = %+v", st)
	}
}

func TestScheduler_DecodeErrorBacksOffAndReconnects(t *testing.T) {
	h, ctx := newHarness(t, 15*time.Second, 3,
		step{took: time.Second},
		step{took: time.Second, err: &amplifi.DecodeError{Err: errors.New("invalid character '<'")}},
		step{took: 2 * time.Second},
	)

	if err := h.sched.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}

	want := []time.Duration{14 * time.Second, DefaultCooldown, 13 * time.Second}
	for i := range want {
		if i >= len(h.sleeps) || h.sleeps[i] != want[i] {
			t.Fatalf("sleeps = %v, want %v", h.sleeps, want)
		}
	}
	if h.src.connects != 2 {
		t.Errorf("connects = %d, want 2 (re-authenticate after cooldown)", h.src.connects)
	}
	st := h.sched.Status()
	if st.DecodeFailures != 1 || st.Connects != 2 || st.Polls != 2 {
		t.Errorf("Status() = %+v", st)
	}
	if st.LastError != "" {
		t.Errorf("LastError = %q, want cleared by later successful poll", st.LastError)
	}
}

func TestScheduler_SetCooldownAppliesNextBackoff(t *testing.T) {
	h, ctx := newHarness(t, 15*time.Second, 1,
		step{err: &amplifi.DecodeError{Err: errors.New("bad")}},
	)
	h.sched.SetCooldown(90 * time.Second)

	if err := h.sched.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if len(h.sleeps) != 1 || h.sleeps[0] != 90*time.Second {
		t.Errorf("sleeps = %v, want [1m30s]", h.sleeps)
	}

	h.sched.SetCooldown(0)
	if got := h.sched.Cooldown(); got != DefaultCooldown {
		t.Errorf("Cooldown() after SetCooldown(0) = %v, want %v", got, DefaultCooldown)
	}
}

func TestScheduler_StateDuringBackoff(t *testing.T) {
	h, ctx := newHarness(t, 15*time.Second, 1,
		step{err: &amplifi.DecodeError{Err: errors.New("bad")}},
	)
	var seen State
	h.sched.sleep = func(ctx context.Context, d time.Duration) error {
		seen = h.sched.Status().State
		return context.Canceled
	}
	if err := h.sched.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if seen != StateBackoff {
		t.Errorf("state during cooldown = %q, want %q", seen, StateBackoff)
	}
}

func TestScheduler_FatalErrorsPropagate(t *testing.T) {
	transport := &amplifi.TransportError{Op: "POST", URL: "http://router/info-async.php", Err: errors.New("connection reset")}
	missing := &amplifi.RequiredFieldMissing{Record: "wireless station", Path: []string{"ap"}, Field: "RxMcs"}
	auth := &amplifi.AuthError{URL: "http://router/info.php", Err: amplifi.ErrTokenNotFound}
	_, schema := amplifi.DecodeSnapshot([]byte(`[{}, {}, {"m": {"connection": "wifi", "ip": "10.0.0.2", "lease_validity": "3600"}}, {}, {}, {}]`))

	tests := []struct {
		name       string
		fetchErr   error
		projectErr error
		connectErr error
		want       error
	}{
		{name: "transport error on fetch", fetchErr: transport, want: transport},
		{name: "required field missing", projectErr: missing, want: missing},
		{name: "auth error on connect", connectErr: auth, want: auth},
		{name: "schema change on fetch", fetchErr: schema, want: schema},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, ctx := newHarness(t, 15*time.Second, 10, step{err: tc.fetchErr})
			h.proj.err = tc.projectErr
			h.src.connectErr = tc.connectErr

			err := h.sched.Run(ctx)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Run() = %v, want %v", err, tc.want)
			}
			if len(h.sleeps) != 0 {
				t.Errorf("sleeps = %v, want none before a fatal error", h.sleeps)
			}
			if h.src.connects != 1 {
				t.Errorf("connects = %d, want 1", h.src.connects)
			}
			if h.sched.Status().LastError != tc.want.Error() {
				t.Errorf("LastError = %q", h.sched.Status().LastError)
			}
		})
	}
}

func TestScheduler_SetIntervalAppliesNextTick(t *testing.T) {
	h, ctx := newHarness(t, 15*time.Second, 2, step{took: time.Second}, step{took: time.Second})
	h.sched.proj = projectFunc(func() error {
		h.sched.SetInterval(30 * time.Second)
		return nil
	})

	if err := h.sched.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if h.sleeps[0] != 29*time.Second {
		t.Errorf("sleep after interval change = %v, want 29s", h.sleeps[0])
	}
	if h.sched.Status().Interval != 30*time.Second {
		t.Errorf("Status().Interval = %v, want 30s", h.sched.Status().Interval)
	}
}

func TestScheduler_SetIntervalClampsToMinimum(t *testing.T) {
	s := New(&fakeSource{}, &fakeProjector{}, time.Second, DefaultCooldown)
	if got := s.Interval(); got != MinInterval {
		t.Errorf("Interval() after New = %v, want %v", got, MinInterval)
	}
	s.SetInterval(20 * time.Second)
	s.SetInterval(0)
	if got := s.Interval(); got != MinInterval {
		t.Errorf("Interval() after SetInterval(0) = %v, want %v", got, MinInterval)
	}
}

type projectFunc func() error

func (f projectFunc) Project(*amplifi.Snapshot) error { return f() }

func TestScheduler_CancelInterruptsRealSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{clock: &fakeClock{t: baseTime}}
	sched := New(src, projectFunc(func() error {
		cancel()
		return nil
	}), time.Hour, DefaultCooldown)

	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Errorf("sleepContext(0) = %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext(1ms) = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext(cancelled) = %v, want context.Canceled", err)
	}
}
