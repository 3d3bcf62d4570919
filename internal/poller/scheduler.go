package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/obsidianstack/amplifi-exporter/internal/amplifi"
)

const (
	// MinInterval is the shortest cadence SetInterval accepts; shorter
	// values are raised to it.
	MinInterval = 5 * time.Second

	DefaultCooldown = 60 * time.Second
)

// State is the scheduler's position in its connect/poll cycle.
type State string

const (
	StateDisconnected  State = "disconnected"
	StateAuthenticated State = "authenticated"
	StatePolling       State = "polling"
	StateBackoff       State = "backoff"
)

// Source produces snapshots. Connect is called once per connection cycle,
// Fetch once per tick.
type Source interface {
	Name() string
	Connect(ctx context.Context) error
	Fetch(ctx context.Context) (*amplifi.Snapshot, error)
}

// Projector applies a snapshot to the metric registry.
type Projector interface {
	Project(snap *amplifi.Snapshot) error
}

// Status is a point-in-time view of the scheduler for the health endpoint.
type Status struct {
	Source         string
	State          State
	Interval       time.Duration
	Connects       int
	Polls          int
	DecodeFailures int
	LastPoll       time.Time
	LastDuration   time.Duration
	LastError      string
}

// Scheduler runs the poll loop. Run must be called from one goroutine;
// SetInterval, SetCooldown and Status are safe for concurrent use.
type Scheduler struct {
	src      Source
	proj     Projector
	interval atomic.Int64
	cooldown atomic.Int64

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	status Status
}

// New returns a Scheduler polling src every interval and waiting cooldown
// after a decode failure.
func New(src Source, proj Projector, interval, cooldown time.Duration) *Scheduler {
	s := &Scheduler{
		src:      src,
		proj:     proj,
		now:      time.Now,
		sleep:    sleepContext,
		status:   Status{Source: src.Name(), State: StateDisconnected},
	}
	s.SetInterval(interval)
	s.SetCooldown(cooldown)
	return s
}

// SetInterval changes the poll cadence from the next tick on.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d < MinInterval {
		d = MinInterval
	}
	s.interval.Store(int64(d))
}

// Interval returns the current poll cadence.
func (s *Scheduler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// SetCooldown changes the wait after a decode failure from the next backoff
// on. A non-positive value restores DefaultCooldown.
func (s *Scheduler) SetCooldown(d time.Duration) {
	if d <= 0 {
		d = DefaultCooldown
	}
	s.cooldown.Store(int64(d))
}

// Cooldown returns the current backoff wait.
func (s *Scheduler) Cooldown() time.Duration {
	return time.Duration(s.cooldown.Load())
}

// Status returns a copy of the current status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Interval = s.Interval()
	return st
}

// Run loops until ctx is cancelled (returning nil) or a non-recoverable
// error occurs (returning it).
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.setState(StateDisconnected)
		slog.Info("poller: setting up source", "source", s.src.Name())
		if err := s.src.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.recordError(err)
			return err
		}
		s.update(func(st *Status) {
			st.State = StateAuthenticated
			st.Connects++
		})

		err := s.poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !amplifi.IsDecodeError(err) {
			return err
		}

		s.update(func(st *Status) {
			st.State = StateBackoff
			st.DecodeFailures++
		})
		cooldown := s.Cooldown()
		slog.Warn("poller: decode failure, starting over after cooldown",
			"err", err, "cooldown", cooldown)
		if err := s.sleep(ctx, cooldown); err != nil {
			return nil
		}
	}
}

// poll runs fetch -> project -> sleep until an error or cancellation.
func (s *Scheduler) poll(ctx context.Context) error {
	s.setState(StatePolling)
	for {
		start := s.now()

		snap, err := s.src.Fetch(ctx)
		if err == nil {
			err = s.proj.Project(snap)
		}
		elapsed := s.now().Sub(start)
		if err != nil {
			s.recordError(err)
			return err
		}

		s.update(func(st *Status) {
			st.Polls++
			st.LastPoll = start
			st.LastDuration = elapsed
			st.LastError = ""
		})
		slog.Debug("poller: snapshot applied", "elapsed", elapsed)

		if err := s.sleep(ctx, NextDelay(s.Interval(), elapsed)); err != nil {
			return err
		}
	}
}

// NextDelay is the drift-corrected wait before the next tick. It is zero
// when the work already took the whole interval.
func NextDelay(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

func (s *Scheduler) setState(state State) {
	s.update(func(st *Status) { st.State = state })
}

func (s *Scheduler) recordError(err error) {
	s.update(func(st *Status) { st.LastError = err.Error() })
}

func (s *Scheduler) update(fn func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
