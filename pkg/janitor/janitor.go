// Package janitor periodically removes expired window state.
//
// Local caches and coordinator stores keep entries until their window resets.
// A Janitor runs Sweep on each registered target on a cron schedule so that
// memory and disk use follow the live windows rather than every window ever
// seen.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule sweeps twice a minute.
const DefaultSchedule = "@every 30s"

// Sweeper removes entries that expired at or before now and reports how
// many it removed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func(now time.Time) int

// Sweep implements Sweeper.
func (f SweeperFunc) Sweep(now time.Time) int { return f(now) }

// Config configures a Janitor.
type Config struct {
	// Schedule is a cron expression or descriptor.
	// Default: "@every 30s"
	Schedule string

	// Logger. Default: slog.Default().
	Logger *slog.Logger

	// Now is the clock passed to sweepers. Default: time.Now.
	Now func() time.Time

	// OnSweep is called after each target is swept. Optional.
	OnSweep func(target string, removed int)
}

// Janitor sweeps registered targets on a schedule.
type Janitor struct {
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time
	onSweep  func(string, int)

	mu      sync.Mutex
	targets map[string]Sweeper
	running bool
}

// New validates the schedule and returns a stopped Janitor.
func New(cfg Config) (*Janitor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if err := ValidateSchedule(cfg.Schedule); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Janitor{
		schedule: cfg.Schedule,
		cron:     cron.New(),
		logger:   cfg.Logger.With("component", "janitor"),
		now:      cfg.Now,
		onSweep:  cfg.OnSweep,
		targets:  make(map[string]Sweeper),
	}, nil
}

// ValidateSchedule reports whether schedule is a standard cron spec or a
// descriptor such as "@every 30s".
func ValidateSchedule(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return nil
}

// Register adds a named target. Registering a name again replaces it.
func (j *Janitor) Register(name string, s Sweeper) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.targets[name] = s
}

// Start schedules sweeping. The Janitor stops when ctx is done.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return nil
	}

	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	j.cron.Start()
	j.running = true

	j.logger.Info("janitor started",
		"schedule", j.schedule,
		"targets", len(j.targets),
	)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()
	return nil
}

// RunOnce sweeps every target now and returns the total removed.
func (j *Janitor) RunOnce() int {
	j.mu.Lock()
	names := make([]string, 0, len(j.targets))
	for name := range j.targets {
		names = append(names, name)
	}
	targets := make(map[string]Sweeper, len(j.targets))
	for name, s := range j.targets {
		targets[name] = s
	}
	j.mu.Unlock()

	sort.Strings(names)
	now := j.now()
	total := 0
	for _, name := range names {
		removed := targets[name].Sweep(now)
		total += removed
		if j.onSweep != nil {
			j.onSweep(name, removed)
		}
		if removed > 0 {
			j.logger.Debug("swept expired entries", "target", name, "removed", removed)
		}
	}
	return total
}

// Stop stops the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	<-j.cron.Stop().Done()
	j.running = false
	j.logger.Info("janitor stopped")
}

// IsRunning reports whether the schedule is active.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// NextRun returns the next scheduled sweep, or nil when stopped.
func (j *Janitor) NextRun() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return nil
	}
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
