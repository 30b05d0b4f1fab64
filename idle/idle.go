// Package idle measures how long the user's input devices have been idle and
// signals when a configured threshold is crossed.
package idle

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/logtime/logtime/internal/logging"
)

// DefaultPollInterval is the fixed time between two idle queries.
const DefaultPollInterval = time.Second

// ErrPlatformUnavailable is returned when no idle-time source can be
// acquired: no display session, missing X extension or D-Bus service.
var ErrPlatformUnavailable = errors.New("platform idle-time source unavailable")

// Source reports the time since the last user input event of the current
// display session.
type Source interface {
	IdleMilliseconds() (uint64, error)
	Name() string
	Close() error
}

// Sample is a single idle measurement.
type Sample struct {
	IdleMilliseconds uint64
	SampledAt        time.Time
}

// Seconds returns the idle time in whole seconds, rounded down.
func (s Sample) Seconds() int64 {
	return int64(s.IdleMilliseconds / 1000)
}

// ExceededFunc is invoked on every tick where the idle time is above the
// threshold. A returned error stops the monitor.
type ExceededFunc func(ctx context.Context, idleSeconds int64) error

// Monitor polls a Source and calls onExceeded while the user is idle for
// longer than the threshold.
type Monitor struct {
	source     Source
	threshold  int64
	interval   time.Duration
	onExceeded ExceededFunc
	log        *logging.Logger
	now        func() time.Time
}

// NewMonitor creates a monitor. thresholdSeconds must be positive.
func NewMonitor(source Source, thresholdSeconds int, onExceeded ExceededFunc, log *logging.Logger) (*Monitor, error) {
	if source == nil {
		return nil, errors.Wrap(ErrPlatformUnavailable, "no idle source")
	}
	if thresholdSeconds <= 0 {
		return nil, errors.Errorf("idle threshold must be positive, got %d", thresholdSeconds)
	}
	if onExceeded == nil {
		return nil, errors.New("idle callback is nil")
	}

	return &Monitor{
		source:     source,
		threshold:  int64(thresholdSeconds),
		interval:   DefaultPollInterval,
		onExceeded: onExceeded,
		log:        log,
		now:        time.Now,
	}, nil
}

// Threshold returns the configured threshold in seconds.
func (m *Monitor) Threshold() int64 {
	return m.threshold
}

// Poll performs one tick: it samples the source and fires the callback when
// the idle seconds are strictly greater than the threshold.
func (m *Monitor) Poll(ctx context.Context) (Sample, bool, error) {
	ms, err := m.source.IdleMilliseconds()
	if err != nil {
		return Sample{}, false, errors.Wrapf(err, "query %s idle time", m.source.Name())
	}

	sample := Sample{IdleMilliseconds: ms, SampledAt: m.now()}
	idleSeconds := sample.Seconds()

	if idleSeconds <= m.threshold {
		return sample, false, nil
	}

	m.log.Debugf("idle for %ds (threshold %ds)", idleSeconds, m.threshold)
	if err := m.onExceeded(ctx, idleSeconds); err != nil {
		return sample, true, err
	}
	return sample, true, nil
}

// Run waits one interval, polls, and repeats until ctx is done or a tick
// fails. The callback fires on every qualifying tick, not only when the user
// first goes idle.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Output("monitorInactivity", "Monitoring user inactivity via %s (threshold %ds)", m.source.Name(), m.threshold)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debugf("idle monitor stopped: %v", ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}

		if _, _, err := m.Poll(ctx); err != nil {
			return err
		}
		timer.Reset(m.interval)
	}
}
