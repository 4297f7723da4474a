// Package schedule runs the check-in once per day at a configured wall-clock
// time. The loop is single-threaded: it blocks on the check-in call, then
// re-arms for the next future occurrence. There is no makeup for fires missed
// while the process was down.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/logging"
	"github.com/zxzvsdcj/ideal-forum-auto-signin/pkg/signin"
)

// CheckinFunc is the workflow entry point the loop fires. It must be
// synchronous; the loop does nothing else while it runs.
type CheckinFunc func(ctx context.Context) (*signin.AttemptResult, error)

// defaultPollInterval is the idle sleep between arm checks.
const defaultPollInterval = 30 * time.Second

// State is a snapshot of the loop's progress for front ends.
type State struct {
	LastRun  time.Time
	NextFire time.Time
}

// Loop fires checkin daily at the configured time.
type Loop struct {
	sched   cron.Schedule
	checkin CheckinFunc
	log     *logging.Logger

	poll time.Duration
	now  func() time.Time

	mu    sync.Mutex
	state State
}

// NewLoop builds a loop for a daily fire at hour:minute (24-hour clock).
func NewLoop(hour, minute int, checkin CheckinFunc, log *logging.Logger) (*Loop, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule time %02d:%02d: %w", hour, minute, err)
	}

	return &Loop{
		sched:   sched,
		checkin: checkin,
		log:     log,
		poll:    defaultPollInterval,
		now:     time.Now,
	}, nil
}

// NextFire returns the next occurrence of the scheduled time strictly after
// now: today if the time-of-day has not passed yet, otherwise tomorrow.
func (l *Loop) NextFire(now time.Time) time.Time {
	return l.sched.Next(now)
}

// State returns the current schedule snapshot.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Run arms the loop and blocks until ctx is cancelled. Check-ins run
// synchronously; whatever their result, the loop re-arms for the next day.
func (l *Loop) Run(ctx context.Context) {
	next := l.NextFire(l.now())
	l.setState(State{NextFire: next})
	l.log.Infof("scheduler armed, next check-in at %s", next.Format("2006-01-02 15:04:05"))

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Infof("scheduler stopping")
			return
		case <-ticker.C:
			now := l.now()
			if now.Before(next) {
				continue
			}

			l.log.Infof("scheduled check-in firing")
			l.fire(ctx)

			next = l.NextFire(l.now())
			l.setState(State{LastRun: now, NextFire: next})
			l.log.Infof("scheduler re-armed, next check-in at %s", next.Format("2006-01-02 15:04:05"))
		}
	}
}

// fire runs one scheduled check-in. A failed day never terminates the loop;
// even an environment failure only costs that day's fire.
func (l *Loop) fire(ctx context.Context) {
	result, err := l.checkin(ctx)
	switch {
	case err != nil:
		l.log.Errorf("scheduled check-in aborted: %v", err)
	case result.Succeeded():
		l.log.Successf("scheduled check-in done: %s", result)
	default:
		l.log.Errorf("scheduled check-in failed: %s", result)
	}
}
