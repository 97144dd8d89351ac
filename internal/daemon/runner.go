package daemon

import (
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/clawops/clawctl/internal/log"
)

// pollInterval bounds how long a requested stop can lag: the loop
// checks the cancellation flag once per interval, never mid-task.
const pollInterval = time.Second

// Runner executes a task immediately and then on a schedule, stopping
// cooperatively on SIGTERM/SIGINT or an explicit Stop. The signal
// handler only flips a flag; shutdown happens between sleep ticks.
type Runner struct {
	name    string
	task    func()
	next    func(time.Time) time.Time
	poll    time.Duration
	stopped atomic.Bool
}

// NewRunner creates a runner. next maps the current time to the next
// run time.
func NewRunner(name string, next func(time.Time) time.Time, task func()) *Runner {
	return &Runner{name: name, task: task, next: next, poll: pollInterval}
}

// Stop requests a cooperative shutdown. The runner exits within one
// poll interval, after any in-flight task completes.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

// Run blocks until a shutdown is requested. The first pass runs
// immediately.
func (r *Runner) Run() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if ok {
			log.Info("shutdown requested", "daemon", r.name, "signal", sig.String())
			r.stopped.Store(true)
		}
	}()

	log.Info("daemon started", "daemon", r.name, "pid", os.Getpid())
	r.task()

	for !r.stopped.Load() {
		next := r.next(time.Now())
		log.Debug("sleeping until next run", "daemon", r.name, "next", next)

		for time.Now().Before(next) {
			if r.stopped.Load() {
				return
			}
			time.Sleep(r.poll)
		}
		if r.stopped.Load() {
			return
		}
		r.task()
	}
}

// IntervalNext schedules runs every d.
func IntervalNext(d time.Duration) func(time.Time) time.Time {
	return func(now time.Time) time.Time { return now.Add(d) }
}

var hhmmPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ScheduleNext parses a schedule string into a next-run function.
// Supported forms: "daily" (02:00), "hourly" (on the hour), and a
// fixed "HH:MM". Anything else falls back to daily at 02:00 with a
// logged warning.
func ScheduleNext(spec string) func(time.Time) time.Time {
	const dailyExpr = "0 2 * * *"

	expr := ""
	switch {
	case spec == "daily":
		expr = dailyExpr
	case spec == "hourly":
		expr = "0 * * * *"
	default:
		if m := hhmmPattern.FindStringSubmatch(spec); m != nil {
			hour, _ := strconv.Atoi(m[1])
			minute, _ := strconv.Atoi(m[2])
			if hour < 24 && minute < 60 {
				expr = strconv.Itoa(minute) + " " + strconv.Itoa(hour) + " * * *"
			}
		}
	}
	if expr == "" {
		log.Warn("unrecognized schedule, falling back to daily at 02:00", "schedule", spec)
		expr = dailyExpr
	}

	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		// The expressions above are fixed; this only guards future edits.
		log.Error("schedule parse failed, falling back to daily", "expr", expr, "error", err)
		schedule, _ = cron.ParseStandard(dailyExpr)
	}
	return schedule.Next
}
