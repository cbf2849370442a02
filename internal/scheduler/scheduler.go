// Package scheduler provides interval-based job execution for event polling.
// Schedules are given either as Go durations ("10s", "1m30s") or as six-field
// cron step expressions of the form "*/N * * * * *", which the service
// interprets as an every-N-seconds interval.
package scheduler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Job is a handle to a scheduled callback. The zero value is not usable;
// jobs are created through Scheduler.Start.
type Job struct {
	id       string
	interval time.Duration

	mu     sync.Mutex
	paused bool
	done   chan struct{}
	once   sync.Once
}

// ID returns the schedule expression the job was started with.
func (j *Job) ID() string { return j.id }

// Interval returns the parsed tick interval.
func (j *Job) Interval() time.Duration { return j.interval }

// IsPaused reports whether the job is currently paused.
func (j *Job) IsPaused() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.paused
}

func (j *Job) setPaused(paused bool) {
	j.mu.Lock()
	j.paused = paused
	j.mu.Unlock()
}

func (j *Job) stop() {
	j.once.Do(func() { close(j.done) })
}

// Scheduler runs callbacks on fixed intervals and tracks the jobs it owns.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[*Job]struct{}
}

func New() *Scheduler {
	return &Scheduler{
		jobs: make(map[*Job]struct{}),
	}
}

// Start schedules fn on the interval described by spec and returns the job
// handle. The callback runs on its own goroutine; a panic inside fn is
// recovered and logged so one bad tick cannot kill the schedule.
func (s *Scheduler) Start(spec string, fn func()) (*Job, error) {
	interval, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}

	job := &Job{
		id:       spec,
		interval: interval,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[job] = struct{}{}
	s.mu.Unlock()

	go s.run(job, fn)
	return job, nil
}

func (s *Scheduler) run(job *Job, fn func()) {
	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	for {
		select {
		case <-job.done:
			return
		case <-ticker.C:
			if job.IsPaused() {
				continue
			}
			s.invoke(job, fn)
		}
	}
}

func (s *Scheduler) invoke(job *Job, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Scheduled job panicked",
				"schedule", job.id,
				"panic", r)
		}
	}()
	fn()
}

// Pause suspends ticks for the job. The schedule keeps running; paused ticks
// are dropped, not queued.
func (s *Scheduler) Pause(job *Job) {
	if job == nil {
		return
	}
	job.setPaused(true)
}

// Resume re-enables ticks for a paused job.
func (s *Scheduler) Resume(job *Job) {
	if job == nil {
		return
	}
	job.setPaused(false)
}

// Stop terminates the job and releases it. Stopping an already-stopped job
// is a no-op.
func (s *Scheduler) Stop(job *Job) {
	if job == nil {
		return
	}
	job.stop()

	s.mu.Lock()
	delete(s.jobs, job)
	s.mu.Unlock()
}

// StopAll terminates every job the scheduler owns.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.jobs = make(map[*Job]struct{})
	s.mu.Unlock()

	for _, job := range jobs {
		job.stop()
	}
}

// ActiveJobs returns the number of jobs currently owned by the scheduler.
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// ParseSchedule converts a schedule expression into a tick interval. It
// accepts Go duration strings and six-field cron step expressions where the
// seconds field is "*/N" and the remaining fields are wildcards.
func ParseSchedule(spec string) (time.Duration, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty schedule expression")
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("schedule interval must be positive, got %s", spec)
		}
		return d, nil
	}

	fields := strings.Fields(spec)
	if len(fields) != 6 {
		return 0, fmt.Errorf("unsupported schedule expression %q", spec)
	}
	for _, field := range fields[1:] {
		if field != "*" {
			return 0, fmt.Errorf("unsupported schedule expression %q: only second-level step schedules are supported", spec)
		}
	}

	seconds := fields[0]
	if !strings.HasPrefix(seconds, "*/") {
		return 0, fmt.Errorf("unsupported schedule expression %q: seconds field must be a step value", spec)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(seconds, "*/"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid step value in schedule %q", spec)
	}
	return time.Duration(n) * time.Second, nil
}
