// CLAUDE:SUMMARY Cron-driven retention: named eviction/monitor jobs over the artifact store, start/stop/run-now.
// Package retention enforces the artifact retention policy: age- and
// count-based eviction plus a monitoring pass that warns on size/count
// ceilings without taking action.
//
// Eviction races benignly with concurrent saves: a file created after the
// listing snapshot is simply excluded from that pass. Correctness is
// guaranteed eventually across repeated passes, not within a single one.
package retention

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hazyhaar/snapkeep/store"
)

// ArtifactStore is the slice of store.Manager the retention layer consumes.
type ArtifactStore interface {
	List() ([]*store.Artifact, error)
	Delete(name string) (bool, error)
	Stats(includeDetails bool) (*store.Stats, error)
}

// Config is the retention policy plus job schedules.
type Config struct {
	// MaxAge evicts artifacts older than this. Default: 24h.
	MaxAge time.Duration

	// MaxFiles is the count-eviction limit and the monitoring count
	// ceiling. Default: 1000.
	MaxFiles int

	// MaxTotalBytes is the monitoring size ceiling. Default: 500 MiB.
	MaxTotalBytes int64

	// Cron schedules per job (5-field or @descriptor syntax).
	CleanupSchedule string // default "@hourly"
	TrimSchedule    string // default "@hourly"
	MonitorSchedule string // default "*/15 * * * *"

	// DisableTrim and DisableMonitor leave the job registered but never
	// armed, matching the per-job enabled flag.
	DisableTrim    bool
	DisableMonitor bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxAge <= 0 {
		c.MaxAge = 24 * time.Hour
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = 1000
	}
	if c.MaxTotalBytes <= 0 {
		c.MaxTotalBytes = 500 << 20
	}
	if c.CleanupSchedule == "" {
		c.CleanupSchedule = "@hourly"
	}
	if c.TrimSchedule == "" {
		c.TrimSchedule = "@hourly"
	}
	if c.MonitorSchedule == "" {
		c.MonitorSchedule = "*/15 * * * *"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result reports one eviction pass.
type Result struct {
	DeletedCount int   `json:"deleted_count"`
	DeletedBytes int64 `json:"deleted_bytes"`
}

// JobStatus is the externally visible state of one job.
type JobStatus struct {
	Running bool `json:"running"`
}

// Status is the scheduler snapshot.
type Status struct {
	IsRunning bool                 `json:"is_running"`
	JobCount  int                  `json:"job_count"`
	Jobs      map[string]JobStatus `json:"jobs"`
}

type job struct {
	name     string
	schedule string
	enabled  bool
	run      func(ctx context.Context)
	running  sync.Mutex // held while the handler executes; TryLock = busy probe
	busy     bool
}

// Scheduler owns the named retention jobs.
type Scheduler struct {
	st     ArtifactStore
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	// OnResult, when set, receives every eviction outcome (scheduled and
	// manual). Used by the service layer to feed the event log.
	OnResult func(jobName string, res Result)

	mu      sync.Mutex
	cron    *cron.Cron
	jobs    []*job
	running bool
}

// New creates a Scheduler over the artifact store. Jobs are registered here;
// Start arms the enabled ones.
func New(st ArtifactStore, cfg Config) *Scheduler {
	cfg.defaults()
	s := &Scheduler{
		st:     st,
		cfg:    cfg,
		logger: cfg.Logger,
		now:    time.Now,
	}
	s.jobs = []*job{
		{name: "cleanup", schedule: cfg.CleanupSchedule, enabled: true, run: s.cleanupJob},
		{name: "trim", schedule: cfg.TrimSchedule, enabled: !cfg.DisableTrim, run: s.trimJob},
		{name: "monitor", schedule: cfg.MonitorSchedule, enabled: !cfg.DisableMonitor, run: s.monitorJob},
	}
	return s
}

// Start arms all enabled jobs. Idempotent: a second start while running is
// a no-op with a warning.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("retention: already running, start ignored")
		return nil
	}

	c := cron.New(cron.WithChain(cron.Recover(cronLogger{s.logger})))
	for _, j := range s.jobs {
		if !j.enabled {
			continue
		}
		j := j
		if _, err := c.AddFunc(j.schedule, func() { s.dispatch(j) }); err != nil {
			return err
		}
	}
	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("retention: scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop disarms all jobs and releases the timers. Idempotent. Blocks until
// in-flight job runs finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	if wasRunning {
		s.logger.Info("retention: scheduler stopped")
	}
}

// Status reports the scheduler and per-job state.
func (s *Scheduler) Status() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &Status{
		IsRunning: s.running,
		JobCount:  len(s.jobs),
		Jobs:      make(map[string]JobStatus, len(s.jobs)),
	}
	for _, j := range s.jobs {
		st.Jobs[j.name] = JobStatus{Running: j.busy}
	}
	return st
}

// RunCleanupNow executes the age-eviction routine used by the scheduled
// cleanup job. maxAge <= 0 falls back to the configured policy, exactly as
// the scheduled run does, so manual and scheduled behaviour never drift.
func (s *Scheduler) RunCleanupNow(ctx context.Context, maxAge time.Duration) Result {
	return s.evictByAge(ctx, maxAge)
}

// dispatch runs a job handler with its running flag set. Overlapping runs
// of the same job are skipped.
func (s *Scheduler) dispatch(j *job) {
	if !j.running.TryLock() {
		s.logger.Warn("retention: job still running, skipping", "job", j.name)
		return
	}
	defer j.running.Unlock()

	s.setBusy(j, true)
	defer s.setBusy(j, false)

	j.run(context.Background())
}

func (s *Scheduler) setBusy(j *job, v bool) {
	s.mu.Lock()
	j.busy = v
	s.mu.Unlock()
}

func (s *Scheduler) cleanupJob(ctx context.Context) {
	res := s.evictByAge(ctx, 0)
	s.logger.Info("retention: cleanup pass",
		"deleted", res.DeletedCount, "bytes", res.DeletedBytes)
}

func (s *Scheduler) trimJob(ctx context.Context) {
	res := s.evictByCount(ctx, 0)
	s.logger.Info("retention: trim pass",
		"deleted", res.DeletedCount, "bytes", res.DeletedBytes)
}

func (s *Scheduler) monitorJob(ctx context.Context) {
	s.Monitor(ctx)
}

func (s *Scheduler) report(jobName string, res Result) {
	if s.OnResult != nil {
		s.OnResult(jobName, res)
	}
}

// cronLogger adapts slog to the cron logger interface used by the Recover
// chain.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, kv ...interface{}) {
	c.l.Info("retention: cron: "+msg, kv...)
}

func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.l.Error("retention: cron: "+msg, append([]interface{}{"error", err}, kv...)...)
}
