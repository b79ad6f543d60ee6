package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type jobFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (j *jobFunc) Name() string                  { return j.name }
func (j *jobFunc) Run(ctx context.Context) error { return j.fn(ctx) }

// JobFunc adapts a plain function into a Job.
func JobFunc(name string, fn func(ctx context.Context) error) Job {
	return &jobFunc{name: name, fn: fn}
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler runs jobs on five field cron specs or descriptors such as
// "@every 10m". A run that is still going when its next tick fires makes
// that tick a no-op.
type CronScheduler struct {
	cron *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec parses spec without scheduling anything.
func ValidateSpec(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

func NewCronScheduler() *CronScheduler {
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	entryID, err := c.cron.AddFunc(spec, c.wrap(job, spec))
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c.entries[name] = entryID
	logger.Info("job scheduled")
	return nil
}

// Next returns the next activation of a scheduled job. It is zero before
// Start.
func (c *CronScheduler) Next(name string) (time.Time, bool) {
	c.mu.Lock()
	id, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return c.cron.Entry(id).Next, true
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cron.Start()
}

// Stop stops scheduling and waits for running jobs to return.
func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CronScheduler) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		ctx := c.runContext()
		logger := logutil.GetLogger(ctx).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		)
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped: still running")
			return
		}
		defer running.Store(false)
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}
