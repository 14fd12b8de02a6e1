package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"carboncheck/backend/services/carbon-service/internal/metrics"
	"carboncheck/backend/services/carbon-service/internal/service"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec parses a six-field (seconds first) cron expression or a descriptor such as @hourly.
func ParseSpec(spec string) (cron.Schedule, error) {
	return parser.Parse(spec)
}

// Runner runs one ingestion cycle.
type Runner interface {
	Trigger(ctx context.Context) (service.Result, error)
}

// Scheduler is the timer trigger for ingestion cycles.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *zap.Logger
	spec   string

	mu  sync.Mutex
	ctx context.Context
}

// New returns a scheduler firing runner on spec.
func New(spec string, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		runner: runner,
		logger: logger,
		spec:   spec,
		ctx:    context.Background(),
	}

	cronLogger := zapCronLogger{logger: logger.Sugar()}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.runScheduled); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the timer and blocks until ctx is cancelled and running jobs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("starting check scheduler", zap.String("schedule", s.spec))
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("stopping check scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// Next returns the next activation time, zero before Run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.RunOnce(ctx)
}

// RunOnce runs a single timer triggered cycle and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	metrics.SchedulerRuns.Inc()
	started := time.Now().UTC()
	s.logger.Info("carbon check timer fired", zap.Time("started_at", started))

	res, err := s.runner.Trigger(ctx)
	if err != nil {
		s.logger.Error("scheduled carbon check failed", zap.Error(err))
		return
	}

	s.logger.Info("scheduled carbon check completed",
		zap.String("status", string(res.Status)),
		zap.Int("intensity", res.Intensity),
		zap.String("message", res.Message),
		zap.Duration("took", time.Since(started)),
	)
}

type zapCronLogger struct {
	logger *zap.SugaredLogger
}

// Info is demoted to debug: cron reports every wake and job start at this level.
func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
