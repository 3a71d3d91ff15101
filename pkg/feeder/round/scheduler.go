package round

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/StrathCole/oracle-push/pkg/logging"
)

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// Scheduler triggers rounds on a cron schedule. A tick that fires while the
// previous round is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	logger *logging.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewScheduler creates a scheduler for spec, which accepts standard five
// field cron expressions and descriptors such as "@every 30s".
func NewScheduler(runner *Runner, spec string, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	// Errors are logged by the runner.
	_, _ = s.runner.Run(ctx)
}

// Start begins scheduling. Rounds receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.logger.Info("Round scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop stops scheduling and waits for a running round to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Round scheduler stopped")
}
