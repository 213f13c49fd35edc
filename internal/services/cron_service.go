package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Reconciler is the job the cron service schedules
type Reconciler interface {
	Run(ctx context.Context) (*ReconcileReport, error)
}

// CronService manages scheduled background jobs
type CronService struct {
	cron       *cron.Cron
	reconciler Reconciler
	schedule   string
	jobTimeout time.Duration
	logger     *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(reconciler Reconciler, schedule string, logger *logrus.Logger) *CronService {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:       c,
		reconciler: reconciler,
		schedule:   schedule,
		jobTimeout: 2 * time.Minute,
		logger:     logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Cron format: second minute hour day month weekday
	// "0 */5 * * * *" = every five minutes
	_, err := s.cron.AddFunc(s.schedule, s.reconcileJob)
	if err != nil {
		return fmt.Errorf("failed to schedule reconciliation job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled: reconcile offline bookings")

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops all cron jobs and waits for a running job to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// reconcileJob pushes offline records to the remote service
func (s *CronService) reconcileJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	startTime := time.Now()
	report, err := s.reconciler.Run(ctx)
	if errors.Is(err, ErrReconcileRunning) {
		s.logger.Debug("[CRON] Reconciliation skipped, previous pass still running")
		return
	}
	if err != nil {
		s.logger.WithField("error", err.Error()).Error("[CRON] Reconciliation failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"pushed":   report.Pushed(),
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Reconciliation completed")
}

// RunReconcileNow runs the reconciliation job immediately
func (s *CronService) RunReconcileNow(ctx context.Context) (*ReconcileReport, error) {
	s.logger.Info("[MANUAL] Running reconciliation now...")
	return s.reconciler.Run(ctx)
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"schedule":  s.schedule,
		"jobs":      jobs,
	}
}
