package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"openpay/internal/platform/querier"
)

const JobPayStubRetention = "paystub_retention"

const defaultQueueSize = 128

type RunFunc = func(context.Context) (any, error)

// Service runs jobs one at a time on a background worker. When DB is set,
// every run is recorded in job_runs.
type Service struct {
	DB    querier.Querier
	Log   *logrus.Logger
	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	Type string
	Run  RunFunc
}

func New(db querier.Querier, log *logrus.Logger) *Service {
	return &Service{
		DB:    db,
		Log:   log,
		queue: make(chan job, defaultQueueSize),
	}
}

// Start launches the worker. It stops when ctx is cancelled; queued jobs that
// have not started are dropped.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Wait blocks until the worker has stopped.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run RunFunc) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		s.Log.WithField("jobType", jobType).Warn("job queue full")
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// Every enqueues run each interval until ctx is cancelled.
func (s *Service) Every(ctx context.Context, interval time.Duration, jobType string, run RunFunc) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Enqueue(jobType, run)
			}
		}
	}()
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.Log.WithError(err).WithField("jobType", j.Type).Warn("job run failed")
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, j.Type, "running").Scan(&runID); err != nil {
			s.Log.WithError(err).Warn("job run insert failed")
		}
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		s.Log.WithError(marshalErr).Warn("job details marshal failed")
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			s.Log.WithError(updErr).Warn("job run update failed")
		}
	}
	s.Log.WithFields(logrus.Fields{"jobType": j.Type, "status": status}).Debug("job finished")
	return details, err
}
