package service

import (
	"context"
	"sync"
	"time"

	"agrotrace/internal/ledger"
	"agrotrace/internal/logger"
	"agrotrace/internal/metrics"
	"agrotrace/internal/models"
	"agrotrace/internal/repository"
)

// SyncConfig tunes the ledger sync queue.
type SyncConfig struct {
	Workers         int
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	PollInterval    time.Duration
	ConfirmInterval time.Duration
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 30 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.ConfirmInterval <= 0 {
		c.ConfirmInterval = 30 * time.Second
	}
	return c
}

const dispatchBatchSize = 64

// LedgerSyncService drains the sync job queue: a dispatcher polls for due
// jobs and hands them to a fixed worker pool. Backoff is computed eligibility
// rather than a sleeping worker, so any number of jobs can sit in backoff
// without holding a goroutine each.
type LedgerSyncService struct {
	jobs   repository.SyncRepo
	client ledger.Client
	cfg    SyncConfig
	log    *logger.Logger
}

func NewLedgerSyncService(jobs repository.SyncRepo, client ledger.Client, cfg SyncConfig, log *logger.Logger) *LedgerSyncService {
	return &LedgerSyncService{
		jobs:   jobs,
		client: client,
		cfg:    cfg.withDefaults(),
		log:    log,
	}
}

// Run starts the dispatcher, the confirmation checker and the worker pool,
// and blocks until ctx is canceled and in-flight work has been recorded.
func (s *LedgerSyncService) Run(ctx context.Context) {
	work := make(chan int64)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				s.process(ctx, id)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.confirmLoop(ctx)
	}()

	s.dispatchLoop(ctx, work)
	close(work)
	wg.Wait()
}

// dispatchLoop polls for retryable jobs and feeds the due ones to the pool.
func (s *LedgerSyncService) dispatchLoop(ctx context.Context, work chan<- int64) {
	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			jobs, err := s.jobs.ListRetryable(ctx, s.cfg.MaxAttempts, dispatchBatchSize)
			if err != nil {
				if s.log != nil {
					s.log.Errorw("sync_poll_failed", "err", err)
				}
				continue
			}
			for _, job := range jobs {
				if !s.due(job, now.UTC()) {
					continue
				}
				select {
				case work <- job.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// due applies the exponential backoff schedule. A job with no attempts yet is
// immediately eligible; after a failure it waits base·2^(attempts-1), capped.
func (s *LedgerSyncService) due(job models.SyncJob, now time.Time) bool {
	if job.Attempts == 0 || job.LastAttemptAt == nil {
		return true
	}
	return !now.Before(job.LastAttemptAt.Add(s.backoff(job.Attempts)))
}

func (s *LedgerSyncService) backoff(attempts int) time.Duration {
	d := s.cfg.BaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= s.cfg.MaxDelay {
			return s.cfg.MaxDelay
		}
	}
	if d > s.cfg.MaxDelay {
		return s.cfg.MaxDelay
	}
	return d
}

// process claims one job and runs a single attempt. Results are recorded on
// a detached context: once a submission is in flight its outcome is persisted
// even if shutdown was requested mid-attempt.
func (s *LedgerSyncService) process(ctx context.Context, id int64) {
	record := context.WithoutCancel(ctx)

	job, err := s.jobs.Claim(record, id, time.Now().UTC())
	if err != nil {
		if s.log != nil {
			s.log.Errorw("sync_claim_failed", "job", id, "err", err)
		}
		return
	}
	if job == nil {
		return // another worker holds it, or it reached a terminal state
	}

	// A job that already carries a transaction hash may have succeeded on a
	// previous ambiguous attempt. Ask the ledger before submitting again so
	// the same domain event is never spent twice.
	if job.TransactionHash != nil {
		status, err := s.client.CheckStatus(ctx, *job.TransactionHash)
		if err != nil {
			s.fail(record, job.ID, "status check: "+err.Error())
			return
		}
		switch status.State {
		case ledger.StateConfirmed:
			s.confirm(record, job.ID, status.BlockNumber)
			return
		case ledger.StatePending:
			return // still in flight ledger-side; the confirm loop follows up
		case ledger.StateNotFound:
			// transaction vanished; fall through to a fresh submission
		}
	}

	start := time.Now()
	txHash, err := s.client.Submit(ctx, job.EntityType, job.EntityID, job.Payload)
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.fail(record, job.ID, err.Error())
		return
	}

	metrics.SyncAttempts.WithLabelValues("submitted").Inc()
	if err := s.jobs.MarkSubmitted(record, job.ID, txHash); err != nil && s.log != nil {
		s.log.Errorw("sync_mark_submitted_failed", "job", job.ID, "err", err)
	}
}

// confirmLoop follows up on submitted jobs until the ledger reports a block.
func (s *LedgerSyncService) confirmLoop(ctx context.Context) {
	t := time.NewTicker(s.cfg.ConfirmInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			jobs, err := s.jobs.ListAwaitingConfirmation(ctx, dispatchBatchSize)
			if err != nil {
				if s.log != nil {
					s.log.Errorw("sync_confirm_poll_failed", "err", err)
				}
				continue
			}
			for _, job := range jobs {
				s.checkConfirmation(ctx, job)
			}
		}
	}
}

func (s *LedgerSyncService) checkConfirmation(ctx context.Context, job models.SyncJob) {
	record := context.WithoutCancel(ctx)

	status, err := s.client.CheckStatus(ctx, *job.TransactionHash)
	if err != nil {
		if s.log != nil {
			s.log.Warnw("sync_confirm_check_failed", "job", job.ID, "err", err)
		}
		return
	}
	switch status.State {
	case ledger.StateConfirmed:
		s.confirm(record, job.ID, status.BlockNumber)
	case ledger.StateNotFound:
		// the transaction never made it; send the job back through the
		// retry path, where the pre-submit status check runs again
		s.fail(record, job.ID, "transaction not found on ledger")
	}
}

func (s *LedgerSyncService) confirm(ctx context.Context, id int64, blockNumber int64) {
	if err := s.jobs.MarkConfirmed(ctx, id, blockNumber, time.Now().UTC()); err != nil {
		if s.log != nil {
			s.log.Errorw("sync_mark_confirmed_failed", "job", id, "err", err)
		}
		return
	}
	metrics.SyncAttempts.WithLabelValues("confirmed").Inc()
	if s.log != nil {
		s.log.Infow("sync_job_confirmed", "job", id, "block", blockNumber)
	}
}

func (s *LedgerSyncService) fail(ctx context.Context, id int64, msg string) {
	if err := s.jobs.MarkFailed(ctx, id, msg); err != nil && s.log != nil {
		s.log.Errorw("sync_mark_failed_failed", "job", id, "err", err)
	}
	metrics.SyncAttempts.WithLabelValues("failed").Inc()
}

// Status exposes the queue summary for operators.
func (s *LedgerSyncService) Status(ctx context.Context) (models.SyncStatus, error) {
	return s.jobs.Status(ctx)
}

// Jobs lists sync jobs for the operator surface.
func (s *LedgerSyncService) Jobs(ctx context.Context, f repository.SyncFilter) ([]models.SyncJob, error) {
	return s.jobs.List(ctx, f)
}

// Retry requeues a failed job for a manual retry; the attempt cap no longer
// applies because an operator asked explicitly.
func (s *LedgerSyncService) Retry(ctx context.Context, id int64) error {
	return s.jobs.Requeue(ctx, id)
}
