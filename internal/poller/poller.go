package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"image-jobs/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxAttempts = 60
)

type State string

const (
	StateIdle      State = "idle"
	StateSubmitted State = "submitted"
	StatePolling   State = "polling"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"

	// StateCancelled means the poller was stopped from outside. It is not an
	// outcome of the job.
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether s is one of the job outcomes.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimedOut
}

func (s State) done() bool {
	return s.IsTerminal() || s == StateCancelled
}

type Progress struct {
	JobID       string
	Attempt     int
	MaxAttempts int
	Status      domain.JobStatus

	// Err is set when the query for this attempt failed and was swallowed.
	Err error
}

type Config struct {
	Interval    time.Duration
	MaxAttempts int
	OnProgress  func(Progress)
}

type Outcome struct {
	JobID     string
	State     State
	ResultKey string
	Data      []byte
	Attempts  int
	Err       error
}

// Message renders the outcome for people.
func (o *Outcome) Message() string {
	switch o.State {
	case StateCompleted:
		if o.Err != nil {
			return fmt.Sprintf("Job %s completed but its result could not be downloaded: %v", o.JobID, o.Err)
		}
		return fmt.Sprintf("Job %s completed, result stored at %s", o.JobID, o.ResultKey)
	case StateFailed:
		if errors.Is(o.Err, ErrJobNotFound) {
			return fmt.Sprintf("Job %s does not exist", o.JobID)
		}
		return fmt.Sprintf("Job %s failed: %v", o.JobID, o.Err)
	case StateTimedOut:
		return fmt.Sprintf("Gave up on job %s after %d attempts; it may still finish later", o.JobID, o.Attempts)
	case StateCancelled:
		return fmt.Sprintf("Stopped waiting for job %s", o.JobID)
	default:
		return fmt.Sprintf("Job %s is %s", o.JobID, o.State)
	}
}

// Poller follows a single job until it reaches an outcome. A Poller is used
// once; create a new one per job.
type Poller struct {
	source    StatusSource
	retriever Retriever
	cfg       Config
	logger    *zlog.Zerolog

	mu      sync.Mutex
	state   State
	jobID   string
	outcome *Outcome
	cancel  context.CancelFunc
	done    chan struct{}
}

// New builds an idle poller. retriever may be nil, in which case a completed
// job yields only its result key.
func New(source StatusSource, retriever Retriever, cfg Config, logger *zlog.Zerolog) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Poller{
		source:    source,
		retriever: retriever,
		cfg:       cfg,
		logger:    logger,
		state:     StateIdle,
		done:      make(chan struct{}),
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start begins polling jobID in the background. Cancelling ctx has the same
// effect as Stop.
func (p *Poller) Start(ctx context.Context, jobID string) error {
	if jobID == "" {
		return ErrEmptyJobID
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return fmt.Errorf("%w: state %s", ErrAlreadyStarted, p.state)
	}

	ctx, cancel := context.WithCancel(ctx)
	p.jobID = jobID
	p.cancel = cancel
	p.state = StateSubmitted

	go p.loop(ctx)
	return nil
}

// Stop halts polling. It is a no-op once an outcome has been reached.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle || p.state.done() {
		return
	}
	p.state = StateCancelled
	p.cancel()
	p.logger.Info().Str("job_id", p.jobID).Msg("Polling stopped")
}

// Wait blocks until the poller finishes and returns its outcome.
func (p *Poller) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run starts polling and waits for the outcome. If ctx is cancelled first the
// outcome is StateCancelled.
func (p *Poller) Run(ctx context.Context, jobID string) (*Outcome, error) {
	if err := p.Start(ctx, jobID); err != nil {
		return nil, err
	}
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome, nil
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	defer p.cancel()

	if !p.enterPolling() {
		p.finishCancelled(0)
		return
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			p.finishCancelled(attempt - 1)
			return
		case <-ticker.C:
		}

		job, err := p.source.JobStatus(ctx, p.jobID)
		if err == nil && job == nil {
			err = ErrNoJob
		}
		finished, progress := p.observe(ctx, attempt, job, err)
		if finished {
			return
		}
		if progress != nil {
			lastErr = progress.Err
			if p.cfg.OnProgress != nil {
				p.cfg.OnProgress(*progress)
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePolling {
		p.settleCancelled(p.cfg.MaxAttempts)
		return
	}
	err := fmt.Errorf("%w after %d attempts", ErrTimedOut, p.cfg.MaxAttempts)
	if lastErr != nil {
		err = fmt.Errorf("%w after %d attempts: last error: %v", ErrTimedOut, p.cfg.MaxAttempts, lastErr)
	}
	p.state = StateTimedOut
	p.outcome = &Outcome{JobID: p.jobID, State: StateTimedOut, Attempts: p.cfg.MaxAttempts, Err: err}
	p.logger.Warn().Str("job_id", p.jobID).Int("attempts", p.cfg.MaxAttempts).Msg("Polling timed out")
}

func (p *Poller) enterPolling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateSubmitted {
		return false
	}
	p.state = StatePolling
	return true
}

// observe applies the result of one query. It returns finished when the
// loop must exit, or the progress to report when polling continues. The
// result of a query that was in flight while Stop ran is discarded.
func (p *Poller) observe(ctx context.Context, attempt int, job *domain.Job, err error) (bool, *Progress) {
	p.mu.Lock()

	if p.state != StatePolling || ctx.Err() != nil {
		p.settleCancelled(attempt)
		p.mu.Unlock()
		return true, nil
	}

	switch {
	case err != nil && errors.Is(err, ErrJobNotFound):
		p.state = StateFailed
		p.outcome = &Outcome{JobID: p.jobID, State: StateFailed, Attempts: attempt, Err: fmt.Errorf("%w: %w", ErrJobFailed, err)}
		p.logger.Warn().Str("job_id", p.jobID).Msg("Job not found, polling stopped")
		p.mu.Unlock()
		return true, nil

	case err != nil:
		p.logger.Debug().Err(err).Str("job_id", p.jobID).Int("attempt", attempt).Msg("Status query failed")
		p.mu.Unlock()
		return false, &Progress{JobID: p.jobID, Attempt: attempt, MaxAttempts: p.cfg.MaxAttempts, Err: err}

	case job.Status == domain.StatusFailed:
		reason := job.Error
		if reason == "" {
			reason = "no diagnostic reported"
		}
		p.state = StateFailed
		p.outcome = &Outcome{JobID: p.jobID, State: StateFailed, Attempts: attempt, Err: fmt.Errorf("%w: %s", ErrJobFailed, reason)}
		p.logger.Info().Str("job_id", p.jobID).Str("error", reason).Msg("Job failed")
		p.mu.Unlock()
		return true, nil

	case job.Status == domain.StatusCompleted:
		p.state = StateCompleted
		outcome := &Outcome{JobID: p.jobID, State: StateCompleted, ResultKey: job.ResultKey, Attempts: attempt}
		p.outcome = outcome
		p.logger.Info().Str("job_id", p.jobID).Str("result_key", job.ResultKey).Msg("Job completed")
		p.mu.Unlock()

		p.retrieve(ctx, outcome)
		return true, nil

	default:
		p.mu.Unlock()
		return false, &Progress{JobID: p.jobID, Attempt: attempt, MaxAttempts: p.cfg.MaxAttempts, Status: job.Status}
	}
}

// retrieve downloads the result once. The state is already completed, so
// Stop can no longer cancel ctx.
func (p *Poller) retrieve(ctx context.Context, outcome *Outcome) {
	if p.retriever == nil {
		return
	}

	var (
		data []byte
		err  error
	)
	if outcome.ResultKey == "" {
		err = fmt.Errorf("%w: job has no result key", ErrRetrieval)
	} else if data, err = p.retriever.Download(ctx, outcome.ResultKey); err != nil {
		err = fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	outcome.Data = data
	outcome.Err = err
	if err != nil {
		p.logger.Error().Err(err).Str("job_id", outcome.JobID).Msg("Result download failed")
	}
}

func (p *Poller) finishCancelled(attempts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settleCancelled(attempts)
}

// settleCancelled records the cancelled outcome. Callers hold p.mu.
func (p *Poller) settleCancelled(attempts int) {
	if p.outcome != nil {
		return
	}
	p.state = StateCancelled
	p.outcome = &Outcome{JobID: p.jobID, State: StateCancelled, Attempts: attempts, Err: ErrCancelled}
}
