package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/pkg/optimizer"
)

const defaultPollInterval = 2 * time.Second

var (
	// ErrSuperseded is returned by Submit when a newer submission replaced
	// this one before the service answered, and by Wait when the awaited
	// job was replaced.
	ErrSuperseded = eris.New("jobs: submission superseded by a newer request")

	// ErrStopped is returned by Submit when Stop or Dispose cancelled the
	// submission before the service answered.
	ErrStopped = eris.New("jobs: submission stopped")

	// ErrClosed is returned by Submit after Dispose.
	ErrClosed = eris.New("jobs: controller disposed")
)

// Option configures a Controller.
type Option func(*Controller)

// WithPollInterval overrides the status poll period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Controller owns the single current optimization job: it submits the job,
// polls its status until a terminal state, and publishes JobView snapshots.
// A new Submit cancels the previous job's polling; responses that belong to
// a superseded submission are discarded.
type Controller struct {
	client   optimizer.Client
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	view    model.JobView
	active  string // submission id whose responses may still be applied
	cancel  context.CancelFunc
	done    chan struct{} // closed when the current job stops being active
	lastErr error
	subs    map[int]chan model.JobView
	nextSub int
	closed  bool
	loops   sync.WaitGroup
}

// New creates an idle Controller.
func New(client optimizer.Client, opts ...Option) *Controller {
	c := &Controller{
		client:   client,
		interval: defaultPollInterval,
		now:      time.Now,
		subs:     make(map[int]chan model.JobView),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.view = model.JobView{State: model.StateIdle, UpdatedAt: c.now()}
	c.done = closedChan()
	return c
}

// Submit validates req, replaces any current job, and creates a new job on
// the service. It returns once the service has accepted or rejected the job;
// polling continues in the background.
func (c *Controller) Submit(ctx context.Context, req model.OptimizationRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancelLocked()

	runCtx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	c.active = id
	c.cancel = cancel
	c.done = make(chan struct{})
	c.lastErr = nil
	c.publishLocked(model.JobView{
		SubmissionID: id,
		State:        model.StateSubmitting,
		Status:       model.JobStatusQueued,
		IsActive:     true,
	})
	c.mu.Unlock()

	log := zap.L().With(zap.String("submission_id", id))
	log.Info("submitting optimization job",
		zap.String("sheet", req.SheetName),
		zap.Float64("budget", req.Budget),
		zap.Float64("total_audience", req.TotalAudience),
	)

	// The caller's context may abort the POST too, but only runCtx governs
	// the poll loop.
	submitCtx, stopSubmit := context.WithCancel(runCtx)
	defer stopSubmit()
	stopAfter := context.AfterFunc(ctx, stopSubmit)
	defer stopAfter()

	resp, err := c.client.StartOptimization(submitCtx, optimizer.StartRequest{
		TotalAudience: req.TotalAudience,
		Budget:        req.Budget,
		SheetName:     req.SheetName,
		FileName:      req.SourceFile.Name,
		File:          req.SourceFile.Content,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != id {
		if c.active == "" {
			log.Debug("discarding submit response for stopped submission")
			return ErrStopped
		}
		log.Debug("discarding submit response for superseded submission")
		return ErrSuperseded
	}

	if err != nil {
		subErr := &model.SubmissionError{Message: submissionMessage(err), Err: err}
		log.Warn("optimization job rejected", zap.Error(err))
		c.failLocked(subErr.Message, subErr)
		return subErr
	}

	log = log.With(zap.String("job_id", resp.JobID))
	log.Info("optimization job accepted")

	v := c.view
	v.JobID = resp.JobID
	v.State = model.StatePolling
	c.publishLocked(v)

	c.loops.Add(1)
	go c.pollLoop(runCtx, id, resp.JobID)
	return nil
}

// Stop cancels the current job's polling without starting a new one. The
// last known job data stays visible; any in-flight response is discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Dispose stops polling, closes all subscriptions and rejects further
// submissions. It waits for the poll goroutine to exit.
func (c *Controller) Dispose() {
	c.mu.Lock()
	c.stopLocked()
	if !c.closed {
		c.closed = true
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
	}
	c.mu.Unlock()

	// Submissions still in flight saw their cancel under this same lock and
	// will not start a poll loop.
	c.loops.Wait()
}

func (c *Controller) stopLocked() {
	if !c.view.IsActive {
		return
	}
	zap.L().Info("stopping optimization job",
		zap.String("submission_id", c.active),
		zap.String("job_id", c.view.JobID),
	)
	c.cancelLocked()
	v := c.view
	v.State = model.StateIdle
	v.IsActive = false
	c.publishLocked(v)
}

// View returns the current snapshot.
func (c *Controller) View() model.JobView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Subscribe returns a channel that always holds the most recent snapshot
// not yet received, starting with the current one. Slow readers skip
// intermediate snapshots. The returned func unsubscribes.
func (c *Controller) Subscribe() (<-chan model.JobView, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan model.JobView, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.view

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

// Wait blocks until the current job is no longer active and returns its
// final snapshot. A failed job yields *model.PollingError,
// *model.JobFailedError or *model.SubmissionError. If a newer Submit
// replaced the job meanwhile, Wait returns the newer snapshot together with
// ErrSuperseded.
func (c *Controller) Wait(ctx context.Context) (model.JobView, error) {
	c.mu.Lock()
	done := c.done
	id := c.view.SubmissionID
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return c.View(), eris.Wrap(ctx.Err(), "jobs: wait")
	case <-done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view.SubmissionID != id {
		return c.view, ErrSuperseded
	}
	return c.view, c.lastErr
}

// cancelLocked stops the active submission, if any. Callers hold c.mu.
func (c *Controller) cancelLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.active = ""
	c.finishLocked()
}

// finishLocked releases Wait callers for the current job.
func (c *Controller) finishLocked() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func (c *Controller) failLocked(msg string, err error) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.lastErr = err
	v := c.view
	v.State = model.StateFailed
	v.Status = model.JobStatusFailed
	v.ErrorMessage = msg
	v.IsActive = false
	c.publishLocked(v)
	c.finishLocked()
}

func (c *Controller) publishLocked(v model.JobView) {
	v.UpdatedAt = c.now()
	c.view = v
	for _, ch := range c.subs {
		// Replace any unread snapshot with the newest one.
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// submissionMessage prefers the service's own error text.
func submissionMessage(err error) string {
	var apiErr *optimizer.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return model.MsgSubmissionFailed
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// newPollLimiter spaces poll starts by interval; the first poll waits one
// full interval after acceptance.
func newPollLimiter(interval time.Duration) *rate.Limiter {
	lim := rate.NewLimiter(rate.Every(interval), 1)
	lim.Allow()
	return lim
}
