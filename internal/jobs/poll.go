package jobs

import (
	"cmp"
	"context"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/mediaplan-cli/internal/model"
	"github.com/sells-group/mediaplan-cli/pkg/optimizer"
)

// pollLoop fetches the status of jobID until the job reaches a terminal
// status, a fetch fails, or ctx is cancelled. Each poll is issued only after
// the previous one has settled, so responses for one job apply in order.
func (c *Controller) pollLoop(ctx context.Context, submissionID, jobID string) {
	defer c.loops.Done()

	log := zap.L().With(
		zap.String("submission_id", submissionID),
		zap.String("job_id", jobID),
	)
	lim := newPollLimiter(c.interval)

	for {
		if err := lim.Wait(ctx); err != nil {
			log.Debug("poll loop cancelled")
			return
		}

		status, err := c.client.GetJobStatus(ctx, jobID)
		if ctx.Err() != nil {
			log.Debug("discarding poll response for cancelled job")
			return
		}

		if !c.apply(submissionID, jobID, status, err) {
			return
		}
	}
}

// apply merges one poll outcome into the view. It reports whether polling
// should continue.
func (c *Controller) apply(submissionID, jobID string, resp *optimizer.JobStatusResponse, fetchErr error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != submissionID {
		zap.L().Debug("discarding stale poll response",
			zap.String("submission_id", submissionID),
			zap.String("job_id", jobID),
		)
		return false
	}

	if fetchErr != nil {
		zap.L().Warn("lost connection while polling job status",
			zap.String("job_id", jobID),
			zap.Error(fetchErr),
		)
		c.failLocked(model.MsgConnectionLost, &model.PollingError{JobID: jobID, Err: fetchErr})
		return false
	}

	v := MergeStatus(c.view, resp)

	switch v.Status {
	case model.JobStatusCompleted:
		zap.L().Info("optimization job completed", zap.String("job_id", jobID))
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		v.State = model.StateCompleted
		v.IsActive = false
		c.publishLocked(v)
		c.finishLocked()
		return false

	case model.JobStatusFailed:
		msg := resp.Error
		if msg == "" {
			msg = model.MsgJobFailed
		}
		zap.L().Warn("optimization job failed",
			zap.String("job_id", jobID),
			zap.String("error", msg),
		)
		c.view = v
		c.failLocked(msg, &model.JobFailedError{JobID: jobID, Message: msg})
		return false
	}

	c.publishLocked(v)
	return true
}

// MergeStatus overlays a status response on v. Status, progress and the
// status message always take the response's values; result and reach curve
// are replaced only when the response carries them, so earlier partial
// results survive polls that omit them. Controller state is left alone.
func MergeStatus(v model.JobView, resp *optimizer.JobStatusResponse) model.JobView {
	v.Status = model.ParseServiceStatus(resp.Status)
	v.Progress = clampProgress(resp.Progress)
	v.StatusMessage = resp.Message
	if v.StatusMessage == "" {
		v.StatusMessage = resp.Status
	}
	if resp.MainResult != nil {
		v.Result = toResult(resp.MainResult)
	}
	if len(resp.ReachCurve) > 0 {
		v.ReachCurve = toReachCurve(resp.ReachCurve)
	}
	return v
}

func clampProgress(p float64) float64 {
	switch {
	case p < 0 || math.IsNaN(p):
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

func toResult(r *optimizer.Result) *model.OptimizationResult {
	plan := make([]model.StationAllocation, 0, len(r.Plan))
	for _, p := range r.Plan {
		plan = append(plan, model.StationAllocation{
			Station: p.Station,
			Cost:    p.Cost,
			Cume:    p.Cume,
		})
	}
	return &model.OptimizationResult{
		TotalCost:          r.TotalCost,
		NetReachPercentage: r.NetReachPercentage,
		NetReachPeople:     r.NetReachPeople,
		AvgFrequency:       r.AvgFrequency,
		GRPs:               r.GRPs,
		TotalGrossCume:     r.TotalGrossCume,
		Plan:               plan,
	}
}

// toReachCurve copies the curve ordered by ascending budget.
func toReachCurve(points []optimizer.ReachPoint) []model.ReachPoint {
	curve := make([]model.ReachPoint, 0, len(points))
	for _, p := range points {
		curve = append(curve, model.ReachPoint{Budget: p.Budget, Reach: p.Reach})
	}
	slices.SortStableFunc(curve, func(a, b model.ReachPoint) int {
		return cmp.Compare(a.Budget, b.Budget)
	})
	return curve
}
