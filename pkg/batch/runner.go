package batch

import (
	"context"
	"fmt"
	"time"

	"igunfollow/pkg/checkpoint"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
	"igunfollow/pkg/ui"
)

// Result is the tally of one pass over a username list
type Result struct {
	Success int
	Failure int
	Failed  []string

	// Interrupted is set when the context ended before the list was done
	Interrupted bool
	Duration    time.Duration
}

// Runner unfollows a list of usernames one at a time
type Runner struct {
	client   Unfollower
	pacer    ratelimit.Pacer
	sleep    ratelimit.SleepFunc
	reporter Reporter
	logger   logger.Logger

	// OnResult, when set, is called after every username
	OnResult func(username string, err error)
}

// NewRunner creates a Runner. A nil reporter prints nothing and a nil
// logger falls back to the global one.
func NewRunner(client Unfollower, pacer ratelimit.Pacer, reporter Reporter, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Runner{
		client:   client,
		pacer:    pacer,
		sleep:    ratelimit.Sleep,
		reporter: reporter,
		logger:   log,
	}
}

// WithSleep replaces the sleep used between usernames
func (r *Runner) WithSleep(sleep ratelimit.SleepFunc) *Runner {
	r.sleep = sleep
	return r
}

// Run unfollows usernames in order. A failed username never stops the
// batch; a cancelled context stops it before the next username.
func (r *Runner) Run(ctx context.Context, usernames []string) Result {
	start := time.Now()
	total := len(usernames)
	tracker := ui.NewStatusTracker(total)
	var result Result

	r.logger.InfoWithFields("Starting batch", map[string]interface{}{
		"total":  total,
		"action": "batch_start",
	})

	for i, username := range usernames {
		if ctx.Err() != nil {
			result.Interrupted = true
			break
		}

		r.reporter.Start(i+1, total, username)
		err := r.client.Unfollow(ctx, username)

		tracker.Record(err == nil)
		if err == nil {
			result.Success++
		} else {
			result.Failure++
			result.Failed = append(result.Failed, username)
		}
		r.reporter.Result(err, tracker)
		logger.LogUnfollow(r.logger, username, i+1, total, err)
		if r.OnResult != nil {
			r.OnResult(username, err)
		}

		if i == total-1 {
			break
		}

		delay := r.pacer.Next()
		r.reporter.Waiting(delay)
		if err := r.sleep(ctx, delay); err != nil {
			result.Interrupted = true
			break
		}
	}

	result.Duration = time.Since(start)
	r.reporter.Done(result.Success, result.Failure)

	fields := map[string]interface{}{
		"success":  result.Success,
		"failure":  result.Failure,
		"duration": result.Duration,
		"action":   "batch_complete",
	}
	if len(result.Failed) > 0 {
		fields["failed"] = result.Failed
	}
	if result.Interrupted {
		r.logger.WarnWithFields("Batch interrupted", fields)
	} else {
		r.logger.InfoWithFields("Batch finished", fields)
	}

	return result
}

// RunWithCheckpoint runs the part of usernames the checkpoint has not yet
// seen succeed, recording every outcome. The checkpoint is removed once the
// whole list has been unfollowed.
func (r *Runner) RunWithCheckpoint(ctx context.Context, mgr *checkpoint.Manager, listFile string, usernames []string) (Result, error) {
	cp, err := mgr.LoadOrCreate(listFile, len(usernames))
	if err != nil {
		return Result{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	remaining := cp.Remaining(usernames)
	if skipped := len(usernames) - len(remaining); skipped > 0 {
		r.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
			"list_file": listFile,
			"skipped":   skipped,
			"remaining": len(remaining),
		})
	}

	onResult := r.OnResult
	r.OnResult = func(username string, err error) {
		if saveErr := mgr.RecordResult(cp, username, err == nil); saveErr != nil {
			r.logger.WithError(saveErr).Warn("Failed to save checkpoint")
		}
		if onResult != nil {
			onResult(username, err)
		}
	}
	defer func() { r.OnResult = onResult }()

	result := r.Run(ctx, remaining)

	if !result.Interrupted && result.Failure == 0 {
		if err := mgr.Delete(); err != nil {
			return result, err
		}
	}
	return result, nil
}

type nopReporter struct{}

func (nopReporter) Start(int, int, string)          {}
func (nopReporter) Result(error, *ui.StatusTracker) {}
func (nopReporter) Waiting(time.Duration)           {}
func (nopReporter) Done(int, int)                   {}
