// Package notifier orchestrates the daily cost report job: dedup check,
// cost query, email render and send, dedup record. One linear pass per
// invocation, no internal concurrency.
package notifier

import (
	"context"
	"fmt"
	"time"

	"costwatch/internal/report"
	"costwatch/internal/retry"

	"github.com/rs/zerolog"
)

// Throttling-class codes per external API. All other codes are terminal.
var (
	CostQueryRetryable = []string{"Throttling", "RequestLimitExceeded"}
	EmailSendRetryable = []string{"Throttling", "SendingPausedException"}
)

// SoftBudget is the execution-time SLO imposed by the invoking scheduler.
// Exceeding it is logged, not enforced.
const SoftBudget = 30 * time.Second

type CostSource interface {
	DailyCosts(ctx context.Context, day time.Time) (report.Report, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg report.Email) (string, error)
}

type Tracker interface {
	AlreadySent(ctx context.Context, date string) bool
	MarkSent(ctx context.Context, date, messageID string)
}

// Result is the job's success payload, mirrored into the CLI output.
type Result struct {
	Message            string  `json:"message"`
	DuplicatePrevented bool    `json:"duplicate_prevented,omitempty"`
	ExecutionTime      float64 `json:"execution_time,omitempty"`
	EmailMessageID     string  `json:"email_message_id,omitempty"`
}

type Job struct {
	tracker  Tracker
	costs    CostSource
	sender   EmailSender
	costExec *retry.Executor
	sendExec *retry.Executor
	log      zerolog.Logger
	now      func() time.Time
}

// New wires a job. maxAttempts and backoffBase parameterize both retry
// policies identically; only the retryable code sets differ.
func New(tracker Tracker, costs CostSource, sender EmailSender, maxAttempts int, backoffBase time.Duration, log zerolog.Logger) *Job {
	return &Job{
		tracker:  tracker,
		costs:    costs,
		sender:   sender,
		costExec: retry.NewExecutor(retry.NewPolicy(maxAttempts, backoffBase, CostQueryRetryable...), log),
		sendExec: retry.NewExecutor(retry.NewPolicy(maxAttempts, backoffBase, EmailSendRetryable...), log),
		log:      log,
		now:      time.Now,
	}
}

// WithNow replaces the clock. Test hook.
func (j *Job) WithNow(now func() time.Time) *Job {
	j.now = now
	return j
}

// ReportDate is the dedup key: the UTC calendar date of "yesterday" relative
// to the invocation instant.
func ReportDate(now time.Time) (time.Time, string) {
	day := now.UTC().AddDate(0, 0, -1)
	return day, day.Format("2006-01-02")
}

// Run executes one notification pass. Dedup-store failures are swallowed
// (fail-open on read, fail-safe on write); cost-query and email-send
// failures propagate once their retry budget is spent, so the invoking
// scheduler's alerting path fires.
func (j *Job) Run(ctx context.Context) (Result, error) {
	start := j.now()
	day, date := ReportDate(start)
	j.log.Info().Str("report_date", date).Msg("starting cost notifier run")

	if j.tracker.AlreadySent(ctx, date) {
		return Result{
			Message:            "Cost report already sent today",
			DuplicatePrevented: true,
		}, nil
	}

	rep, err := retry.Do(ctx, j.costExec, "cost query", func(ctx context.Context) (report.Report, error) {
		return j.costs.DailyCosts(ctx, day)
	})
	if err != nil {
		return Result{}, fmt.Errorf("cost query failed: %w", err)
	}

	msg := report.Render(rep)

	id, err := retry.Do(ctx, j.sendExec, "email send", func(ctx context.Context) (string, error) {
		return j.sender.Send(ctx, msg)
	})
	if err != nil {
		return Result{}, fmt.Errorf("email send failed: %w", err)
	}
	j.log.Info().Str("message_id", id).Msg("email sent")

	j.tracker.MarkSent(ctx, date, id)

	elapsed := j.now().Sub(start)
	if elapsed > SoftBudget {
		j.log.Warn().
			Float64("execution_time", elapsed.Seconds()).
			Float64("budget", SoftBudget.Seconds()).
			Msg("execution time exceeded SLO")
	}
	j.log.Info().Float64("execution_time", elapsed.Seconds()).Msg("cost notification completed")

	return Result{
		Message:        "Cost notification sent successfully",
		ExecutionTime:  round2(elapsed.Seconds()),
		EmailMessageID: id,
	}, nil
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
