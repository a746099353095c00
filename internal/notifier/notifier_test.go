package notifier

import (
	"context"
	"testing"
	"time"

	"costwatch/internal/report"
	"costwatch/internal/retry"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invokedAt = time.Date(2024, 9, 17, 6, 0, 0, 0, time.UTC)

type throttleErr struct{ code string }

func (e *throttleErr) Error() string     { return "api error " + e.code }
func (e *throttleErr) ErrorCode() string { return e.code }

type fakeTracker struct {
	sent       map[string]string
	lookupSeen []string
}

func newFakeTracker() *fakeTracker { return &fakeTracker{sent: map[string]string{}} }

func (f *fakeTracker) AlreadySent(_ context.Context, date string) bool {
	f.lookupSeen = append(f.lookupSeen, date)
	_, ok := f.sent[date]
	return ok
}

func (f *fakeTracker) MarkSent(_ context.Context, date, messageID string) {
	f.sent[date] = messageID
}

type fakeCosts struct {
	rep   report.Report
	errs  []error // consumed per call, nil entry = success
	calls int
}

func (f *fakeCosts) DailyCosts(context.Context, time.Time) (report.Report, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return report.Report{}, err
		}
	}
	return f.rep, nil
}

type fakeSender struct {
	id    string
	errs  []error
	calls int
	last  report.Email
}

func (f *fakeSender) Send(_ context.Context, msg report.Email) (string, error) {
	f.calls++
	f.last = msg
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return f.id, nil
}

func testReport() report.Report {
	return report.Report{
		Date:  "2024-09-16",
		Total: 123.45,
		Services: []report.ServiceCost{
			{Service: "Amazon S3", Amount: 50.00},
			{Service: "Amazon EC2", Amount: 73.45},
		},
	}
}

// newTestJob builds a job with instant backoff so retries do not slow tests.
func newTestJob(tr Tracker, costs CostSource, sender EmailSender) *Job {
	j := New(tr, costs, sender, 3, time.Nanosecond, zerolog.Nop())
	j.WithNow(func() time.Time { return invokedAt })
	return j
}

func TestRun_HappyPath(t *testing.T) {
	tracker := newFakeTracker()
	costs := &fakeCosts{rep: testReport()}
	sender := &fakeSender{id: "msg-123"}
	j := newTestJob(tracker, costs, sender)

	res, err := j.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Cost notification sent successfully", res.Message)
	assert.Equal(t, "msg-123", res.EmailMessageID)
	assert.False(t, res.DuplicatePrevented)

	// dedup key is yesterday's UTC date
	assert.Equal(t, []string{"2024-09-16"}, tracker.lookupSeen)
	assert.Equal(t, "msg-123", tracker.sent["2024-09-16"])

	assert.Equal(t, "AWS Daily Cost Report - $123.45", sender.last.Subject)
	assert.Contains(t, sender.last.Text, "Amazon EC2: $73.45")
}

func TestRun_DuplicatePrevented(t *testing.T) {
	tracker := newFakeTracker()
	tracker.sent["2024-09-16"] = "earlier-msg"
	costs := &fakeCosts{rep: testReport()}
	sender := &fakeSender{id: "msg-123"}
	j := newTestJob(tracker, costs, sender)

	res, err := j.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, res.DuplicatePrevented)
	assert.Equal(t, "Cost report already sent today", res.Message)
	assert.Zero(t, costs.calls, "duplicate must skip the cost query")
	assert.Zero(t, sender.calls, "duplicate must skip the email send")
	assert.Equal(t, "earlier-msg", tracker.sent["2024-09-16"], "record must not be rewritten")
}

func TestRun_EmptyCostData(t *testing.T) {
	tracker := newFakeTracker()
	sender := &fakeSender{id: "msg-123"}
	j := newTestJob(tracker, &fakeCosts{}, sender)

	res, err := j.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "msg-123", res.EmailMessageID)
	assert.Equal(t, "AWS Daily Cost Report - No Data", sender.last.Subject)
}

func TestRun_CostQueryRetriesThenSucceeds(t *testing.T) {
	tracker := newFakeTracker()
	costs := &fakeCosts{
		rep:  testReport(),
		errs: []error{&throttleErr{code: "Throttling"}, &throttleErr{code: "RequestLimitExceeded"}, nil},
	}
	sender := &fakeSender{id: "msg-123"}
	j := newTestJob(tracker, costs, sender)

	res, err := j.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, costs.calls)
	assert.Equal(t, "msg-123", res.EmailMessageID)
}

func TestRun_CostQueryExhaustedPropagates(t *testing.T) {
	tracker := newFakeTracker()
	costs := &fakeCosts{errs: []error{
		&throttleErr{code: "Throttling"},
		&throttleErr{code: "Throttling"},
		&throttleErr{code: "Throttling"},
	}}
	sender := &fakeSender{id: "msg-123"}
	j := newTestJob(tracker, costs, sender)

	_, err := j.Run(context.Background())

	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Zero(t, sender.calls, "no email after query failure")
	assert.Empty(t, tracker.sent, "nothing recorded on failure")
}

func TestRun_SendTerminalErrorPropagates(t *testing.T) {
	tracker := newFakeTracker()
	costs := &fakeCosts{rep: testReport()}
	sender := &fakeSender{errs: []error{&throttleErr{code: "MessageRejected"}}}
	j := newTestJob(tracker, costs, sender)

	_, err := j.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, sender.calls, "terminal send error must not be retried")
	assert.Empty(t, tracker.sent)
}

func TestRun_SendThrottledRetriesWithSESCodes(t *testing.T) {
	tracker := newFakeTracker()
	costs := &fakeCosts{rep: testReport()}
	sender := &fakeSender{
		id:   "msg-456",
		errs: []error{&throttleErr{code: "SendingPausedException"}, nil},
	}
	j := newTestJob(tracker, costs, sender)

	res, err := j.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, sender.calls)
	assert.Equal(t, "msg-456", tracker.sent["2024-09-16"])
	assert.Equal(t, "msg-456", res.EmailMessageID)
}

func TestReportDate_YesterdayUTC(t *testing.T) {
	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 9, 17, 6, 0, 0, 0, time.UTC), "2024-09-16"},
		{time.Date(2024, 9, 1, 0, 0, 1, 0, time.UTC), "2024-08-31"},
		{time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), "2023-12-31"},
		// local zone ahead of UTC must not shift the date
		{time.Date(2024, 9, 17, 1, 30, 0, 0, time.FixedZone("UTC+9", 9*3600)), "2024-09-15"},
	}
	for _, tc := range cases {
		_, got := ReportDate(tc.now)
		if got != tc.want {
			t.Fatalf("ReportDate(%s) = %s, want %s", tc.now, got, tc.want)
		}
	}
}
