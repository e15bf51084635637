package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/velvetpaws/groomhub/internal/notify"
	"github.com/velvetpaws/groomhub/libs/httpx"
)

type fakeReminderRunner struct {
	reminderRuns  int
	retentionRuns int
	result        notify.RunResult
}

func (f *fakeReminderRunner) RunAppointmentReminders(_ context.Context, _ time.Duration) (notify.RunResult, error) {
	f.reminderRuns++
	return f.result, nil
}

func (f *fakeReminderRunner) RunRetention(_ context.Context, _ time.Duration, _ int) (notify.RunResult, error) {
	f.retentionRuns++
	return f.result, nil
}

type fakeSweeper struct {
	result notify.SweepResult
	err    error
}

func (f *fakeSweeper) Sweep(context.Context) (notify.SweepResult, error) {
	return f.result, f.err
}

type fakeExpirer struct {
	offers, entries int
}

func (f *fakeExpirer) ExpireSweep(context.Context) (int, int, error) {
	return f.offers, f.entries, nil
}

func newCronHandler(sweeper *fakeSweeper) (*CronHandler, *fakeReminderRunner) {
	runner := &fakeReminderRunner{result: notify.RunResult{Candidates: 3, Sent: 2, Suppressed: 1}}
	if sweeper == nil {
		sweeper = &fakeSweeper{}
	}
	return NewCronHandler(runner, sweeper, &fakeExpirer{offers: 2, entries: 1}, testLogger()), runner
}

func TestCronEndpointsRequireBearerToken(t *testing.T) {
	h, _ := newCronHandler(nil)
	protected := httpx.Chain(http.HandlerFunc(h.Reminders), httpx.WithBearerToken("cron-secret"))

	req := httptest.NewRequest(http.MethodGet, "/cron/notifications/reminders", nil)
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token should answer 401, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/cron/notifications/reminders", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token should answer 401, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/cron/notifications/reminders", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("valid token should answer 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCronRemindersRuns(t *testing.T) {
	h, runner := newCronHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/cron/notifications/reminders", nil)
	rr := httptest.NewRecorder()
	h.Reminders(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if runner.reminderRuns != 1 {
		t.Fatalf("expected one reminder run, got %d", runner.reminderRuns)
	}
	var resp cronRunResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Result.Sent != 2 || resp.Result.Suppressed != 1 {
		t.Fatalf("unexpected run result: %+v", resp.Result)
	}
}

func TestCronRetrySkipsWhenSweepInFlight(t *testing.T) {
	h, _ := newCronHandler(&fakeSweeper{err: notify.ErrSweepInProgress})

	req := httptest.NewRequest(http.MethodGet, "/cron/notifications/retry", nil)
	rr := httptest.NewRecorder()
	h.Retry(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("in-flight sweep should not error, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["skipped"] != true {
		t.Fatalf("expected skipped=true, got %v", resp)
	}
}

func TestCronWaitlistExpiration(t *testing.T) {
	h, _ := newCronHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/cron/waitlist-expiration", nil)
	rr := httptest.NewRecorder()
	h.WaitlistExpiration(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["expired_offers"] != float64(2) || resp["expired_entries"] != float64(1) {
		t.Fatalf("unexpected expiration counts: %v", resp)
	}
}
