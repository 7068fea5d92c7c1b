package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bsebcampus/campus-api/internal/auth"
	"github.com/bsebcampus/campus-api/internal/domain/job"
	"github.com/bsebcampus/campus-api/internal/jobs"
	"github.com/bsebcampus/campus-api/internal/notifications"
)

type fakeNotifier struct {
	verification []notifications.SendVerificationEmailInput
	passwords    []notifications.SendPasswordChangedInput

	err error
}

func (f *fakeNotifier) SendVerificationEmail(ctx context.Context, in notifications.SendVerificationEmailInput) error {
	f.verification = append(f.verification, in)
	return f.err
}

func (f *fakeNotifier) SendPasswordChanged(ctx context.Context, in notifications.SendPasswordChangedInput) error {
	f.passwords = append(f.passwords, in)
	return f.err
}

func testManager() *auth.Manager {
	return auth.NewManager("worker-test-secret", time.Hour, 48*time.Hour)
}

func mustPayload(t *testing.T, v interface{ JSON() (json.RawMessage, error) }) json.RawMessage {
	t.Helper()

	raw, err := v.JSON()
	if err != nil {
		t.Fatalf("payload marshal failed: %v", err)
	}

	return raw
}

func TestMailExecutorSendsVerificationEmail(t *testing.T) {
	notifier := &fakeNotifier{}
	exec := NewMailExecutor(testManager(), notifier)

	raw := mustPayload(t, jobs.VerificationEmailPayload{
		UserID:      "user-7",
		Email:       "asha@example.com",
		Name:        "Asha",
		RequestedAt: time.Now().UTC(),
	})

	err := exec.Execute(context.Background(), job.Job{
		Type:    string(jobs.JobVerificationEmail),
		Payload: raw,
	})

	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if len(notifier.verification) != 1 {
		t.Fatalf("notifier called %d times", len(notifier.verification))
	}

	sent := notifier.verification[0]

	if sent.Email != "asha@example.com" || sent.UserID != "user-7" {
		t.Errorf("wrong recipient: %+v", sent)
	}

	// the emailed token must open the verify flow for this user
	claims, err := testManager().ParseVerifyToken(sent.VerifyToken)

	if err != nil {
		t.Fatalf("minted token did not parse: %v", err)
	}

	if claims.UserID != "user-7" {
		t.Errorf("token subject %q, want user-7", claims.UserID)
	}
}

func TestMailExecutorSendsPasswordChanged(t *testing.T) {
	notifier := &fakeNotifier{}
	exec := NewMailExecutor(testManager(), notifier)

	raw := mustPayload(t, jobs.PasswordChangedEmailPayload{
		UserID:    "user-7",
		Email:     "asha@example.com",
		ChangedAt: time.Now().UTC(),
	})

	err := exec.Execute(context.Background(), job.Job{
		Type:    string(jobs.JobPasswordChangedEmail),
		Payload: raw,
	})

	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	if len(notifier.passwords) != 1 {
		t.Fatalf("notifier called %d times", len(notifier.passwords))
	}
}

func TestMailExecutorRejectsBadJobs(t *testing.T) {
	notifier := &fakeNotifier{}
	exec := NewMailExecutor(testManager(), notifier)

	err := exec.Execute(context.Background(), job.Job{
		Type:    "user.unknown",
		Payload: json.RawMessage(`{}`),
	})

	if err == nil {
		t.Fatal("unknown job type executed")
	}

	err = exec.Execute(context.Background(), job.Job{
		Type:    string(jobs.JobVerificationEmail),
		Payload: json.RawMessage(`{"email": ""}`),
	})

	if err == nil {
		t.Fatal("empty payload executed")
	}

	if len(notifier.verification)+len(notifier.passwords) != 0 {
		t.Error("notifier was called for invalid jobs")
	}
}
