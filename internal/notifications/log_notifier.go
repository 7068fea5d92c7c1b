package notifications

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogNotifier writes notifications to the process log. It stands in for a
// real mail provider in dev and in tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, in SendVerificationEmailInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.verification_email email=%s name=%s user=%s token=%s",
		in.Email, in.Name, in.UserID, in.VerifyToken,
	)
	return nil
}

func (n *LogNotifier) SendPasswordChanged(ctx context.Context, in SendPasswordChangedInput) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("notification.password_changed email=%s name=%s user=%s",
		in.Email, in.Name, in.UserID,
	)
	return nil
}

func simulateProvider(ctx context.Context) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}
