package worker

import (
	"context"

	"github.com/bsebcampus/campus-api/internal/auth"
	"github.com/bsebcampus/campus-api/internal/domain/job"
	"github.com/bsebcampus/campus-api/internal/jobs"
	"github.com/bsebcampus/campus-api/internal/notifications"
)

// MailExecutor turns queued jobs into notifier calls. Verification emails
// get their token minted here, at send time, so a job that sat in the queue
// still produces a link with the full validity window.
type MailExecutor struct {
	jwt      *auth.Manager
	notifier notifications.Notifier
}

func NewMailExecutor(jwt *auth.Manager, notifier notifications.Notifier) *MailExecutor {
	return &MailExecutor{jwt: jwt, notifier: notifier}
}

func (e *MailExecutor) Execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(jobs.JobType(j.Type), j.Payload)

	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.VerificationEmailPayload:
		token, err := e.jwt.GenerateVerifyToken(p.UserID)

		if err != nil {
			return err
		}

		return e.notifier.SendVerificationEmail(ctx, notifications.SendVerificationEmailInput{
			Email:       p.Email,
			Name:        p.Name,
			UserID:      p.UserID,
			VerifyToken: token,
		})

	case jobs.PasswordChangedEmailPayload:
		return e.notifier.SendPasswordChanged(ctx, notifications.SendPasswordChangedInput{
			Email:  p.Email,
			Name:   p.Name,
			UserID: p.UserID,
		})

	default:
		return jobs.ErrInvalidJobType
	}
}
