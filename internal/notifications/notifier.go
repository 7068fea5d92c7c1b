package notifications

import "context"

type SendVerificationEmailInput struct {
	Email       string
	Name        string
	UserID      string
	VerifyToken string
}

type SendPasswordChangedInput struct {
	Email  string
	Name   string
	UserID string
}

// Notifier is the boundary to the mail provider. Actual delivery is an
// external collaborator; this service only hands messages over.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, input SendVerificationEmailInput) error
	SendPasswordChanged(ctx context.Context, input SendPasswordChangedInput) error
}
