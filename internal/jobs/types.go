package jobs

type JobType string

const (
	JobVerificationEmail    JobType = "user.verification_email"
	JobPasswordChangedEmail JobType = "user.password_changed_email"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobVerificationEmail, JobPasswordChangedEmail:
		return true
	default:
		return false
	}
}
