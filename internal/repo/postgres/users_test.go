package postgres

import (
	"errors"
	"testing"

	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(uniqueViolation("users_email_key")) {
		t.Error("23505 not detected")
	}

	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation misread as unique violation")
	}

	if IsUniqueViolation(errors.New("plain error")) {
		t.Error("plain error misread as unique violation")
	}
}

func TestConflictFromConstraint(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		want       error
	}{
		{"email", "users_email_key", user.ErrEmailTaken},
		{"username", "users_username_key", user.ErrUsernameTaken},
		{"phone", "users_phone_number_key", user.ErrPhoneTaken},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			got := conflictFromConstraint(uniqueViolation(tt.constraint))

			if !errors.Is(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConflictFromConstraintPassesThroughOtherErrors(t *testing.T) {
	original := errors.New("connection reset")

	if got := conflictFromConstraint(original); !errors.Is(got, original) {
		t.Fatalf("got %v, want the original error", got)
	}

	unknown := uniqueViolation("some_other_index")

	if got := conflictFromConstraint(unknown); got != unknown {
		t.Fatalf("unknown constraint rewrote the error: %v", got)
	}
}
