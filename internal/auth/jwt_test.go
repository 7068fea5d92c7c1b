package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bsebcampus/campus-api/internal/auth"
)

func newManager() *auth.Manager {
	return auth.NewManager("test-secret", 30*24*time.Hour, 48*time.Hour)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := newManager()

	token, err := m.GenerateSessionToken(auth.SessionIdentity{
		UserID:         "user-1",
		Username:       "asha",
		Name:           "Asha Kumari",
		Role:           "student",
		ProfilePicture: "https://example.com/p.png",
	})

	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := m.VerifySessionToken(token)

	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("got sub %q, want user-1", claims.UserID)
	}

	if claims.Username != "asha" {
		t.Errorf("got username %q, want asha", claims.Username)
	}

	if claims.Role != "student" {
		t.Errorf("got role %q, want student", claims.Role)
	}

	if claims.ProfilePicture != "https://example.com/p.png" {
		t.Errorf("got profilePicture %q", claims.ProfilePicture)
	}

	if claims.JTI == "" {
		t.Error("jti was empty")
	}

	wantExpiry := time.Now().UTC().Add(30 * 24 * time.Hour)
	gotExpiry := claims.ExpiresAt.Time

	if gotExpiry.Before(wantExpiry.Add(-time.Minute)) || gotExpiry.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expiry %v not within a minute of %v", gotExpiry, wantExpiry)
	}
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	m := newManager()

	token, err := m.GenerateSessionToken(auth.SessionIdentity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	other := auth.NewManager("different-secret", time.Hour, time.Hour)

	if _, err := other.VerifySessionToken(token); err == nil {
		t.Fatal("token signed with another secret verified")
	}
}

func TestSessionTokenRejectsExpired(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute, time.Hour)

	token, err := m.GenerateSessionToken(auth.SessionIdentity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if _, err := m.VerifySessionToken(token); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestVerifyTokenRoundTrip(t *testing.T) {
	m := newManager()

	token, err := m.GenerateVerifyToken("user-9")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := m.ParseVerifyToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if claims.UserID != "user-9" {
		t.Errorf("got sub %q, want user-9", claims.UserID)
	}
}

func TestTokenTypeIsEnforced(t *testing.T) {
	m := newManager()

	sessionToken, err := m.GenerateSessionToken(auth.SessionIdentity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	verifyToken, err := m.GenerateVerifyToken("user-1")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// a verify token must never open a session, and vice versa
	if _, err := m.VerifySessionToken(verifyToken); !errors.Is(err, auth.ErrInvalidTokenType) {
		t.Errorf("verify token accepted as session: err=%v", err)
	}

	if _, err := m.ParseVerifyToken(sessionToken); !errors.Is(err, auth.ErrInvalidTokenType) {
		t.Errorf("session token accepted as verify: err=%v", err)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	m := newManager()

	if _, err := m.VerifySessionToken("not-a-jwt"); err == nil {
		t.Fatal("garbage token verified")
	}
}
