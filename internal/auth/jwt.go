package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
)

// Claims carried by every token this service signs. Session tokens embed the
// identity the front end needs; verify tokens only use the subject.
type Claims struct {
	UserID         string `json:"sub"`
	Username       string `json:"username,omitempty"`
	Name           string `json:"name,omitempty"`
	Role           string `json:"role,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	TokenType      string `json:"typ"`
	JTI            string `json:"jti"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	sessionTTL time.Duration
	verifyTTL  time.Duration
}

func NewManager(secret string, sessionTTL, verifyTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		verifyTTL:  verifyTTL,
	}
}

type SessionIdentity struct {
	UserID         string
	Username       string
	Name           string
	Role           string
	ProfilePicture string
}

// GenerateSessionToken issues a fixed-lifetime session token. There is no
// refresh path: once it expires the user logs in again.
func (m *Manager) GenerateSessionToken(id SessionIdentity) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		UserID:         id.UserID,
		Username:       id.Username,
		Name:           id.Name,
		Role:           id.Role,
		ProfilePicture: id.ProfilePicture,
		TokenType:      "session",
		JTI:            uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
			Subject:   id.UserID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateVerifyToken issues the short-lived token embedded in the
// account-verification email link.
func (m *Manager) GenerateVerifyToken(userID string) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		UserID:    userID,
		TokenType: "verify",
		JTI:       uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.verifyTTL)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) ParseAndValidate(tokenStr string) (claims *Claims, err error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return
	}
	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		err = ErrInvalidToken
		return
	}
	return
}

func (m *Manager) VerifySessionToken(tokenStr string) (*Claims, error) {
	claims, err := m.ParseAndValidate(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "session" {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}

func (m *Manager) ParseVerifyToken(tokenStr string) (*Claims, error) {
	claims, err := m.ParseAndValidate(tokenStr)

	if err != nil {
		return nil, err
	}

	if claims.TokenType != "verify" {
		return nil, ErrInvalidTokenType
	}

	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
