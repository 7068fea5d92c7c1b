package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bsebcampus/campus-api/internal/auth"
	"github.com/bsebcampus/campus-api/internal/config"
	"github.com/bsebcampus/campus-api/internal/domain/job"
	"github.com/bsebcampus/campus-api/internal/domain/user"
	"github.com/bsebcampus/campus-api/internal/http/middlewares"
	"github.com/bsebcampus/campus-api/internal/jobs"
	"github.com/bsebcampus/campus-api/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByPhone(ctx context.Context, phone string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type RegistrationStore interface {
	Register(ctx context.Context, u user.User, jobReq job.CreateRequest) (user.User, error)
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(hash, password string) error
}

type AuthHandler struct {
	users    UserStore
	regs     RegistrationStore
	jobsRepo JobEnqueuer
	hasher   PasswordHasher
	jwt      *auth.Manager
	prom     *observability.Prom
	cfg      config.Config
}

func NewAuthHandler(users UserStore, regs RegistrationStore, jobsRepo JobEnqueuer, hasher PasswordHasher, jwtManager *auth.Manager, prom *observability.Prom, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		regs:     regs,
		jobsRepo: jobsRepo,
		hasher:   hasher,
		jwt:      jwtManager,
		prom:     prom,
		cfg:      cfg,
	}
}

type RegisterRequest struct {
	Username string   `json:"username" binding:"required,min=3,max=30"`
	Name     string   `json:"name" binding:"required,min=2"`
	Email    string   `json:"email" binding:"required,email"`
	Number   string   `json:"number" binding:"required,min=10,max=15"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     string   `json:"role" binding:"omitempty,oneof=student teacher"`
	Grade    string   `json:"grade" binding:"required"`
	Stream   string   `json:"stream" binding:"required"`
	Bio      string   `json:"bio"`
	Subjects []string `json:"subjects"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		h.countAuth("register", "invalid_request")
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	phone := strings.TrimSpace(req.Number)

	// fast-path lookups, in the same order the API has always reported
	// conflicts: email first, then username, then phone. The unique
	// indexes stay authoritative under concurrent registration.
	if code, ok := h.findConflict(cctx, email, username, phone); ok {
		h.countAuth("register", code)
		RespondConflict(ctx, code, conflictMessage(code))
		return
	}

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		h.countAuth("register", "error")
		RespondInternal(ctx, "Could not create account")
		return
	}

	newUser := buildUser(req, email, username, phone, hash)

	payload := jobs.VerificationEmailPayload{
		UserID:      newUser.ID,
		Email:       newUser.Email,
		Name:        newUser.Name,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestIDFrom(ctx),
	}

	raw, err := payload.JSON()

	if err != nil {
		h.countAuth("register", "error")
		RespondInternal(ctx, "Could not create account")
		return
	}

	idemKey := "user:verify:" + newUser.ID

	created, err := h.regs.Register(cctx, newUser, job.CreateRequest{
		Type:           string(jobs.JobVerificationEmail),
		Payload:        raw,
		IdempotencyKey: &idemKey,
	})

	if err != nil {
		if code, ok := conflictCode(err); ok {
			h.countAuth("register", code)
			RespondConflict(ctx, code, conflictMessage(code))
			return
		}

		slog.Error("registration failed", "error", err, "requestId", requestIDFrom(ctx))
		h.countAuth("register", "error")
		RespondInternal(ctx, "Could not create account")
		return
	}

	h.countAuth("register", "success")
	ctx.JSON(http.StatusCreated, gin.H{"user": created})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(ctx, "Invalid request body", nil)
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		h.countAuth("login", "missing_credentials")
		RespondError(ctx, http.StatusBadRequest, "missing_credentials", "Email and password are required.", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, strings.ToLower(strings.TrimSpace(req.Email)))

	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.countAuth("login", "error")
			RespondInternal(ctx, "Could not sign in")
			return
		}

		// same response as a bad password so the API does not reveal
		// which emails have accounts; metrics and logs keep the split
		h.countAuth("login", "unknown_email")
		slog.Debug("login rejected", "reason", "unknown_email", "requestId", requestIDFrom(ctx))
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	err = h.hasher.Check(foundUser.PasswordHash, req.Password)

	if err != nil {
		h.countAuth("login", "bad_password")
		slog.Debug("login rejected", "reason", "bad_password", "requestId", requestIDFrom(ctx))
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	// password is checked before the verification gate, so an unverified
	// response always means the caller holds valid credentials
	if !foundUser.Verified {
		h.countAuth("login", "account_unverified")
		RespondError(ctx, http.StatusForbidden, "account_unverified", "Please verify your email first.", nil)
		return
	}

	token, err := h.jwt.GenerateSessionToken(auth.SessionIdentity{
		UserID:         foundUser.ID,
		Username:       foundUser.Username,
		Name:           foundUser.Name,
		Role:           foundUser.Role,
		ProfilePicture: foundUser.ProfilePicture,
	})

	if err != nil {
		h.countAuth("login", "error")
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token)

	h.countAuth("login", "success")
	ctx.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  foundUser,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Verify consumes the emailed verification link. Repeat calls with the
// same valid token stay 200.
func (h *AuthHandler) Verify(ctx *gin.Context) {
	raw := ctx.Query("token")

	if raw == "" {
		RespondBadRequest(ctx, "Missing verification token", nil)
		return
	}

	claims, err := h.jwt.ParseVerifyToken(raw)

	if err != nil {
		h.countAuth("verify", "invalid_token")
		RespondUnAuthorized(ctx, "invalid_session", "Verification link is invalid or expired.")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err = h.users.MarkVerified(cctx, claims.UserID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.countAuth("verify", "not_found")
			RespondNotFound(ctx, "Account not found")
			return
		}

		h.countAuth("verify", "error")
		RespondInternal(ctx, "Could not verify account")
		return
	}

	h.countAuth("verify", "success")
	ctx.JSON(http.StatusOK, gin.H{"status": "verified"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "invalid_session", "Not signed in")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "invalid_session", "Account no longer exists")
			return
		}

		RespondInternal(ctx, "Could not load account")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": foundUser})
}

// GetUser looks up any account by id. Admin only, wired behind the role
// check in the router.
func (h *AuthHandler) GetUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Account not found")
			return
		}

		RespondInternal(ctx, "Could not load account")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": foundUser})
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "invalid_session", "Not signed in")
		return
	}

	var req ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByID(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	err = h.hasher.Check(foundUser.PasswordHash, req.CurrentPassword)

	if err != nil {
		h.countAuth("change_password", "invalid_credentials")
		RespondUnAuthorized(ctx, "invalid_credentials", "Current password is incorrect.")
		return
	}

	newHash, err := h.hasher.Hash(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not change password")
		return
	}

	err = h.users.UpdatePassword(cctx, userID, newHash)

	if err != nil {
		h.countAuth("change_password", "error")
		RespondInternal(ctx, "Could not change password")
		return
	}

	h.enqueuePasswordChanged(cctx, foundUser)

	h.countAuth("change_password", "success")
	ctx.Status(http.StatusNoContent)
}

// Helper functions

func (h *AuthHandler) findConflict(ctx context.Context, email, username, phone string) (string, bool) {
	if _, err := h.users.GetByEmail(ctx, email); err == nil {
		return "email_taken", true
	}

	if _, err := h.users.GetByUsername(ctx, username); err == nil {
		return "username_taken", true
	}

	if _, err := h.users.GetByPhone(ctx, phone); err == nil {
		return "phone_taken", true
	}

	return "", false
}

func buildUser(req RegisterRequest, email, username, phone, hash string) user.User {
	now := time.Now().UTC()

	role := req.Role
	if role == "" {
		role = user.RoleStudent
	}

	bio := strings.TrimSpace(req.Bio)
	if bio == "" {
		bio = user.DefaultBio
	}

	subjects := req.Subjects
	if subjects == nil {
		subjects = []string{}
	}

	return user.User{
		ID:             uuid.NewString(),
		Username:       username,
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		PhoneNumber:    phone,
		PasswordHash:   hash,
		Role:           role,
		ProfilePicture: user.DefaultProfilePicture,
		Grade:          strings.TrimSpace(req.Grade),
		Stream:         strings.TrimSpace(req.Stream),
		Bio:            bio,
		Subjects:       subjects,
		Verified:       false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func conflictCode(err error) (string, bool) {
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		return "email_taken", true
	case errors.Is(err, user.ErrUsernameTaken):
		return "username_taken", true
	case errors.Is(err, user.ErrPhoneTaken):
		return "phone_taken", true
	default:
		return "", false
	}
}

func conflictMessage(code string) string {
	switch code {
	case "email_taken":
		return "Email is already registered."
	case "username_taken":
		return "Username is already taken."
	case "phone_taken":
		return "Phone number is already registered."
	default:
		return "Already in use."
	}
}

func (h *AuthHandler) enqueuePasswordChanged(ctx context.Context, u user.User) {
	if h.jobsRepo == nil {
		return
	}

	payload := jobs.PasswordChangedEmailPayload{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		ChangedAt: time.Now().UTC(),
	}

	raw, err := payload.JSON()

	if err != nil {
		return
	}

	// best effort: the password is already changed, a missing email
	// should not fail the request
	_, err = h.jobsRepo.Create(ctx, job.CreateRequest{
		Type:    string(jobs.JobPasswordChangedEmail),
		Payload: raw,
	})

	if err != nil {
		slog.Warn("could not enqueue password changed email", "userId", u.ID, "error", err)
	}
}

func (h *AuthHandler) countAuth(flow, result string) {
	if h.prom == nil {
		return
	}

	h.prom.AuthAttempts.WithLabelValues(flow, result).Inc()
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	secure := h.cfg.Env == "prod"

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		middlewares.SessionCookieName,
		token,
		int(h.cfg.SessionTTL().Seconds()),
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		"",
		-1,
		"/",
		"",
		secure,
		true,
	)
}
