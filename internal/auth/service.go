package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"upload-portal/internal/audit"
	"upload-portal/internal/observability"
)

var (
	// ErrInvalidCredentials merges "user not found", "user inactive" and
	// "wrong password" into one outcome so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound means a verified token points at a user that no longer
	// exists or has been deactivated.
	ErrUserNotFound = errors.New("user not found")
)

// dummyHash is a bcrypt hash (cost 12) of a throwaway string. Login runs a
// comparison against it when no user matches, so missing and existing
// accounts take the same time to reject.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// RequestMeta carries the per-request attributes recorded in the audit trail.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Service orchestrates the credential verifier, token codec, user repository
// and audit recorder behind the three auth endpoints. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	repo   *Repository
	codec  *TokenCodec
	audit  *audit.Recorder
	logger *observability.Logger
}

func NewService(repo *Repository, codec *TokenCodec, recorder *audit.Recorder, logger *observability.Logger) *Service {
	return &Service{
		repo:   repo,
		codec:  codec,
		audit:  recorder,
		logger: logger,
	}
}

// Login verifies credentials and issues a bearer token. Failed attempts are
// audited as login_failed with the user id when the email resolved to one.
// A bcrypt failure that is not a mismatch is logged internally but reported
// to the caller exactly like a wrong password.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (LoginResponse, error) {
	user, err := s.repo.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_, _ = VerifyPassword(password, dummyHash)
			s.audit.Record(ctx, nil, audit.ActionLoginFailed, meta.IP, meta.UserAgent)
			return LoginResponse{}, ErrInvalidCredentials
		}
		return LoginResponse{}, err
	}

	match, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("password_verify_failed", map[string]any{"user_id": user.ID, "error": err.Error()})
		match = false
	}
	if !match {
		s.audit.Record(ctx, &user.ID, audit.ActionLoginFailed, meta.IP, meta.UserAgent)
		return LoginResponse{}, ErrInvalidCredentials
	}

	token, err := s.codec.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("issue token: %w", err)
	}

	s.audit.Record(ctx, &user.ID, audit.ActionLoginSuccess, meta.IP, meta.UserAgent)

	return LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        user.Role,
	}, nil
}

// Logout audits a logout for a still-valid token. It never returns an error:
// a token that fails verification needs no further invalidation, and a store
// fault must not strand the caller in a logged-in-looking state.
func (s *Service) Logout(ctx context.Context, token string, meta RequestMeta) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return
	}

	user, err := s.repo.GetActiveByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("logout_user_lookup_failed", map[string]any{"user_id": claims.UserID, "error": err.Error()})
		}
		return
	}

	s.audit.Record(ctx, &user.ID, audit.ActionLogout, meta.IP, meta.UserAgent)
}

// UserInfo verifies the token and returns the current user record. The
// password hash stays inside the package; the response carries only id,
// email, role and created_at.
func (s *Service) UserInfo(ctx context.Context, token string, meta RequestMeta) (UserInfoResponse, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return UserInfoResponse{}, err
	}

	user, err := s.repo.GetActiveByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserInfoResponse{}, ErrUserNotFound
		}
		return UserInfoResponse{}, err
	}

	s.audit.Record(ctx, &user.ID, audit.ActionGetUserInfo, meta.IP, meta.UserAgent)

	return UserInfoResponse{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: formatCreatedAt(user.CreatedAt),
	}, nil
}

// SeedAdmin provisions the env-configured admin account. Both values must be
// present together; the password must satisfy the account policy before it
// is hashed and stored.
func (s *Service) SeedAdmin(ctx context.Context, email, password string, rounds int) error {
	if email == "" && password == "" {
		return nil
	}
	if email == "" || password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required together")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("admin email %q is not a valid address", email)
	}
	if violations := ValidatePasswordStrength(password); len(violations) > 0 {
		return fmt.Errorf("admin password rejected: %s", violations[0])
	}

	hash, err := HashPassword(password, rounds)
	if err != nil {
		return err
	}

	return s.repo.UpsertAdmin(ctx, email, hash)
}
