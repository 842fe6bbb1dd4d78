package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/splax/bookmarkapi/internal/domain"
	"github.com/splax/bookmarkapi/internal/repository"
	"github.com/splax/bookmarkapi/pkg/crypto"
	jwtpkg "github.com/splax/bookmarkapi/pkg/jwt"
)

var (
	// ErrInvalidInput reports credentials that fail basic shape checks.
	ErrInvalidInput = errors.New("auth: invalid input")
	// ErrDuplicateEmail is returned by Signup when the email is taken.
	ErrDuplicateEmail = errors.New("auth: email already registered")
	// ErrInvalidCredentials is returned by Login for an unknown email and a
	// wrong password alike.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUnauthenticated is returned by Authorize when a token cannot be
	// resolved to a live user.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
)

// dummyPassword is hashed once so that logins for unknown emails pay the
// same bcrypt cost as real ones.
const dummyPassword = "bookmarkapi-timing-equaliser"

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// TokenIssuer issues and verifies access tokens.
type TokenIssuer interface {
	Issue(subjectID, email string) (string, error)
	Verify(token string) (*jwtpkg.Claims, error)
}

// Service handles authentication workflows.
type Service struct {
	users     repository.UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	logger    *slog.Logger
	dummyHash string
	now       func() time.Time
}

// New constructs a Service.
func New(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer, logger *slog.Logger) (Service, error) {
	if users == nil || hasher == nil || tokens == nil {
		return Service{}, errors.New("auth: users, hasher and tokens are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return Service{}, fmt.Errorf("auth: prepare dummy hash: %w", err)
	}
	return Service{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		dummyHash: dummy,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Signup registers a new user. The email is stored normalised.
func (s Service) Signup(ctx context.Context, email, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, crypto.MaxPasswordBytes)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login authenticates a user and returns an access token.
func (s Service) Login(ctx context.Context, email, password string) (string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			s.logger.Info("login failed", "reason", "unknown_account")
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
		return "", ErrInvalidCredentials
	}
	if !ok {
		s.logger.Info("login failed", "reason", "password_mismatch", "user_id", user.ID)
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}

// Authorize validates a bearer token and returns the user it names.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: token required", ErrUnauthenticated)
	}
	claims, err := s.tokens.Verify(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: token subject no longer exists", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("resolve token subject: %w", err)
	}
	return user, nil
}

// Profile returns the public view of an authenticated user.
func (s Service) Profile(user *domain.User) domain.PublicUser {
	return user.Public()
}
