package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/auth"
	"github.com/spec-kit/field-ticket-service/internal/domain"
	"github.com/spec-kit/field-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/field-ticket-service/pkg/util/errorutil"
)

const minPasswordLength = 8

// Session is an issued access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	Deps
	tokens     *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps Deps, tokens *auth.TokenManager, bcryptCost int) *AuthService {
	return &AuthService{Deps: deps.withDefaults(), tokens: tokens, bcryptCost: bcryptCost}
}

// Register creates a user account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	fields := apperrors.FieldErrors{}
	switch {
	case name == "":
		fields.Add("name", "the name field is required")
	case exceeds(name, maxStringLength):
		fields.Add("name", fmt.Sprintf("the name field must not be greater than %d characters", maxStringLength))
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		fields.Add("email", "the email field must be a valid email address")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		fields.Add("password", fmt.Sprintf("the password field must be at least %d characters", minPasswordLength))
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{Name: name, Email: email, PasswordHash: hash}

	err = s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Users.GetByEmail(ctx, email); err == nil {
			return repository.ErrDuplicate
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return repos.Users.Create(ctx, user)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.Logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.Store.Repositories().Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(user)
}

// ListUsers returns every user, for assignee pickers.
func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.Store.Repositories().Users.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}
