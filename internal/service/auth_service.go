package service

import (
	"context"
	"fmt"

	"chirp/internal/auth"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"
	"chirp/internal/validation"
)

// AuthService registers users, exchanges credentials for bearer tokens and
// resolves bearer tokens back to users.
type AuthService struct {
	users  repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
}

// RegisterInput is the payload of POST /users.
type RegisterInput struct {
	Email    string
	Password string
}

func NewAuthService(users repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register validates the payload, hashes the password and stores the user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Email: in.Email, Password: hashed}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// Login returns a fresh access token. Unknown email and wrong password fail
// identically, and both spend one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (token string, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Login")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !models.IsCode(err, models.CodeNotFound) {
			return "", err
		}
		s.hasher.Burn(password)
		observability.RecordAuthFailure("unknown_email")
		return "", models.NewInvalidCredentialsError()
	}

	if !s.hasher.Verify(password, user.Password) {
		observability.RecordAuthFailure("wrong_password")
		return "", models.NewInvalidCredentialsError()
	}

	token, err = s.tokens.Issue(user.ID)
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("issue token: %w", err))
	}
	return token, nil
}

// Resolve maps a bearer token to the user it names.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		observability.RecordAuthFailure("invalid_token")
		return nil, models.NewUnauthenticatedError("Could not validate credentials")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			observability.RecordAuthFailure("unknown_user")
			return nil, models.NewUnauthenticatedError("User not found")
		}
		return nil, err
	}
	return user, nil
}
