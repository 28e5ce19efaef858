package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validate"
)

// CodeIssuer generates confirmation codes and checks them against stored
// hashes. *auth.CodeService implements it.
type CodeIssuer interface {
	Generate() (code, hash string, err error)
	Verify(hash, code string) error
}

// TokenIssuer signs access tokens. *auth.TokenService implements it.
type TokenIssuer interface {
	Generate(userID int64) (string, error)
}

// AuthService handles registration, confirmation codes and token issuance.
//
// Dependencies:
//   - users   → read/write user records
//   - codes   → confirmation code generation and bcrypt verification
//   - tokens  → JWT signing
//   - sender  → delivers the plaintext confirmation code
type AuthService struct {
	users  repository.UserRepository
	codes  CodeIssuer
	tokens TokenIssuer
	sender auth.CodeSender
	logger *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	codes CodeIssuer,
	tokens TokenIssuer,
	sender auth.CodeSender,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		codes:  codes,
		tokens: tokens,
		sender: sender,
		logger: logger,
	}
}

// Signup registers a user, or re-issues a code to an existing one, and sends
// a fresh confirmation code.
//
// Registration cross-check:
//   - username taken, email new     → "This username already exists"
//   - email taken, username new     → "This email has already been used"
//   - both new                      → create the user
//   - both taken by the same user   → re-issue the code
//
// Both taken by two different users is a conflict.
func (s *AuthService) Signup(ctx context.Context, username, email string) (*model.User, error) {
	if err := validate.Username(username); err != nil {
		return nil, err
	}
	if err := validate.Email(email); err != nil {
		return nil, err
	}

	usernameTaken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking username: %w", err)
	}
	emailTaken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	var user *model.User
	switch {
	case usernameTaken && !emailTaken:
		return nil, apperror.ValidationFailed("username", "This username already exists")
	case emailTaken && !usernameTaken:
		return nil, apperror.ValidationFailed("email", "This email has already been used")
	case usernameTaken && emailTaken:
		user, err = s.users.GetUserByUsername(ctx, username)
		if err != nil {
			return nil, fmt.Errorf("service/auth: loading user %q: %w", username, err)
		}
		if user.Email != email {
			return nil, apperror.Conflict("user", "username and email belong to different accounts")
		}
	default:
		user = &model.User{Username: username, Email: email, Role: model.RoleUser}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
		}
		s.logger.Info("user registered",
			slog.Int64("user_id", user.ID),
			slog.String("username", user.Username),
		)
	}

	if err := s.issueCode(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// issueCode stores the hash of a new code on user and sends the plaintext.
func (s *AuthService) issueCode(ctx context.Context, user *model.User) error {
	code, hash, err := s.codes.Generate()
	if err != nil {
		return fmt.Errorf("service/auth: generating code: %w", err)
	}

	user.ConfirmationCode = hash
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("service/auth: storing code for %q: %w", user.Username, err)
	}

	if err := s.sender.SendCode(ctx, user.Email, user.Username, code); err != nil {
		s.logger.Error("failed to send confirmation code",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("service/auth: sending code: %w", err)
	}
	return nil
}

// IssueToken exchanges a username and confirmation code for an access token.
// An unknown username is NotFound; a wrong code is a validation error on
// confirmation_code.
func (s *AuthService) IssueToken(ctx context.Context, username, code string) (string, error) {
	if username == "" {
		return "", apperror.ValidationFailed("username", "username is required")
	}
	if code == "" {
		return "", apperror.ValidationFailed("confirmation_code", "confirmation_code is required")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if err := s.codes.Verify(user.ConfirmationCode, code); err != nil {
		if errors.Is(err, auth.ErrInvalidCode) {
			s.logger.Warn("invalid confirmation code", slog.String("username", username))
			return "", apperror.ValidationFailed("confirmation_code", "Invalid confirmation code")
		}
		return "", fmt.Errorf("service/auth: verifying code: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return token, nil
}

// CreateSuperuser creates an admin with the superuser flag and returns the
// plaintext confirmation code so an operator can obtain a token. The code is
// also handed to the sender.
func (s *AuthService) CreateSuperuser(ctx context.Context, username, email string) (*model.User, string, error) {
	if err := validate.Username(username); err != nil {
		return nil, "", err
	}
	if err := validate.Email(email); err != nil {
		return nil, "", err
	}

	code, hash, err := s.codes.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("service/auth: generating code: %w", err)
	}

	user := &model.User{
		Username:         username,
		Email:            email,
		Role:             model.RoleAdmin,
		IsSuperuser:      true,
		ConfirmationCode: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", fmt.Errorf("service/auth: creating superuser %q: %w", username, err)
	}

	s.logger.Info("superuser created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	if err := s.sender.SendCode(ctx, user.Email, user.Username, code); err != nil {
		s.logger.Warn("failed to send superuser code", slog.String("error", err.Error()))
	}
	return user, code, nil
}
