package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validate"
)

// UserInput carries the writable user fields. Nil means "not supplied", so
// the same type serves create and partial update.
type UserInput struct {
	Username  *string `json:"username"   validate:"omitnil,max=150,username,notme"`
	Email     *string `json:"email"      validate:"omitnil,max=254,email"`
	FirstName *string `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string `json:"last_name"  validate:"omitnil,max=150"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"       validate:"omitnil,role"`
}

var _ auth.UserLoader = (*UserService)(nil)

// UserService implements the administrator's user management and the
// self-service profile endpoints.
type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) List(ctx context.Context, search string, opts repository.ListOptions) (*Page[model.User], error) {
	users, total, err := s.users.ListUsers(ctx, search, opts)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing users: %w", err)
	}
	return &Page[model.User]{Count: total, Results: users}, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetUserByUsername(ctx, username)
}

// GetUserByID resolves a token subject. The auth middleware uses it to load
// the requesting user.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// Create adds a user on behalf of an administrator. Username and email are
// required; role defaults to "user".
func (s *UserService) Create(ctx context.Context, in UserInput) (*model.User, error) {
	if in.Username == nil {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if in.Email == nil {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := validate.Username(*in.Username); err != nil {
		return nil, err
	}
	if err := validate.Email(*in.Email); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, nil, in); err != nil {
		return nil, err
	}

	user := &model.User{Role: model.RoleUser}
	apply(user, in, true)

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: creating %q: %w", user.Username, err)
	}

	s.logger.Info("user created",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Update applies a partial update to the user named username. allowRole is
// false on the self-service endpoint, where a submitted role is ignored.
func (s *UserService) Update(ctx context.Context, username string, in UserInput, allowRole bool) (*model.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Username != nil {
		if err := validate.Username(*in.Username); err != nil {
			return nil, err
		}
	}
	if in.Email != nil {
		if err := validate.Email(*in.Email); err != nil {
			return nil, err
		}
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, user, in); err != nil {
		return nil, err
	}

	apply(user, in, allowRole)

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/user: updating %q: %w", username, err)
	}

	s.logger.Info("user updated",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, username string) error {
	if err := s.users.DeleteUser(ctx, username); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("username", username))
	return nil
}

// checkUnique rejects a username or email already used by another account.
// current is nil on create.
func (s *UserService) checkUnique(ctx context.Context, current *model.User, in UserInput) error {
	if in.Username != nil && (current == nil || *in.Username != current.Username) {
		taken, err := s.users.UsernameExists(ctx, *in.Username)
		if err != nil {
			return fmt.Errorf("service/user: checking username: %w", err)
		}
		if taken {
			return apperror.ValidationFailed("username", "A user with that username already exists.")
		}
	}
	if in.Email != nil && (current == nil || *in.Email != current.Email) {
		taken, err := s.users.EmailExists(ctx, *in.Email)
		if err != nil {
			return fmt.Errorf("service/user: checking email: %w", err)
		}
		if taken {
			return apperror.ValidationFailed("email", "A user with that email already exists.")
		}
	}
	return nil
}

func apply(user *model.User, in UserInput, allowRole bool) {
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if allowRole && in.Role != nil {
		user.Role = model.Role(*in.Role)
	}
}
