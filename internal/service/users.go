package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Skotchmaster/bookshelf/internal/events"
	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/models"
	"github.com/Skotchmaster/bookshelf/internal/password"
	"github.com/Skotchmaster/bookshelf/internal/repo"
	"github.com/Skotchmaster/bookshelf/internal/session"
)

type UserService struct {
	Repo     *repo.GormRepo
	Sessions *session.Manager
	Policy   password.Policy
	Hasher   *password.Hasher
	Events   events.Publisher
}

type RegisterInput struct {
	Name     *string
	Email    *string
	Password *string
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "users.register")

	if in.Name == nil || in.Email == nil || in.Password == nil {
		return nil, fmt.Errorf("%w: missing required fields", ErrValidation)
	}
	name, err := requireText("name", *in.Name, maxNameLen)
	if err != nil {
		return nil, err
	}
	email := NormalizeEmail(*in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.Policy.Validate(*in.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, policyMessage(s.Policy, err))
	}

	if _, err := s.Repo.FindUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := s.Hasher.Hash(*in.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, user.ID, "user_registered", map[string]any{"email": user.Email})
	return user, nil
}

// Login verifies credentials and starts a fresh session. Any session the
// client already held is dropped first.
func (s *UserService) Login(ctx context.Context, email, pw *string, previousSession string) (*models.User, *session.Session, error) {
	if email == nil || pw == nil {
		return nil, nil, fmt.Errorf("%w: missing email or password", ErrValidation)
	}

	user, err := s.Repo.FindUserByEmail(ctx, NormalizeEmail(*email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !s.Hasher.Verify(*pw, user.PasswordHash) {
		return nil, nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	if err := s.Sessions.Invalidate(ctx, previousSession); err != nil {
		logging.FromContext(ctx).Warn("session_invalidate_failed", "error", err)
	}
	sess, err := s.Sessions.Create(ctx, user.ID, user.IsAdmin)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(ctx, user.ID, "user_logged_in", nil)
	return user, sess, nil
}

func (s *UserService) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.Invalidate(ctx, sessionID)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.Repo.ListUsers(ctx)
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

type Actor struct {
	UserID  uint
	IsAdmin bool
}

// ChangePassword lets users change their own password given the current one.
// Admins may reset another user's password without it.
func (s *UserService) ChangePassword(ctx context.Context, actor Actor, id uint, oldPw, newPw *string) error {
	self := actor.UserID == id
	if !self && !actor.IsAdmin {
		return fmt.Errorf("%w: cannot change another user's password", ErrForbidden)
	}
	if newPw == nil || (self && oldPw == nil) {
		return fmt.Errorf("%w: missing password fields", ErrValidation)
	}
	if err := s.Policy.Validate(*newPw); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, policyMessage(s.Policy, err))
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if self && !s.Hasher.Verify(*oldPw, user.PasswordHash) {
		return fmt.Errorf("%w: current password is incorrect", ErrUnauthorized)
	}

	hash, err := s.Hasher.Hash(*newPw)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	s.publish(ctx, user.ID, "user_password_changed", nil)
	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id uint, name, email *string) (*models.User, error) {
	if name == nil || email == nil {
		return nil, fmt.Errorf("%w: missing required fields", ErrValidation)
	}
	n, err := requireText("name", *name, maxNameLen)
	if err != nil {
		return nil, err
	}
	e := NormalizeEmail(*email)
	if err := validateEmail(e); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if e != user.Email {
		if _, err := s.Repo.FindUserByEmail(ctx, e); err == nil {
			return nil, fmt.Errorf("%w: email already exists", ErrConflict)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
	}

	user.Name = n
	user.Email = e
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already exists", ErrConflict)
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.publish(ctx, user.ID, "user_updated", map[string]any{"email": user.Email})
	return user, nil
}

// SetAdmin changes the stored flag only. Live sessions keep the flag they
// were created with until the user logs in again.
func (s *UserService) SetAdmin(ctx context.Context, id uint, isAdmin *bool) (*models.User, error) {
	if isAdmin == nil {
		return nil, fmt.Errorf("%w: isAdmin is required", ErrValidation)
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsAdmin = *isAdmin
	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	s.publish(ctx, user.ID, "user_admin_changed", map[string]any{"is_admin": user.IsAdmin})
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.publish(ctx, id, "user_deleted", nil)
	return nil
}

func (s *UserService) publish(ctx context.Context, id uint, typ string, data map[string]any) {
	if s.Events == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["user_id"] = id
	key := strconv.FormatUint(uint64(id), 10)
	if err := s.Events.Publish(ctx, events.TopicUsers, key, events.New(typ, data)); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_error", "topic", events.TopicUsers, "type", typ, "error", err)
	}
}

func policyMessage(p password.Policy, err error) string {
	if p.MaxLength > 0 {
		return fmt.Sprintf("password must be between %d and %d characters", p.MinLength, p.MaxLength)
	}
	if errors.Is(err, password.ErrTooShort) {
		return fmt.Sprintf("password must be at least %d characters", p.MinLength)
	}
	return err.Error()
}
