package user

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/auth"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/utils"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service defines the interface for user business logic
type Service interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (*domain.User, error)
	ChangePassword(ctx context.Context, id uint64, oldPassword, newPassword string) error
	GetUserByID(ctx context.Context, id uint64) (*domain.User, error)
	GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uint64, changes map[string]any) (*domain.User, error)
	UpdatePreferences(ctx context.Context, id uint64, prefs map[string]any) (*domain.User, error)
	Statistics(ctx context.Context, id uint64) (*Statistics, error)
	ActivateUser(ctx context.Context, id uint64) error
	DeactivateUser(ctx context.Context, id uint64) error
	DeleteUser(ctx context.Context, id uint64) error
	SearchUsers(ctx context.Context, query string) ([]domain.SafeUser, error)
}

type Options struct {
	MinPasswordLength int
	// RegistrationOpen is consulted on every Register call; nil means open.
	RegistrationOpen func(ctx context.Context) bool
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
	crud       *crud.Service[domain.User]
	hasher     auth.Hasher
	opts       Options
}

// NewService creates a new user service
func NewService(repository UserRepository, users *crud.Service[domain.User], hasher auth.Hasher, opts Options) Service {
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 8
	}
	return &DefaultService{repository: repository, crud: users, hasher: hasher, opts: opts}
}

// Register creates an active user. The row is written first and the
// password hash is set in a second statement of the same transaction.
func (s *DefaultService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if s.opts.RegistrationOpen != nil && !s.opts.RegistrationOpen(ctx) {
		return nil, errors.New(errors.CodeRegistrationDisabled, "registration is disabled", nil)
	}
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	existing, err := s.repository.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if existing != nil {
		return nil, errors.New(errors.CodeUsernameExists, "username already exists", nil)
	}
	existing, err = s.repository.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if existing != nil {
		return nil, errors.New(errors.CodeEmailExists, "email already registered", nil)
	}
	if err := s.checkPassword(in.Password); err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:    in.Username,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Status:      domain.UserActive,
	}
	if user.DisplayName == "" {
		user.DisplayName = in.Username
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, errors.New(errors.CodeCreateFailed, "failed to create user", err)
	}

	err = s.crud.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return errors.New(errors.CodeCreateFailed, "failed to create user", err)
		}
		user.PasswordHash = hash
		return s.repository.SetPasswordHash(ctx, tx, user.ID, hash)
	})
	if err != nil {
		return nil, err
	}

	s.crud.Record(audit.WithUser(ctx, user.ID), domain.OpCreate, user.ID, map[string]any{"username": user.Username, "email": user.Email})
	log.Ctx(ctx).Info().Uint64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

// Login returns (nil, nil) for an unknown identity or a wrong password, and
// ACCOUNT_DISABLED for an account that is not active.
func (s *DefaultService) Login(ctx context.Context, usernameOrEmail, password string) (*domain.User, error) {
	user, err := s.GetByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return nil, err
	}
	if user == nil {
		log.Ctx(ctx).Warn().Str("login", usernameOrEmail).Msg("login failed: unknown user")
		return nil, nil
	}
	if !user.IsActive() {
		log.Ctx(ctx).Warn().Uint64("user_id", user.ID).Msg("login failed: account disabled")
		return nil, errors.New(errors.CodeAccountDisabled, "account is disabled", nil)
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		log.Ctx(ctx).Warn().Uint64("user_id", user.ID).Msg("login failed: wrong password")
		return nil, nil
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.repository.TouchLastLogin(ctx, user); err != nil {
		return nil, errors.New(errors.CodeUpdateFailed, "failed to record login", err)
	}

	s.crud.Record(audit.WithUser(ctx, user.ID), domain.OpLogin, user.ID, nil)
	return user, nil
}

func (s *DefaultService) ChangePassword(ctx context.Context, id uint64, oldPassword, newPassword string) error {
	user, err := s.crud.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return errors.New(errors.CodeInvalidOldPassword, "old password is incorrect", nil)
	}
	if err := s.checkPassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return errors.New(errors.CodeUpdateFailed, "failed to change password", err)
	}
	err = s.crud.Transaction(ctx, func(tx *gorm.DB) error {
		return s.repository.SetPasswordHash(ctx, tx, id, hash)
	})
	if err != nil {
		return err
	}

	s.crud.Record(ctx, domain.OpUpdate, id, map[string]any{"field": "password"})
	return nil
}

func (s *DefaultService) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	return s.crud.Get(ctx, id)
}

// GetByUsernameOrEmail tries the username first, then the email.
func (s *DefaultService) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	user, err := s.repository.FindByUsername(ctx, usernameOrEmail)
	if err == nil && user == nil {
		user, err = s.repository.FindByEmail(ctx, usernameOrEmail)
	}
	if err != nil {
		return nil, errors.New(errors.CodeQueryFailed, "failed to load user", err)
	}
	return user, nil
}

// UpdateProfile only touches display_name, bio and avatar_url.
func (s *DefaultService) UpdateProfile(ctx context.Context, id uint64, changes map[string]any) (*domain.User, error) {
	allowed := make(map[string]any, len(profileFields))
	for _, name := range profileFields {
		if v, ok := changes[name]; ok {
			allowed[name] = v
		}
	}
	return s.crud.Update(ctx, id, allowed)
}

// UpdatePreferences replaces the whole preference map.
func (s *DefaultService) UpdatePreferences(ctx context.Context, id uint64, prefs map[string]any) (*domain.User, error) {
	var user domain.User
	err := s.crud.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			if defError.Is(err, gorm.ErrRecordNotFound) {
				return errors.NotFound(fmt.Sprintf("user %d not found", id), err)
			}
			return err
		}
		user.ReplacePreferences(prefs)
		return tx.Model(&user).Update("preferences", user.Preferences).Error
	})
	if err != nil {
		return nil, err
	}

	s.crud.Record(ctx, domain.OpUpdate, id, map[string]any{"preferences": prefs})
	return &user, nil
}

func (s *DefaultService) Statistics(ctx context.Context, id uint64) (*Statistics, error) {
	user, err := s.crud.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.repository.Statistics(ctx, id)
	if err != nil {
		return nil, errors.New(errors.CodeCountFailed, "failed to collect statistics", err)
	}
	stats.LastLoginAt = user.LastLoginAt
	stats.AccountCreatedAt = user.CreatedAt
	stats.IsActive = user.IsActive()
	return &stats, nil
}

func (s *DefaultService) ActivateUser(ctx context.Context, id uint64) error {
	return s.setStatus(ctx, id, domain.UserActive, domain.OpActivate)
}

func (s *DefaultService) DeactivateUser(ctx context.Context, id uint64) error {
	return s.setStatus(ctx, id, domain.UserDisabled, domain.OpDeactivate)
}

func (s *DefaultService) setStatus(ctx context.Context, id uint64, status domain.UserStatus, op string) error {
	err := s.crud.Transaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{}).Where("id = ?", id).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.NotFound(fmt.Sprintf("user %d not found", id), nil)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.crud.Record(ctx, op, id, nil)
	return nil
}

// DeleteUser soft-deletes the account.
func (s *DefaultService) DeleteUser(ctx context.Context, id uint64) error {
	return s.crud.Delete(ctx, id)
}

func (s *DefaultService) SearchUsers(ctx context.Context, query string) ([]domain.SafeUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SafeUser{}, nil
	}

	users, err := s.repository.Search(ctx, query, 20)
	if err != nil {
		return nil, errors.New(errors.CodeListFailed, "failed to search users", err)
	}
	out := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToSafeUser())
	}
	return out, nil
}

func (s *DefaultService) checkPassword(password string) error {
	if len(password) < s.opts.MinPasswordLength {
		return errors.New(errors.CodePasswordTooShort,
			fmt.Sprintf("password must be at least %d characters", s.opts.MinPasswordLength), nil)
	}
	return nil
}
