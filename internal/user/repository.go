package user

import (
	"context"
	defError "errors"
	"prompt-manager/internal/domain"

	"gorm.io/gorm"
)

// UserRepository defines the lookups the user service needs beyond generic CRUD
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	SetPasswordHash(ctx context.Context, tx *gorm.DB, id uint64, hash string) error
	TouchLastLogin(ctx context.Context, u *domain.User) error
	Search(ctx context.Context, query string, limit int) ([]domain.User, error)
	Statistics(ctx context.Context, id uint64) (Statistics, error)
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, column, value string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&user).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername returns nil without error when no user matches.
func (r *UserRepositoryImpl) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username", username)
}

// FindByEmail returns nil without error when no user matches.
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *UserRepositoryImpl) SetPasswordHash(ctx context.Context, tx *gorm.DB, id uint64, hash string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *UserRepositoryImpl) TouchLastLogin(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Model(u).Update("last_login_at", u.LastLoginAt).Error
}

func (r *UserRepositoryImpl) Search(ctx context.Context, query string, limit int) ([]domain.User, error) {
	users := []domain.User{}
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.UserActive).
		Where("username LIKE ? OR email LIKE ? OR display_name LIKE ?", pattern, pattern, pattern).
		Order("username").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// Statistics counts only live prompts and active collaboration grants.
func (r *UserRepositoryImpl) Statistics(ctx context.Context, id uint64) (Statistics, error) {
	var stats Statistics
	db := r.db.WithContext(ctx)

	counts := []struct {
		dst   *int64
		model any
		where string
		args  []any
	}{
		{&stats.PromptCount, &domain.Prompt{}, "owner_id = ? AND status = ?", []any{id, domain.PromptActive}},
		{&stats.CollaborationCount, &domain.PromptCollaborator{}, "user_id = ? AND status = ?", []any{id, domain.CollaboratorActive}},
		{&stats.CreatedTagsCount, &domain.Tag{}, "created_by = ?", []any{id}},
		{&stats.TestRecordsCount, &domain.TestRecord{}, "user_id = ?", []any{id}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return Statistics{}, err
		}
	}
	return stats, nil
}
