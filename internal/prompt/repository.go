package prompt

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mutation changes a locked prompt and returns the version to persist, or
// nil when nothing needs writing.
type Mutation func(p *domain.Prompt) (*domain.PromptVersion, error)

type PromptRepository interface {
	Create(ctx context.Context, p *domain.Prompt, tagIDs []uint64) error
	Load(ctx context.Context, id uint64) (*domain.Prompt, error)
	Revise(ctx context.Context, id uint64, mutate Mutation) (*domain.Prompt, *domain.PromptVersion, error)
	Versions(ctx context.Context, promptID uint64) ([]domain.PromptVersion, error)
	SetStatus(ctx context.Context, id uint64, status domain.PromptStatus) error
	Purge(ctx context.Context, id uint64) error
	AttachTag(ctx context.Context, promptID, tagID uint64) (bool, error)
	DetachTag(ctx context.Context, promptID, tagID uint64) (bool, error)
	Grant(ctx context.Context, promptID, userID uint64) (*domain.PromptCollaborator, error)
	Grants(ctx context.Context, promptID uint64) ([]domain.PromptCollaborator, error)
	PendingInvitations(ctx context.Context, userID uint64) ([]domain.PromptCollaborator, error)
	ActiveUserExists(ctx context.Context, id uint64) (bool, error)
}

type PromptRepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) PromptRepository {
	return &PromptRepositoryImpl{db: db}
}

// Create inserts the prompt with its seeded versions and attaches tags, all
// in one transaction.
func (r *PromptRepositoryImpl) Create(ctx context.Context, p *domain.Prompt, tagIDs []uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Owner", "Tags", "Collaborators", "TestRecords").Create(p).Error; err != nil {
			return errors.New(errors.CodeCreateFailed, "failed to create prompt", err)
		}
		for _, tagID := range tagIDs {
			if _, err := attachTag(tx, p.ID, tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load returns the prompt with its collaborators and tags, or nil when the
// id is unknown.
func (r *PromptRepositoryImpl) Load(ctx context.Context, id uint64) (*domain.Prompt, error) {
	var p domain.Prompt
	err := r.db.WithContext(ctx).
		Preload("Collaborators").
		Preload("Tags").
		First(&p, id).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.CodeQueryFailed, "failed to load prompt", err)
	}
	return &p, nil
}

// Revise locks the prompt row, loads its versions and grants, applies
// mutate, and persists the new version. Every other version loses the
// current flag in the same transaction.
func (r *PromptRepositoryImpl) Revise(ctx context.Context, id uint64, mutate Mutation) (*domain.Prompt, *domain.PromptVersion, error) {
	var (
		p       domain.Prompt
		version *domain.PromptVersion
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound(fmt.Sprintf("prompt %d not found", id), err)
		}
		if err != nil {
			return err
		}
		if err := tx.Where("prompt_id = ?", id).Order("version_number").Find(&p.Versions).Error; err != nil {
			return err
		}
		if err := tx.Where("prompt_id = ?", id).Find(&p.Collaborators).Error; err != nil {
			return err
		}

		v, err := mutate(&p)
		if err != nil || v == nil {
			return err
		}
		if !v.ValidateVersionNumber() || !v.ValidateContentHash() {
			return errors.New(errors.CodeInvalidState, fmt.Sprintf("version %d of prompt %d is inconsistent", v.VersionNumber, id), nil)
		}

		if err := tx.Model(&domain.PromptVersion{}).
			Where("prompt_id = ? AND is_current = ?", id, true).
			Update("is_current", false).Error; err != nil {
			return err
		}
		v.PromptID = id
		if err := tx.Omit(clause.Associations).Create(v).Error; err != nil {
			return err
		}
		if err := tx.Model(&p).Omit(clause.Associations).Updates(map[string]any{
			"content":       p.Content,
			"content_hash":  p.ContentHash,
			"version_count": p.VersionCount,
		}).Error; err != nil {
			return err
		}

		version = v
		return nil
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeUpdateFailed, "failed to update prompt content")
	}
	return &p, version, nil
}

// Versions lists the versions of a prompt, newest first.
func (r *PromptRepositoryImpl) Versions(ctx context.Context, promptID uint64) ([]domain.PromptVersion, error) {
	versions := []domain.PromptVersion{}
	err := r.db.WithContext(ctx).
		Where("prompt_id = ?", promptID).
		Order("version_number DESC").
		Find(&versions).Error
	if err != nil {
		return nil, errors.New(errors.CodeListFailed, "failed to list versions", err)
	}
	return versions, nil
}

func (r *PromptRepositoryImpl) SetStatus(ctx context.Context, id uint64, status domain.PromptStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Prompt{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return errors.New(errors.CodeUpdateFailed, "failed to update prompt status", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.NotFound(fmt.Sprintf("prompt %d not found", id), nil)
	}
	return nil
}

// Purge removes the prompt row. Versions, grants and test records go with
// it through their foreign keys; tag links are released first.
func (r *PromptRepositoryImpl) Purge(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tagIDs []uint64
		if err := tx.Model(&domain.PromptTag{}).Where("prompt_id = ?", id).Pluck("tag_id", &tagIDs).Error; err != nil {
			return err
		}
		if len(tagIDs) > 0 {
			if err := releaseTags(tx, tagIDs...); err != nil {
				return err
			}
			if err := tx.Where("prompt_id = ?", id).Delete(&domain.PromptTag{}).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&domain.Prompt{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.NotFound(fmt.Sprintf("prompt %d not found", id), nil)
		}
		return nil
	})
	return errors.Wrap(err, errors.CodeDeleteFailed, "failed to delete prompt")
}

// AttachTag links a tag and bumps its usage counter. It reports false when
// the link already existed.
func (r *PromptRepositoryImpl) AttachTag(ctx context.Context, promptID, tagID uint64) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		added, err = attachTag(tx, promptID, tagID)
		return err
	})
	return added, errors.Wrap(err, errors.CodeUpdateFailed, "failed to attach tag")
}

func (r *PromptRepositoryImpl) DetachTag(ctx context.Context, promptID, tagID uint64) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("prompt_id = ? AND tag_id = ?", promptID, tagID).Delete(&domain.PromptTag{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return releaseTags(tx, tagID)
	})
	return removed, errors.Wrap(err, errors.CodeUpdateFailed, "failed to detach tag")
}

func attachTag(tx *gorm.DB, promptID, tagID uint64) (bool, error) {
	var count int64
	if err := tx.Model(&domain.Tag{}).Where("id = ?", tagID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, errors.NotFound(fmt.Sprintf("tag %d not found", tagID), nil)
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&domain.PromptTag{
		PromptID:  promptID,
		TagID:     tagID,
		CreatedAt: time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, tx.Model(&domain.Tag{}).Where("id = ?", tagID).
		Update("usage_count", gorm.Expr("usage_count + 1")).Error
}

func releaseTags(tx *gorm.DB, tagIDs ...uint64) error {
	return tx.Model(&domain.Tag{}).Where("id IN ?", tagIDs).
		Update("usage_count", gorm.Expr("CASE WHEN usage_count > 0 THEN usage_count - 1 ELSE 0 END")).Error
}

// Grant returns the grant userID holds on promptID in any status, or nil.
func (r *PromptRepositoryImpl) Grant(ctx context.Context, promptID, userID uint64) (*domain.PromptCollaborator, error) {
	var c domain.PromptCollaborator
	err := r.db.WithContext(ctx).Where("prompt_id = ? AND user_id = ?", promptID, userID).First(&c).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.CodeQueryFailed, "failed to load collaborator", err)
	}
	return &c, nil
}

func (r *PromptRepositoryImpl) Grants(ctx context.Context, promptID uint64) ([]domain.PromptCollaborator, error) {
	grants := []domain.PromptCollaborator{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("prompt_id = ? AND status <> ?", promptID, domain.CollaboratorRejected).
		Order("role, id").
		Find(&grants).Error
	if err != nil {
		return nil, errors.New(errors.CodeListFailed, "failed to list collaborators", err)
	}
	return grants, nil
}

func (r *PromptRepositoryImpl) PendingInvitations(ctx context.Context, userID uint64) ([]domain.PromptCollaborator, error) {
	grants := []domain.PromptCollaborator{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.CollaboratorPending).
		Order("invited_at DESC").
		Find(&grants).Error
	if err != nil {
		return nil, errors.New(errors.CodeListFailed, "failed to list invitations", err)
	}
	return grants, nil
}

func (r *PromptRepositoryImpl) ActiveUserExists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND status = ?", id, domain.UserActive).
		Count(&count).Error
	if err != nil {
		return false, errors.New(errors.CodeQueryFailed, "failed to load user", err)
	}
	return count > 0, nil
}

// VisibleTo limits a prompt query to live prompts userID may view.
func VisibleTo(userID uint64) crud.Scope {
	return func(db *gorm.DB) *gorm.DB {
		grants := db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.PromptCollaborator{}).
			Select("prompt_id").
			Where("user_id = ? AND status = ?", userID, domain.CollaboratorActive)
		return db.
			Where("status <> ?", domain.PromptDeleted).
			Where(
				db.Session(&gorm.Session{NewDB: true}).
					Where("owner_id = ?", userID).
					Or("visibility = ?", domain.VisibilityPublic).
					Or("visibility = ? AND id IN (?)", domain.VisibilityCollaborators, grants),
			)
	}
}

// WithTag keeps prompts linked to tagID.
func WithTag(tagID uint64) crud.Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.PromptTag{}).Select("prompt_id").Where("tag_id = ?", tagID))
	}
}

// Matching keeps prompts whose title or description contains term.
func Matching(term string) crud.Scope {
	pattern := "%" + term + "%"
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}
}
