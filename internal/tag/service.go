package tag

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"strings"

	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, userID uint64, in CreateInput) (*domain.Tag, error)
	Get(ctx context.Context, id uint64) (*domain.Tag, error)
	List(ctx context.Context, q crud.Query) (*crud.Page[domain.Tag], error)
	Update(ctx context.Context, id, userID uint64, changes map[string]any) (*domain.Tag, error)
	Delete(ctx context.Context, id, userID uint64) error
}

type DefaultService struct {
	tags *crud.Service[domain.Tag]
}

func NewService(tags *crud.Service[domain.Tag]) Service {
	return &DefaultService{tags: tags}
}

func (s *DefaultService) Create(ctx context.Context, userID uint64, in CreateInput) (*domain.Tag, error) {
	tag := &domain.Tag{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedBy:   &userID,
	}
	tag.SetColor(in.Color)
	if tag.Color == "" {
		tag.Color = domain.DefaultTagColor
	}
	if err := validateTag(tag); err != nil {
		return nil, errors.New(errors.CodeValidationFailed, err.Error(), err)
	}
	if err := s.checkName(ctx, tag.Name, 0); err != nil {
		return nil, err
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// checkName reports TAG_EXISTS when another tag already uses name.
func (s *DefaultService) checkName(ctx context.Context, name string, exceptID uint64) error {
	var existing domain.Tag
	err := s.tags.DB().WithContext(ctx).Where("name = ? AND id <> ?", name, exceptID).First(&existing).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return errors.New(errors.CodeQueryFailed, "failed to check tag name", err)
	}
	return errors.New(errors.CodeTagExists, fmt.Sprintf("tag %q already exists", name), nil)
}

func (s *DefaultService) Get(ctx context.Context, id uint64) (*domain.Tag, error) {
	return s.tags.Get(ctx, id)
}

// List defaults to the most used tags first.
func (s *DefaultService) List(ctx context.Context, q crud.Query) (*crud.Page[domain.Tag], error) {
	if q.OrderBy == "" {
		q.OrderBy = "-usage_count"
	}
	return s.tags.List(ctx, q)
}

func (s *DefaultService) owned(ctx context.Context, id, userID uint64) (*domain.Tag, error) {
	tag, err := s.tags.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag.CreatedBy == nil || *tag.CreatedBy != userID {
		return nil, errors.Forbidden("Only the creator can change this tag", nil)
	}
	return tag, nil
}

func (s *DefaultService) Update(ctx context.Context, id, userID uint64, changes map[string]any) (*domain.Tag, error) {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return nil, err
	}
	if name, ok := changes["name"].(string); ok {
		name = strings.TrimSpace(name)
		if err := s.checkName(ctx, name, id); err != nil {
			return nil, err
		}
		changes["name"] = name
	}
	return s.tags.Update(ctx, id, changes)
}

// Delete removes the tag and unlinks it from every prompt.
func (s *DefaultService) Delete(ctx context.Context, id, userID uint64) error {
	tag, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}

	err = s.tags.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&domain.PromptTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Tag{}, id).Error
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeDeleteFailed, "failed to delete tag")
	}

	s.tags.Record(ctx, domain.OpDelete, id, map[string]any{"name": tag.Name, "usage_count": tag.UsageCount})
	return nil
}
