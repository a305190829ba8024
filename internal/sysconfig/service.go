package sysconfig

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service interface {
	Get(ctx context.Context, key string) (*domain.SystemConfig, error)
	Value(ctx context.Context, key string) (any, error)
	List(ctx context.Context, q crud.Query) (*crud.Page[domain.SystemConfig], error)
	Public(ctx context.Context) (map[string]any, error)
	Set(ctx context.Context, key string, in SetInput) (*domain.SystemConfig, error)
	Delete(ctx context.Context, key string) error
	// Flag reads a boolean setting, falling back to def when it is missing
	// or unreadable.
	Flag(ctx context.Context, key string, def bool) bool
	// Seed inserts the built-in defaults that are not stored yet.
	Seed(ctx context.Context) (int, error)
}

type DefaultService struct {
	configs *crud.Service[domain.SystemConfig]
}

func NewService(configs *crud.Service[domain.SystemConfig]) Service {
	return &DefaultService{configs: configs}
}

func (s *DefaultService) find(ctx context.Context, key string) (*domain.SystemConfig, error) {
	var cfg domain.SystemConfig
	err := s.configs.DB().WithContext(ctx).Where("config_key = ?", key).First(&cfg).Error
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.CodeQueryFailed, "failed to load setting", err)
	}
	return &cfg, nil
}

func (s *DefaultService) Get(ctx context.Context, key string) (*domain.SystemConfig, error) {
	cfg, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errors.NotFound(fmt.Sprintf("setting %q not found", key), nil)
	}
	return cfg, nil
}

func (s *DefaultService) Value(ctx context.Context, key string) (any, error) {
	cfg, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return cfg.Value(), nil
}

func (s *DefaultService) List(ctx context.Context, q crud.Query) (*crud.Page[domain.SystemConfig], error) {
	if q.OrderBy == "" {
		q.OrderBy = "config_key"
	}
	return s.configs.List(ctx, q)
}

// Public returns the decoded values of every public setting by key.
func (s *DefaultService) Public(ctx context.Context) (map[string]any, error) {
	var configs []domain.SystemConfig
	err := s.configs.DB().WithContext(ctx).Where("is_public = ?", true).Order("config_key").Find(&configs).Error
	if err != nil {
		return nil, errors.New(errors.CodeListFailed, "failed to list settings", err)
	}

	out := make(map[string]any, len(configs))
	for i := range configs {
		out[configs[i].ConfigKey] = configs[i].Value()
	}
	return out, nil
}

// Set updates an existing setting or creates it. A new setting without an
// explicit type takes the type of its value.
func (s *DefaultService) Set(ctx context.Context, key string, in SetInput) (*domain.SystemConfig, error) {
	key = strings.TrimSpace(key)
	if in.Value == nil {
		return nil, errors.New(errors.CodeValidationFailed, "value is required", nil)
	}
	existing, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if in.Type != "" && in.Type != existing.ConfigType {
			return nil, errors.New(errors.CodeInvalidState,
				fmt.Sprintf("setting %q is of type %s", key, existing.ConfigType), nil)
		}
		changes := map[string]any{"config_value": in.Value}
		if in.Description != "" {
			changes["description"] = in.Description
		}
		if in.Public != nil {
			changes["is_public"] = *in.Public
		}
		return s.configs.Update(ctx, existing.ID, changes)
	}

	cfg := &domain.SystemConfig{
		ConfigKey:   key,
		ConfigType:  in.Type,
		Description: in.Description,
	}
	if cfg.ConfigType == "" {
		cfg.ConfigType = typeOf(in.Value)
	}
	if in.Public != nil {
		cfg.IsPublic = *in.Public
	}
	if err := cfg.SetValue(in.Value); err != nil {
		return nil, errors.New(errors.CodeValidationFailed, err.Error(), err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, errors.New(errors.CodeValidationFailed, err.Error(), err)
	}
	if err := s.configs.Create(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func typeOf(v any) domain.ConfigType {
	switch v.(type) {
	case bool:
		return domain.ConfigBoolean
	case float64, float32, int, int64:
		return domain.ConfigNumber
	case string:
		return domain.ConfigString
	}
	return domain.ConfigJSON
}

func (s *DefaultService) Delete(ctx context.Context, key string) error {
	cfg, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return s.configs.HardDelete(ctx, cfg.ID)
}

func (s *DefaultService) Flag(ctx context.Context, key string, def bool) bool {
	cfg, err := s.find(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("falling back to default flag value")
		return def
	}
	if cfg == nil || cfg.ConfigType != domain.ConfigBoolean {
		return def
	}
	return cfg.Bool()
}

func (s *DefaultService) Seed(ctx context.Context) (int, error) {
	defaults, err := Defaults()
	if err != nil {
		return 0, err
	}

	var inserted int64
	err = s.configs.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range defaults {
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "config_key"}}, DoNothing: true}).
				Create(&defaults[i])
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, errors.New(errors.CodeBulkCreateFailed, "failed to seed settings", err)
	}

	if inserted > 0 {
		s.configs.Record(ctx, domain.OpBulkCreate, 0, map[string]any{"count": inserted})
	}
	return int(inserted), nil
}
