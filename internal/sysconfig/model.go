package sysconfig

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the settings seeded on first start.
func Defaults() ([]domain.SystemConfig, error) {
	var out []domain.SystemConfig
	if err := yaml.Unmarshal(defaultsYAML, &out); err != nil {
		return nil, fmt.Errorf("parse config defaults: %w", err)
	}
	return out, nil
}

func Schema() crud.Schema[domain.SystemConfig] {
	return crud.Schema[domain.SystemConfig]{
		Resource: domain.ResourceSystemConfig,
		ID:       func(c *domain.SystemConfig) uint64 { return c.ID },
		Validate: validateConfig,
		Fields: map[string]crud.Field[domain.SystemConfig]{
			"id":          crud.ReadOnly("id", func(c *domain.SystemConfig) any { return c.ID }),
			"config_key":  crud.ReadOnly("config_key", func(c *domain.SystemConfig) any { return c.ConfigKey }),
			"config_type": crud.ReadOnly("config_type", func(c *domain.SystemConfig) any { return c.ConfigType }),
			"is_public":   crud.BoolField("is_public", func(c *domain.SystemConfig) *bool { return &c.IsPublic }),
			"description": crud.StringField("description", func(c *domain.SystemConfig) *string { return &c.Description }),
			"config_value": {
				Column: "config_value",
				Get:    func(c *domain.SystemConfig) any { return c.ConfigValue },
				Set:    func(c *domain.SystemConfig, v any) error { return c.SetValue(v) },
			},
		},
	}
}

func validateConfig(c *domain.SystemConfig) error {
	if c.ConfigKey == "" || len(c.ConfigKey) > 100 {
		return fmt.Errorf("config_key must be between 1 and 100 characters")
	}
	v := strings.TrimSpace(c.ConfigValue)
	switch c.ConfigType {
	case domain.ConfigString:
	case domain.ConfigNumber:
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("%s: %q is not a number", c.ConfigKey, c.ConfigValue)
		}
	case domain.ConfigBoolean:
		switch strings.ToLower(v) {
		case "true", "false", "1", "0", "yes", "no", "on", "off":
		default:
			return fmt.Errorf("%s: %q is not a boolean", c.ConfigKey, c.ConfigValue)
		}
	case domain.ConfigJSON:
		if !json.Valid([]byte(v)) {
			return fmt.Errorf("%s: value is not valid json", c.ConfigKey)
		}
	default:
		return fmt.Errorf("unknown config_type %q", c.ConfigType)
	}
	return nil
}

type SetInput struct {
	Value       any               `json:"value"`
	Type        domain.ConfigType `json:"type" binding:"omitempty,oneof=string number boolean json"`
	Description string            `json:"description" binding:"max=500"`
	Public      *bool             `json:"public"`
}
