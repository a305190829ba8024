package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ConfigType string

const (
	ConfigString  ConfigType = "string"
	ConfigNumber  ConfigType = "number"
	ConfigBoolean ConfigType = "boolean"
	ConfigJSON    ConfigType = "json"
)

type SystemConfig struct {
	Model
	ConfigKey   string     `gorm:"size:100;uniqueIndex;not null" json:"config_key" yaml:"key"`
	ConfigValue string     `gorm:"type:text" json:"config_value" yaml:"value"`
	ConfigType  ConfigType `gorm:"size:20;not null" json:"config_type" yaml:"type"`
	Description string     `gorm:"size:500" json:"description" yaml:"description"`
	IsPublic    bool       `gorm:"not null" json:"is_public" yaml:"public"`
}

// Value decodes ConfigValue according to ConfigType. Malformed numbers
// decode to 0 and malformed json to an empty object.
func (c *SystemConfig) Value() any {
	switch c.ConfigType {
	case ConfigBoolean:
		switch strings.ToLower(strings.TrimSpace(c.ConfigValue)) {
		case "true", "1", "yes", "on":
			return true
		}
		return false
	case ConfigNumber:
		s := strings.TrimSpace(c.ConfigValue)
		if strings.Contains(s, ".") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return int64(0)
			}
			return f
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return int64(0)
		}
		return n
	case ConfigJSON:
		var v any
		if err := json.Unmarshal([]byte(c.ConfigValue), &v); err != nil || v == nil {
			return map[string]any{}
		}
		return v
	}
	return c.ConfigValue
}

// SetValue encodes v into ConfigValue.
func (c *SystemConfig) SetValue(v any) error {
	if c.ConfigType == ConfigJSON {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.ConfigValue = string(b)
		return nil
	}
	switch t := v.(type) {
	case string:
		c.ConfigValue = t
	case bool:
		c.ConfigValue = strconv.FormatBool(t)
	case float64:
		c.ConfigValue = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		c.ConfigValue = fmt.Sprint(t)
	}
	return nil
}

func (c *SystemConfig) Bool() bool {
	b, _ := c.Value().(bool)
	return b
}
