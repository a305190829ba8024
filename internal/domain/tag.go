package domain

import (
	"strconv"
	"strings"
)

const DefaultTagColor = "#007bff"

type Tag struct {
	Model
	Name        string  `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Color       string  `gorm:"size:7" json:"color"`
	Description string  `gorm:"size:200" json:"description"`
	UsageCount  int     `gorm:"not null" json:"usage_count"`
	CreatedBy   *uint64 `gorm:"index" json:"created_by"`
}

func (t *Tag) IncrementUsage() { t.UsageCount++ }

func (t *Tag) DecrementUsage() {
	if t.UsageCount > 0 {
		t.UsageCount--
	}
}

// SetColor stores color with a leading '#'.
func (t *Tag) SetColor(color string) {
	if color == "" {
		t.Color = ""
		return
	}
	if !strings.HasPrefix(color, "#") {
		color = "#" + color
	}
	t.Color = color
}

// ColorRGB decodes Color, falling back to the default tag color.
func (t *Tag) ColorRGB() (r, g, b uint8) {
	c := strings.TrimPrefix(t.Color, "#")
	if len(c) != 6 {
		c = strings.TrimPrefix(DefaultTagColor, "#")
	}
	v, err := strconv.ParseUint(c, 16, 32)
	if err != nil {
		v, _ = strconv.ParseUint(strings.TrimPrefix(DefaultTagColor, "#"), 16, 32)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}
