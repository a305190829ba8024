package domain

import (
	"time"

	"gorm.io/datatypes"
)

type TestStatus int

const (
	TestFailed  TestStatus = 0
	TestSuccess TestStatus = 1
	TestTimeout TestStatus = 2
)

func (s TestStatus) String() string {
	switch s {
	case TestSuccess:
		return "success"
	case TestTimeout:
		return "timeout"
	}
	return "failed"
}

const (
	DefaultFastResponse = 5 * time.Second
	DefaultGoodRating   = 4
)

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Pricing is the per-token price of a model in USD.
type Pricing struct {
	PromptPerToken     float64
	CompletionPerToken float64
}

// TestRecord logs one model invocation against a prompt.
type TestRecord struct {
	Model
	PromptID        uint64                          `gorm:"not null;index" json:"prompt_id"`
	PromptVersionID *uint64                         `gorm:"index" json:"prompt_version_id"`
	PromptVersion   *PromptVersion                  `gorm:"foreignKey:PromptVersionID;constraint:OnDelete:SET NULL" json:"-"`
	UserID          uint64                          `gorm:"not null;index" json:"user_id"`
	ModelName       string                          `gorm:"size:100;not null" json:"model_name"`
	InputText       string                          `gorm:"type:text" json:"input_text"`
	OutputText      string                          `gorm:"type:text" json:"output_text"`
	ResponseTimeMs  int64                           `json:"response_time_ms"`
	TokenUsage      datatypes.JSONType[TokenUsage] `json:"token_usage"`
	Rating          *int                            `json:"rating"`
	Notes           string                          `gorm:"type:text" json:"notes"`
	Status          TestStatus                      `gorm:"not null;index" json:"status"`
	ErrorMessage    string                          `gorm:"type:text" json:"error_message"`
}

func (r *TestRecord) IsSuccess() bool { return r.Status == TestSuccess }

func (r *TestRecord) TotalTokens() int {
	u := r.TokenUsage.Data()
	return u.PromptTokens + u.CompletionTokens
}

func (r *TestRecord) CostEstimate(p *Pricing) float64 {
	if p == nil {
		return 0
	}
	u := r.TokenUsage.Data()
	return float64(u.PromptTokens)*p.PromptPerToken + float64(u.CompletionTokens)*p.CompletionPerToken
}

func (r *TestRecord) ResponseTime() time.Duration {
	return time.Duration(r.ResponseTimeMs) * time.Millisecond
}

func (r *TestRecord) IsFastResponse(threshold time.Duration) bool {
	return r.ResponseTime() < threshold
}

// SetRating stores rating and notes; ratings outside 1..5 are ignored.
func (r *TestRecord) SetRating(rating int, notes string) bool {
	if rating < 1 || rating > 5 {
		return false
	}
	r.Rating = &rating
	if notes != "" {
		r.Notes = notes
	}
	return true
}

func (r *TestRecord) IsGoodRating(threshold int) bool {
	return r.Rating != nil && *r.Rating >= threshold
}
