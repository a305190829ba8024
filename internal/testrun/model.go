package testrun

import (
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"strings"
)

func Schema() crud.Schema[domain.TestRecord] {
	return crud.Schema[domain.TestRecord]{
		Resource: domain.ResourceTest,
		ID:       func(r *domain.TestRecord) uint64 { return r.ID },
		Fields: map[string]crud.Field[domain.TestRecord]{
			"id":                crud.ReadOnly("id", func(r *domain.TestRecord) any { return r.ID }),
			"prompt_id":         crud.ReadOnly("prompt_id", func(r *domain.TestRecord) any { return r.PromptID }),
			"prompt_version_id": crud.ReadOnly("prompt_version_id", func(r *domain.TestRecord) any { return r.PromptVersionID }),
			"user_id":           crud.ReadOnly("user_id", func(r *domain.TestRecord) any { return r.UserID }),
			"model_name":        crud.ReadOnly("model_name", func(r *domain.TestRecord) any { return r.ModelName }),
			"status":            crud.ReadOnly("status", func(r *domain.TestRecord) any { return r.Status }),
			"response_time_ms":  crud.ReadOnly("response_time_ms", func(r *domain.TestRecord) any { return r.ResponseTimeMs }),
			"created_at":        crud.ReadOnly("created_at", func(r *domain.TestRecord) any { return r.CreatedAt }),
			"notes":             crud.StringField("notes", func(r *domain.TestRecord) *string { return &r.Notes }),
			"rating": {
				Column: "rating",
				Get:    func(r *domain.TestRecord) any { return r.Rating },
				Set: func(r *domain.TestRecord, v any) error {
					var n int
					switch x := v.(type) {
					case int:
						n = x
					case float64:
						n = int(x)
					default:
						return fmt.Errorf("rating: expected integer, got %T", v)
					}
					if !r.SetRating(n, "") {
						return fmt.Errorf("rating must be between 1 and 5")
					}
					return nil
				},
			},
		},
	}
}

// RunInput selects what to run. A zero VersionNumber runs the current
// content and an empty Model uses the default model.
type RunInput struct {
	VersionNumber int     `json:"version_number" binding:"omitempty,min=1"`
	Model         string  `json:"model" binding:"max=100"`
	Input         string  `json:"input"`
	MaxTokens     int     `json:"max_tokens" binding:"omitempty,min=1,max=32000"`
	Temperature   float64 `json:"temperature" binding:"omitempty,min=0,max=2"`
}

type RateInput struct {
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Notes  string `json:"notes" binding:"max=2000"`
}

// Summary aggregates the runs of one prompt.
type Summary struct {
	Total        int64   `json:"total"`
	Succeeded    int64   `json:"succeeded"`
	Failed       int64   `json:"failed"`
	TimedOut     int64   `json:"timed_out"`
	AvgRating    float64 `json:"avg_rating"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	GoodRatings  int64   `json:"good_ratings"`
	Fast         int64   `json:"fast_responses"`
	TotalTokens  int64   `json:"total_tokens"`
	// CostUSD only counts models with a known price.
	CostUSD float64 `json:"estimated_cost_usd"`
}

func errorMessage(err error) string {
	msg := err.Error()
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	return strings.TrimSpace(msg)
}
