package testrun

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/llm"
	"prompt-manager/internal/metrics"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Prompts is the part of the prompt service a test run needs.
type Prompts interface {
	Viewable(ctx context.Context, id, userID uint64) (*domain.Prompt, error)
	Version(ctx context.Context, id, userID uint64, versionNumber int) (*domain.PromptVersion, error)
	Versions(ctx context.Context, id, userID uint64) ([]domain.PromptVersion, error)
}

type Service interface {
	Run(ctx context.Context, promptID, userID uint64, in RunInput) (*domain.TestRecord, error)
	Get(ctx context.Context, id, userID uint64) (*domain.TestRecord, error)
	List(ctx context.Context, promptID, userID uint64, q crud.Query) (*crud.Page[domain.TestRecord], error)
	Rate(ctx context.Context, id, userID uint64, in RateInput) (*domain.TestRecord, error)
	Summary(ctx context.Context, promptID, userID uint64) (*Summary, error)
}

type DefaultService struct {
	prompts Prompts
	records *crud.Service[domain.TestRecord]
	runner  llm.Runner
	timeout time.Duration
	now     func() time.Time
}

func NewService(prompts Prompts, records *crud.Service[domain.TestRecord], runner llm.Runner, timeout time.Duration) Service {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &DefaultService{
		prompts: prompts,
		records: records,
		runner:  runner,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run executes the prompt once and records the outcome. Model failures are
// recorded as failed or timed out runs rather than returned; only an unknown
// model is rejected before anything is stored.
func (s *DefaultService) Run(ctx context.Context, promptID, userID uint64, in RunInput) (*domain.TestRecord, error) {
	p, err := s.prompts.Viewable(ctx, promptID, userID)
	if err != nil {
		return nil, err
	}
	version, err := s.target(ctx, p, userID, in.VersionNumber)
	if err != nil {
		return nil, err
	}

	model := in.Model
	if d, ok := s.runner.(interface{ DefaultModel() string }); ok && model == "" {
		model = d.DefaultModel()
	}
	req := llm.Request{
		Model:       model,
		Prompt:      version.Content,
		Input:       in.Input,
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	res, runErr := s.runner.Run(runCtx, req)
	elapsed := time.Since(start)
	cancel()

	if errors.HasCode(runErr, errors.CodeModelUnavailable) {
		return nil, runErr
	}

	rec := &domain.TestRecord{
		PromptID:        p.ID,
		PromptVersionID: &version.ID,
		UserID:          userID,
		ModelName:       model,
		InputText:       in.Input,
		ResponseTimeMs:  elapsed.Milliseconds(),
	}
	switch {
	case runErr == nil:
		rec.Status = domain.TestSuccess
		if res.Model != "" {
			rec.ModelName = res.Model
		}
		rec.OutputText = res.Output
		rec.TokenUsage = datatypes.NewJSONType(res.Usage)
	case defError.Is(runErr, context.DeadlineExceeded):
		rec.Status = domain.TestTimeout
		rec.ErrorMessage = fmt.Sprintf("model did not answer within %s", s.timeout)
	default:
		rec.Status = domain.TestFailed
		rec.ErrorMessage = errorMessage(runErr)
	}
	if err := s.persist(ctx, rec); err != nil {
		return nil, err
	}

	metrics.RecordModelRun(rec.ModelName, rec.Status.String(), elapsed)
	detail := map[string]any{
		"prompt_id":      p.ID,
		"version_number": version.VersionNumber,
		"model":          rec.ModelName,
		"status":         rec.Status.String(),
	}
	if rec.IsSuccess() {
		detail["tokens"] = rec.TotalTokens()
		detail["cost_usd"] = rec.CostEstimate(llm.PricingFor(rec.ModelName))
	}
	s.records.Record(ctx, domain.OpTest, rec.ID, detail)
	log.Ctx(ctx).Info().
		Uint64("prompt_id", p.ID).
		Str("model", rec.ModelName).
		Str("status", rec.Status.String()).
		Dur("elapsed", elapsed).
		Msg("test run finished")
	return rec, nil
}

func (s *DefaultService) target(ctx context.Context, p *domain.Prompt, userID uint64, versionNumber int) (*domain.PromptVersion, error) {
	if versionNumber > 0 {
		return s.prompts.Version(ctx, p.ID, userID, versionNumber)
	}
	versions, err := s.prompts.Versions(ctx, p.ID, userID)
	if err != nil {
		return nil, err
	}
	for i := range versions {
		if versions[i].IsCurrent {
			return &versions[i], nil
		}
	}
	return nil, errors.New(errors.CodeInvalidState, "prompt has no current version", nil)
}

// persist stores the record and bumps the prompt's test counters together.
func (s *DefaultService) persist(ctx context.Context, rec *domain.TestRecord) error {
	err := s.records.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(rec).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Prompt{}).Where("id = ?", rec.PromptID).Updates(map[string]any{
			"test_count":     gorm.Expr("test_count + 1"),
			"last_tested_at": s.now(),
		}).Error
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Uint64("prompt_id", rec.PromptID).Msg("failed to store test record")
		return errors.Wrap(err, errors.CodeCreateFailed, "failed to store test record")
	}
	return nil
}

func (s *DefaultService) Get(ctx context.Context, id, userID uint64) (*domain.TestRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.prompts.Viewable(ctx, rec.PromptID, userID); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns the runs of one prompt, newest first unless ordered otherwise.
func (s *DefaultService) List(ctx context.Context, promptID, userID uint64, q crud.Query) (*crud.Page[domain.TestRecord], error) {
	if _, err := s.prompts.Viewable(ctx, promptID, userID); err != nil {
		return nil, err
	}
	q.Scopes = append(q.Scopes, func(db *gorm.DB) *gorm.DB {
		return db.Where("prompt_id = ?", promptID)
	})
	if q.OrderBy == "" {
		q.OrderBy = "-created_at"
	}
	return s.records.List(ctx, q)
}

// Rate is limited to the user who ran the test.
func (s *DefaultService) Rate(ctx context.Context, id, userID uint64, in RateInput) (*domain.TestRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, errors.Forbidden("Only the user who ran this test can rate it", nil)
	}

	changes := map[string]any{"rating": in.Rating}
	if in.Notes != "" {
		changes["notes"] = in.Notes
	}
	return s.records.Update(ctx, id, changes)
}

func (s *DefaultService) Summary(ctx context.Context, promptID, userID uint64) (*Summary, error) {
	if _, err := s.prompts.Viewable(ctx, promptID, userID); err != nil {
		return nil, err
	}

	var row struct {
		Total        int64
		Succeeded    int64
		Failed       int64
		TimedOut     int64
		AvgRating    *float64
		AvgLatencyMs *float64
	}
	err := s.records.DB().WithContext(ctx).Model(&domain.TestRecord{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS succeeded,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS failed,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS timed_out,
			AVG(rating) AS avg_rating,
			AVG(response_time_ms) AS avg_latency_ms`,
			domain.TestSuccess, domain.TestFailed, domain.TestTimeout).
		Where("prompt_id = ?", promptID).
		Scan(&row).Error
	if err != nil {
		return nil, errors.New(errors.CodeQueryFailed, "failed to summarize test runs", err)
	}

	out := &Summary{Total: row.Total, Succeeded: row.Succeeded, Failed: row.Failed, TimedOut: row.TimedOut}
	if row.AvgRating != nil {
		out.AvgRating = *row.AvgRating
	}
	if row.AvgLatencyMs != nil {
		out.AvgLatencyMs = *row.AvgLatencyMs
	}

	var records []domain.TestRecord
	err = s.records.DB().WithContext(ctx).
		Select("model_name", "status", "token_usage", "rating", "response_time_ms").
		Where("prompt_id = ?", promptID).
		Find(&records).Error
	if err != nil {
		return nil, errors.New(errors.CodeQueryFailed, "failed to summarize test runs", err)
	}
	for i := range records {
		r := &records[i]
		if r.IsGoodRating(domain.DefaultGoodRating) {
			out.GoodRatings++
		}
		if !r.IsSuccess() {
			continue
		}
		if r.IsFastResponse(domain.DefaultFastResponse) {
			out.Fast++
		}
		out.TotalTokens += int64(r.TotalTokens())
		out.CostUSD += r.CostEstimate(llm.PricingFor(r.ModelName))
	}
	return out, nil
}
