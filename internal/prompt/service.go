package prompt

import (
	"context"
	"fmt"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/metrics"
	"prompt-manager/internal/utils"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Service interface {
	Create(ctx context.Context, userID uint64, in CreateInput) (*domain.Prompt, error)
	Get(ctx context.Context, id, userID uint64) (*domain.Prompt, error)
	List(ctx context.Context, userID uint64, q crud.Query, opts ListOptions) (*crud.Page[domain.Prompt], error)
	UpdateMetadata(ctx context.Context, id, userID uint64, changes map[string]any) (*domain.Prompt, error)
	UpdateContent(ctx context.Context, id, userID uint64, content, summary string) (*domain.Prompt, *domain.PromptVersion, error)
	Rollback(ctx context.Context, id, userID uint64, versionNumber int) (*domain.Prompt, *domain.PromptVersion, error)
	Versions(ctx context.Context, id, userID uint64) ([]domain.PromptVersion, error)
	Version(ctx context.Context, id, userID uint64, versionNumber int) (*domain.PromptVersion, error)
	Compare(ctx context.Context, id, userID uint64, from, to int) (*Comparison, error)
	Lineage(ctx context.Context, id, userID uint64, versionNumber int) (*Lineage, error)
	Publish(ctx context.Context, id, userID uint64) error
	SetDraft(ctx context.Context, id, userID uint64) error
	Delete(ctx context.Context, id, userID uint64) error
	Purge(ctx context.Context, id, userID uint64) error
	AttachTag(ctx context.Context, id, userID, tagID uint64) error
	DetachTag(ctx context.Context, id, userID, tagID uint64) error

	Collaborators(ctx context.Context, id, userID uint64) ([]domain.PromptCollaborator, error)
	Invitations(ctx context.Context, userID uint64) ([]domain.PromptCollaborator, error)
	Invite(ctx context.Context, id, userID, targetID uint64, role domain.Role) (*domain.PromptCollaborator, error)
	RespondInvitation(ctx context.Context, id, userID uint64, accept bool) (*domain.PromptCollaborator, error)
	ChangeRole(ctx context.Context, id, userID, targetID uint64, role domain.Role) (*domain.PromptCollaborator, error)
	RemoveCollaborator(ctx context.Context, id, userID, targetID uint64) error

	// Viewable loads a prompt for callers outside this package that act on
	// it, such as test runs.
	Viewable(ctx context.Context, id, userID uint64) (*domain.Prompt, error)
}

type DefaultService struct {
	repository PromptRepository
	prompts    *crud.Service[domain.Prompt]
	grants     *crud.Service[domain.PromptCollaborator]
	now        func() time.Time
}

func NewService(
	repository PromptRepository,
	prompts *crud.Service[domain.Prompt],
	grants *crud.Service[domain.PromptCollaborator],
) Service {
	return &DefaultService{
		repository: repository,
		prompts:    prompts,
		grants:     grants,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewGrantStore builds the generic service used to audit grant changes.
func NewGrantStore(prompts *crud.Service[domain.Prompt]) *crud.Service[domain.PromptCollaborator] {
	return crud.NewService(prompts.DB(), collaboratorSchema(), prompts.Recorder())
}

func (s *DefaultService) Create(ctx context.Context, userID uint64, in CreateInput) (*domain.Prompt, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}

	p := domain.NewPrompt(userID, in.Title, in.Content)
	p.Description = in.Description
	p.Category = in.Category
	p.ModelType = in.ModelType
	if in.Language != "" {
		p.Language = in.Language
	}
	if in.Visibility != 0 {
		p.Visibility = in.Visibility
	}
	if in.Draft {
		p.SetDraft()
	}

	if err := s.repository.Create(ctx, p, in.TagIDs); err != nil {
		return nil, err
	}

	metrics.RecordVersion("create")
	s.prompts.Record(ctx, domain.OpCreate, p.ID, map[string]any{
		"title":      p.Title,
		"visibility": p.Visibility,
		"tag_ids":    in.TagIDs,
	})
	log.Ctx(ctx).Info().Uint64("prompt_id", p.ID).Msg("prompt created")
	return p, nil
}

// load returns a live prompt or RECORD_NOT_FOUND.
func (s *DefaultService) load(ctx context.Context, id uint64) (*domain.Prompt, error) {
	p, err := s.repository.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.IsDeleted() {
		return nil, errors.NotFound(fmt.Sprintf("prompt %d not found", id), nil)
	}
	return p, nil
}

func (s *DefaultService) Viewable(ctx context.Context, id, userID uint64) (*domain.Prompt, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanView(userID) {
		return nil, errors.Forbidden("You don't have access to this prompt", nil)
	}
	return p, nil
}

func (s *DefaultService) editable(ctx context.Context, id, userID uint64) (*domain.Prompt, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanEdit(userID) {
		return nil, errors.Forbidden("You can't edit this prompt", nil)
	}
	return p, nil
}

func (s *DefaultService) owned(ctx context.Context, id, userID uint64) (*domain.Prompt, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsOwner(userID) {
		return nil, errors.Forbidden("Only the owner can do this", nil)
	}
	return p, nil
}

func (s *DefaultService) Get(ctx context.Context, id, userID uint64) (*domain.Prompt, error) {
	return s.Viewable(ctx, id, userID)
}

func (s *DefaultService) List(ctx context.Context, userID uint64, q crud.Query, opts ListOptions) (*crud.Page[domain.Prompt], error) {
	q.Scopes = append(q.Scopes, VisibleTo(userID))
	if opts.TagID != 0 {
		q.Scopes = append(q.Scopes, WithTag(opts.TagID))
	}
	if term := strings.TrimSpace(opts.Search); term != "" {
		q.Scopes = append(q.Scopes, Matching(term))
	}
	if q.OrderBy == "" {
		q.OrderBy = "-updated_at"
	}
	q.Preload = append(q.Preload, "Tags")
	return s.prompts.List(ctx, q)
}

// UpdateMetadata patches descriptive fields. Only the owner may change
// visibility.
func (s *DefaultService) UpdateMetadata(ctx context.Context, id, userID uint64, changes map[string]any) (*domain.Prompt, error) {
	p, err := s.editable(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := changes["visibility"]; ok && !p.IsOwner(userID) {
		return nil, errors.Forbidden("Only the owner can change visibility", nil)
	}
	return s.prompts.Update(ctx, id, changes)
}

// UpdateContent stores a new version unless the content is unchanged, in
// which case the returned version is nil.
func (s *DefaultService) UpdateContent(ctx context.Context, id, userID uint64, content, summary string) (*domain.Prompt, *domain.PromptVersion, error) {
	if content == "" {
		return nil, nil, errors.New(errors.CodeValidationFailed, "content is required", nil)
	}

	p, v, err := s.repository.Revise(ctx, id, func(p *domain.Prompt) (*domain.PromptVersion, error) {
		if err := checkEditable(p, userID); err != nil {
			return nil, err
		}
		return p.UpdateContent(content, userID, summary), nil
	})
	if err != nil || v == nil {
		return p, nil, err
	}

	metrics.RecordVersion("update")
	s.prompts.Record(ctx, domain.OpUpdate, id, map[string]any{
		"version_number": v.VersionNumber,
		"change_summary": summary,
	})
	return p, v, nil
}

// Rollback re-applies an earlier version's content as a new version.
func (s *DefaultService) Rollback(ctx context.Context, id, userID uint64, versionNumber int) (*domain.Prompt, *domain.PromptVersion, error) {
	p, v, err := s.repository.Revise(ctx, id, func(p *domain.Prompt) (*domain.PromptVersion, error) {
		if err := checkEditable(p, userID); err != nil {
			return nil, err
		}
		v, found := p.RollbackToVersion(versionNumber, userID)
		if !found {
			return nil, errors.NotFound(fmt.Sprintf("version %d not found", versionNumber), nil)
		}
		return v, nil
	})
	if err != nil || v == nil {
		return p, nil, err
	}

	metrics.RecordVersion("rollback")
	s.prompts.Record(ctx, domain.OpRollback, id, map[string]any{
		"target_version": versionNumber,
		"version_number": v.VersionNumber,
	})
	return p, v, nil
}

func checkEditable(p *domain.Prompt, userID uint64) error {
	if p.IsDeleted() {
		return errors.NotFound(fmt.Sprintf("prompt %d not found", p.ID), nil)
	}
	if !p.CanEdit(userID) {
		return errors.Forbidden("You can't edit this prompt", nil)
	}
	return nil
}

func (s *DefaultService) Versions(ctx context.Context, id, userID uint64) ([]domain.PromptVersion, error) {
	if _, err := s.Viewable(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.repository.Versions(ctx, id)
}

func (s *DefaultService) Version(ctx context.Context, id, userID uint64, versionNumber int) (*domain.PromptVersion, error) {
	versions, err := s.Versions(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	v := findVersion(versions, versionNumber)
	if v == nil {
		return nil, errors.NotFound(fmt.Sprintf("version %d not found", versionNumber), nil)
	}
	return v, nil
}

func findVersion(versions []domain.PromptVersion, number int) *domain.PromptVersion {
	for i := range versions {
		if versions[i].VersionNumber == number {
			return &versions[i]
		}
	}
	return nil
}

// Compare describes how version to differs from version from.
func (s *DefaultService) Compare(ctx context.Context, id, userID uint64, from, to int) (*Comparison, error) {
	versions, err := s.Versions(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	a, b := findVersion(versions, from), findVersion(versions, to)
	if a == nil || b == nil {
		return nil, errors.NotFound("version not found", nil)
	}

	cmp, err := b.CompareWith(a)
	if err != nil {
		return nil, errors.Internal(err)
	}
	diff, err := b.ContentDiff(a)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Comparison{From: *a, To: *b, Comparison: cmp, Diff: diff}, nil
}

func (s *DefaultService) Lineage(ctx context.Context, id, userID uint64, versionNumber int) (*Lineage, error) {
	versions, err := s.Versions(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	v := findVersion(versions, versionNumber)
	if v == nil {
		return nil, errors.NotFound(fmt.Sprintf("version %d not found", versionNumber), nil)
	}

	tree := domain.NewVersionTree(versions)
	return &Lineage{
		Version:     *v,
		Ancestors:   tree.Ancestors(v.ID),
		Descendants: tree.Descendants(v.ID),
	}, nil
}

func (s *DefaultService) Publish(ctx context.Context, id, userID uint64) error {
	return s.setStatus(ctx, id, userID, domain.PromptActive, domain.OpActivate)
}

func (s *DefaultService) SetDraft(ctx context.Context, id, userID uint64) error {
	return s.setStatus(ctx, id, userID, domain.PromptDraft, domain.OpDeactivate)
}

func (s *DefaultService) setStatus(ctx context.Context, id, userID uint64, status domain.PromptStatus, op string) error {
	p, err := s.owned(ctx, id, userID)
	if err != nil {
		return err
	}
	if p.Status == status {
		return nil
	}
	if err := s.repository.SetStatus(ctx, id, status); err != nil {
		return err
	}
	s.prompts.Record(ctx, op, id, map[string]any{"status": status})
	return nil
}

// Delete soft-deletes the prompt; it disappears from every listing but the
// row and its history stay.
func (s *DefaultService) Delete(ctx context.Context, id, userID uint64) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	return s.prompts.Delete(ctx, id)
}

// Purge removes the prompt and everything it owns. It also works on a
// prompt that was already soft-deleted.
func (s *DefaultService) Purge(ctx context.Context, id, userID uint64) error {
	p, err := s.repository.Load(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return errors.NotFound(fmt.Sprintf("prompt %d not found", id), nil)
	}
	if !p.IsOwner(userID) {
		return errors.Forbidden("Only the owner can do this", nil)
	}
	if err := s.repository.Purge(ctx, id); err != nil {
		return err
	}
	s.prompts.Record(ctx, domain.OpDelete, id, map[string]any{"title": p.Title})
	return nil
}

func (s *DefaultService) AttachTag(ctx context.Context, id, userID, tagID uint64) error {
	if _, err := s.editable(ctx, id, userID); err != nil {
		return err
	}
	added, err := s.repository.AttachTag(ctx, id, tagID)
	if err != nil || !added {
		return err
	}
	s.prompts.Record(ctx, domain.OpUpdate, id, map[string]any{"tag_added": tagID})
	return nil
}

func (s *DefaultService) DetachTag(ctx context.Context, id, userID, tagID uint64) error {
	if _, err := s.editable(ctx, id, userID); err != nil {
		return err
	}
	removed, err := s.repository.DetachTag(ctx, id, tagID)
	if err != nil || !removed {
		return err
	}
	s.prompts.Record(ctx, domain.OpUpdate, id, map[string]any{"tag_removed": tagID})
	return nil
}
