package prompt

import (
	"context"
	"fmt"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *DefaultService) Collaborators(ctx context.Context, id, userID uint64) ([]domain.PromptCollaborator, error) {
	if _, err := s.Viewable(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.repository.Grants(ctx, id)
}

// Invitations lists the pending grants addressed to userID.
func (s *DefaultService) Invitations(ctx context.Context, userID uint64) ([]domain.PromptCollaborator, error) {
	return s.repository.PendingInvitations(ctx, userID)
}

// Invite creates a pending grant. Only the owner invites, and the owner
// role cannot be handed out.
func (s *DefaultService) Invite(ctx context.Context, id, userID, targetID uint64, role domain.Role) (*domain.PromptCollaborator, error) {
	if !role.Valid() || role == domain.RoleOwner {
		return nil, errors.New(errors.CodeValidationFailed, "role must be editor or viewer", nil)
	}
	p, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if targetID == p.OwnerID {
		return nil, errors.New(errors.CodeInvalidState, "Can't invite the owner", nil)
	}

	exists, err := s.repository.ActiveUserExists(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NotFound(fmt.Sprintf("user %d not found", targetID), nil)
	}
	existing, err := s.repository.Grant(ctx, id, targetID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.CodeCollaboratorExists, "User already invited!", nil)
	}

	grant := domain.NewInvitation(id, targetID, userID, role, s.now())
	if err := s.grants.Create(ctx, grant); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Uint64("prompt_id", id).Uint64("user_id", targetID).Str("role", role.String()).Msg("collaborator invited")
	return grant, nil
}

// RespondInvitation accepts or rejects the caller's pending grant.
func (s *DefaultService) RespondInvitation(ctx context.Context, id, userID uint64, accept bool) (*domain.PromptCollaborator, error) {
	grant, err := s.repository.Grant(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, errors.NotFound("invitation not found", nil)
	}
	if !grant.IsPending() {
		return nil, errors.New(errors.CodeInvalidState, "invitation is not pending", nil)
	}

	if accept {
		grant.Accept(s.now())
	} else {
		grant.Reject()
	}
	err = s.grants.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Save(grant).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUpdateFailed, "failed to update invitation")
	}

	s.grants.Record(ctx, domain.OpUpdate, grant.ID, map[string]any{"status": grant.Status})
	return grant, nil
}

func (s *DefaultService) ChangeRole(ctx context.Context, id, userID, targetID uint64, role domain.Role) (*domain.PromptCollaborator, error) {
	if !role.Valid() || role == domain.RoleOwner {
		return nil, errors.New(errors.CodeValidationFailed, "role must be editor or viewer", nil)
	}
	if _, err := s.owned(ctx, id, userID); err != nil {
		return nil, err
	}
	grant, err := s.repository.Grant(ctx, id, targetID)
	if err != nil {
		return nil, err
	}
	if grant == nil {
		return nil, errors.NotFound("collaborator not found", nil)
	}
	if grant.Role == role {
		return grant, nil
	}
	return s.grants.Update(ctx, grant.ID, map[string]any{"role": int(role)})
}

// RemoveCollaborator deletes a grant. The owner may remove anyone and a
// collaborator may remove themselves.
func (s *DefaultService) RemoveCollaborator(ctx context.Context, id, userID, targetID uint64) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsOwner(userID) && userID != targetID {
		return errors.Forbidden("Only the owner can remove collaborators", nil)
	}
	grant, err := s.repository.Grant(ctx, id, targetID)
	if err != nil {
		return err
	}
	if grant == nil {
		return errors.NotFound("collaborator not found", nil)
	}
	return s.grants.HardDelete(ctx, grant.ID)
}
