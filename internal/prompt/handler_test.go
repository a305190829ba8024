package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/middleware"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, userID uint64, in CreateInput) (*domain.Prompt, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Prompt), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id, userID uint64) (*domain.Prompt, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Prompt), args.Error(1)
}

func (m *MockService) Viewable(ctx context.Context, id, userID uint64) (*domain.Prompt, error) {
	return m.Get(ctx, id, userID)
}

func (m *MockService) List(ctx context.Context, userID uint64, q crud.Query, opts ListOptions) (*crud.Page[domain.Prompt], error) {
	args := m.Called(ctx, userID, q, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crud.Page[domain.Prompt]), args.Error(1)
}

func (m *MockService) UpdateMetadata(ctx context.Context, id, userID uint64, changes map[string]any) (*domain.Prompt, error) {
	args := m.Called(ctx, id, userID, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Prompt), args.Error(1)
}

func (m *MockService) revision(args mock.Arguments) (*domain.Prompt, *domain.PromptVersion, error) {
	var (
		p *domain.Prompt
		v *domain.PromptVersion
	)
	if args.Get(0) != nil {
		p = args.Get(0).(*domain.Prompt)
	}
	if args.Get(1) != nil {
		v = args.Get(1).(*domain.PromptVersion)
	}
	return p, v, args.Error(2)
}

func (m *MockService) UpdateContent(ctx context.Context, id, userID uint64, content, summary string) (*domain.Prompt, *domain.PromptVersion, error) {
	return m.revision(m.Called(ctx, id, userID, content, summary))
}

func (m *MockService) Rollback(ctx context.Context, id, userID uint64, versionNumber int) (*domain.Prompt, *domain.PromptVersion, error) {
	return m.revision(m.Called(ctx, id, userID, versionNumber))
}

func (m *MockService) Versions(ctx context.Context, id, userID uint64) ([]domain.PromptVersion, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PromptVersion), args.Error(1)
}

func (m *MockService) Version(ctx context.Context, id, userID uint64, versionNumber int) (*domain.PromptVersion, error) {
	args := m.Called(ctx, id, userID, versionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptVersion), args.Error(1)
}

func (m *MockService) Compare(ctx context.Context, id, userID uint64, from, to int) (*Comparison, error) {
	args := m.Called(ctx, id, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Comparison), args.Error(1)
}

func (m *MockService) Lineage(ctx context.Context, id, userID uint64, versionNumber int) (*Lineage, error) {
	args := m.Called(ctx, id, userID, versionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Lineage), args.Error(1)
}

func (m *MockService) Publish(ctx context.Context, id, userID uint64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockService) SetDraft(ctx context.Context, id, userID uint64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockService) Delete(ctx context.Context, id, userID uint64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockService) Purge(ctx context.Context, id, userID uint64) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockService) AttachTag(ctx context.Context, id, userID, tagID uint64) error {
	return m.Called(ctx, id, userID, tagID).Error(0)
}

func (m *MockService) DetachTag(ctx context.Context, id, userID, tagID uint64) error {
	return m.Called(ctx, id, userID, tagID).Error(0)
}

func (m *MockService) Collaborators(ctx context.Context, id, userID uint64) ([]domain.PromptCollaborator, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PromptCollaborator), args.Error(1)
}

func (m *MockService) Invitations(ctx context.Context, userID uint64) ([]domain.PromptCollaborator, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PromptCollaborator), args.Error(1)
}

func (m *MockService) Invite(ctx context.Context, id, userID, targetID uint64, role domain.Role) (*domain.PromptCollaborator, error) {
	args := m.Called(ctx, id, userID, targetID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptCollaborator), args.Error(1)
}

func (m *MockService) RespondInvitation(ctx context.Context, id, userID uint64, accept bool) (*domain.PromptCollaborator, error) {
	args := m.Called(ctx, id, userID, accept)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptCollaborator), args.Error(1)
}

func (m *MockService) ChangeRole(ctx context.Context, id, userID, targetID uint64, role domain.Role) (*domain.PromptCollaborator, error) {
	args := m.Called(ctx, id, userID, targetID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PromptCollaborator), args.Error(1)
}

func (m *MockService) RemoveCollaborator(ctx context.Context, id, userID, targetID uint64) error {
	return m.Called(ctx, id, userID, targetID).Error(0)
}

func setupRouter() (*gin.Engine, *MockService) {
	gin.SetMode(gin.TestMode)
	svc := new(MockService)
	h := NewHandler(svc)

	router := gin.New()
	router.Use(middleware.ErrorHandler(), func(c *gin.Context) {
		c.Set("user_id", uint64(1))
		c.Next()
	})
	router.POST("/prompts", h.Create)
	router.GET("/prompts", h.List)
	router.PUT("/prompts/:id/content", h.UpdateContent)
	router.POST("/prompts/:id/rollback", h.Rollback)
	router.GET("/prompts/:id/compare", h.Compare)
	router.GET("/prompts/:id/versions/:number", h.ShowVersion)
	router.POST("/prompts/:id/publish", h.Lifecycle("publish"))
	router.DELETE("/prompts/:id", h.Lifecycle("delete"))
	router.POST("/prompts/:id/tags/:tagId", h.AttachTag)
	router.POST("/prompts/:id/collaborators", h.Invite)
	router.POST("/prompts/:id/invitation", h.RespondInvitation)
	return router, svc
}

func do(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Create(t *testing.T) {
	router, svc := setupRouter()
	svc.On("Create", mock.Anything, uint64(1), CreateInput{Title: "t", Content: "c", TagIDs: []uint64{2}}).
		Return(domain.NewPrompt(1, "t", "c"), nil)

	w := do(router, "POST", "/prompts", map[string]any{"title": "t", "content": "c", "tag_ids": []int{2}})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"version_count":1`)
	svc.AssertExpectations(t)
}

func TestHandler_List(t *testing.T) {
	router, svc := setupRouter()
	svc.On("List", mock.Anything, uint64(1), mock.Anything, ListOptions{TagID: 4, Search: "hi"}).
		Return(&crud.Page[domain.Prompt]{Data: []domain.Prompt{}, Meta: crud.NewMeta(0, 1, 10)}, nil)

	w := do(router, "GET", "/prompts?tag_id=4&q=hi", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/prompts?tag_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "List", 1)
}

func TestHandler_UpdateContent(t *testing.T) {
	router, svc := setupRouter()
	p := domain.NewPrompt(1, "t", "c")
	v := p.UpdateContent("new", 1, "edit")
	svc.On("UpdateContent", mock.Anything, uint64(7), uint64(1), "new", "edit").Return(p, v, nil)
	svc.On("UpdateContent", mock.Anything, uint64(7), uint64(1), "c", "").Return(p, nil, nil)

	w := do(router, "PUT", "/prompts/7/content", ContentRequest{Content: "new", ChangeSummary: "edit"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"changed":true`)

	w = do(router, "PUT", "/prompts/7/content", ContentRequest{Content: "c"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version":null`)

	w = do(router, "PUT", "/prompts/7/content", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
}

func TestHandler_Rollback(t *testing.T) {
	router, svc := setupRouter()
	svc.On("Rollback", mock.Anything, uint64(7), uint64(1), 9).
		Return(nil, nil, errors.NotFound("version 9 not found", nil))

	w := do(router, "POST", "/prompts/7/rollback", RollbackRequest{VersionNumber: 9})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, "POST", "/prompts/7/rollback", RollbackRequest{VersionNumber: 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CompareAndVersion(t *testing.T) {
	router, svc := setupRouter()
	svc.On("Compare", mock.Anything, uint64(7), uint64(1), 1, 2).Return(&Comparison{}, nil)
	svc.On("Version", mock.Anything, uint64(7), uint64(1), 2).Return(&domain.PromptVersion{VersionNumber: 2}, nil)

	assert.Equal(t, http.StatusOK, do(router, "GET", "/prompts/7/compare?from=1&to=2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "GET", "/prompts/7/compare?from=1", nil).Code)
	assert.Equal(t, http.StatusOK, do(router, "GET", "/prompts/7/versions/2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "GET", "/prompts/7/versions/0", nil).Code)
}

func TestHandler_Lifecycle(t *testing.T) {
	router, svc := setupRouter()
	svc.On("Publish", mock.Anything, uint64(7), uint64(1)).Return(nil)
	svc.On("Delete", mock.Anything, uint64(7), uint64(1)).Return(errors.Forbidden("Only the owner can do this", nil))

	assert.Equal(t, http.StatusNoContent, do(router, "POST", "/prompts/7/publish", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(router, "DELETE", "/prompts/7", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/prompts/x/publish", nil).Code)
}

func TestHandler_Collaboration(t *testing.T) {
	router, svc := setupRouter()
	svc.On("AttachTag", mock.Anything, uint64(7), uint64(1), uint64(3)).Return(nil)
	svc.On("Invite", mock.Anything, uint64(7), uint64(1), uint64(2), domain.RoleViewer).
		Return(&domain.PromptCollaborator{UserID: 2, Role: domain.RoleViewer}, nil)
	svc.On("RespondInvitation", mock.Anything, uint64(7), uint64(1), false).
		Return(nil, errors.New(errors.CodeInvalidState, "invitation is not pending", nil))

	assert.Equal(t, http.StatusNoContent, do(router, "POST", "/prompts/7/tags/3", nil).Code)
	assert.Equal(t, http.StatusCreated, do(router, "POST", "/prompts/7/collaborators", InviteRequest{UserID: 2, Role: "viewer"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/prompts/7/collaborators", InviteRequest{UserID: 2, Role: "owner"}).Code)
	assert.Equal(t, http.StatusConflict, do(router, "POST", "/prompts/7/invitation", map[string]bool{"accept": false}).Code)
	assert.Equal(t, http.StatusBadRequest, do(router, "POST", "/prompts/7/invitation", map[string]string{}).Code)
}
