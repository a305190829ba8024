package sysconfig

import (
	"bytes"
	"context"
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

func (m *MockService) config(args mock.Arguments) (*domain.SystemConfig, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SystemConfig), args.Error(1)
}

func (m *MockService) Get(ctx context.Context, key string) (*domain.SystemConfig, error) {
	return m.config(m.Called(ctx, key))
}

func (m *MockService) Value(ctx context.Context, key string) (any, error) {
	args := m.Called(ctx, key)
	return args.Get(0), args.Error(1)
}

func (m *MockService) List(ctx context.Context, q crud.Query) (*crud.Page[domain.SystemConfig], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crud.Page[domain.SystemConfig]), args.Error(1)
}

func (m *MockService) Public(ctx context.Context) (map[string]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockService) Set(ctx context.Context, key string, in SetInput) (*domain.SystemConfig, error) {
	return m.config(m.Called(ctx, key, in))
}

func (m *MockService) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockService) Flag(ctx context.Context, key string, def bool) bool {
	return m.Called(ctx, key, def).Bool(0)
}

func (m *MockService) Seed(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func setupRouter() (*gin.Engine, *MockService) {
	gin.SetMode(gin.TestMode)
	svc := new(MockService)
	h := NewHandler(svc, func() map[string]bool { return map[string]bool{"collaboration_enabled": true} })

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/config", h.Public)
	router.GET("/internal/config/:key", h.Show)
	router.PUT("/internal/config/:key", h.Set)
	router.DELETE("/internal/config/:key", h.Delete)
	return router, svc
}

func TestHandler_Public(t *testing.T) {
	router, svc := setupRouter()
	svc.On("Public", mock.Anything).Return(map[string]any{"site_name": "Prompt Manager"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/config", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"settings":{"site_name":"Prompt Manager"},"features":{"collaboration_enabled":true}}`, w.Body.String())
}

func TestHandler_SetAndShow(t *testing.T) {
	router, svc := setupRouter()
	cfg := &domain.SystemConfig{ConfigKey: "limit", ConfigValue: "5", ConfigType: domain.ConfigNumber}
	svc.On("Set", mock.Anything, "limit", SetInput{Value: float64(5)}).Return(cfg, nil)
	svc.On("Get", mock.Anything, "nope").Return(nil, errors.NotFound(`setting "nope" not found`, nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/internal/config/limit", bytes.NewBufferString(`{"value":5}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":5`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("PUT", "/internal/config/limit", bytes.NewBufferString(`{"value":1,"type":"color"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/internal/config/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertNumberOfCalls(t, "Set", 1)
}

func TestHandler_Delete(t *testing.T) {
	router, svc := setupRouter()
	svc.On("Delete", mock.Anything, "temp").Return(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/internal/config/temp", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
