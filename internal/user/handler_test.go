package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/middleware"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) Login(ctx context.Context, usernameOrEmail, password string) (*domain.User, error) {
	args := m.Called(ctx, usernameOrEmail, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) ChangePassword(ctx context.Context, id uint64, oldPassword, newPassword string) error {
	args := m.Called(ctx, id, oldPassword, newPassword)
	return args.Error(0)
}

func (m *MockService) GetUserByID(ctx context.Context, id uint64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) GetByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	args := m.Called(ctx, usernameOrEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) UpdateProfile(ctx context.Context, id uint64, changes map[string]any) (*domain.User, error) {
	args := m.Called(ctx, id, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) UpdatePreferences(ctx context.Context, id uint64, prefs map[string]any) (*domain.User, error) {
	args := m.Called(ctx, id, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockService) Statistics(ctx context.Context, id uint64) (*Statistics, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Statistics), args.Error(1)
}

func (m *MockService) ActivateUser(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockService) DeactivateUser(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockService) DeleteUser(ctx context.Context, id uint64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockService) SearchUsers(ctx context.Context, query string) ([]domain.SafeUser, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return []domain.SafeUser{}, args.Error(1)
	}
	return args.Get(0).([]domain.SafeUser), args.Error(1)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	return router
}

// asUser stands in for the auth middleware.
func asUser(id uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", id)
		c.Next()
	}
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegister_Success(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.POST("/register", handler.Register)

	mockService.On("Register", mock.Anything, RegisterInput{
		Username: "john",
		Email:    "john@example.com",
		Password: "password123",
	}).Return(&domain.User{Model: domain.Model{ID: 1}, Username: "john", Email: "john@example.com", PasswordHash: "hash"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/register", FormRegister{
		Username: "john",
		Email:    "john@example.com",
		Password: "password123",
	}))

	assert.Equal(t, http.StatusCreated, w.Code)
	var response map[string]map[string]any
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "john", response["user"]["username"])
	assert.NotContains(t, w.Body.String(), "hash")
	mockService.AssertExpectations(t)
}

func TestRegister_InvalidInput(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.POST("/register", handler.Register)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/register", map[string]string{"username": "john"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Register")
}

func TestRegister_Conflict(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.POST("/register", handler.Register)

	mockService.On("Register", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.CodeEmailExists, "email already registered", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/register", FormRegister{
		Username: "john",
		Email:    "john@example.com",
		Password: "password123",
	}))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "EMAIL_EXISTS")
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		user     *domain.User
		err      error
		expected int
		code     string
	}{
		{"success", &domain.User{Model: domain.Model{ID: 1}, Username: "john"}, nil, http.StatusOK, ""},
		{"wrong credentials", nil, nil, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"disabled", nil, errors.New(errors.CodeAccountDisabled, "account is disabled", nil), http.StatusForbidden, "ACCOUNT_DISABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			handler := NewHandler(mockService)
			router := setupRouter()
			router.POST("/login", handler.Login)

			mockService.On("Login", mock.Anything, "john", "secret123").Return(tt.user, tt.err)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, jsonRequest("POST", "/login", FormLogin{Login: "john", Password: "secret123"}))

			assert.Equal(t, tt.expected, w.Code)
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), tt.code)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestGetProfile(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.GET("/me", asUser(3), handler.GetProfile)

	mockService.On("GetUserByID", mock.Anything, uint64(3)).
		Return(&domain.User{Model: domain.Model{ID: 3}, Username: "ann", Preferences: map[string]any{"theme": "dark"}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"theme":"dark"`)
}

func TestGetProfile_NoUser(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.GET("/me", handler.GetProfile)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile_OnlySentFields(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.PATCH("/me", asUser(3), handler.UpdateProfile)

	mockService.On("UpdateProfile", mock.Anything, uint64(3), map[string]any{"bio": "hi"}).
		Return(&domain.User{Model: domain.Model{ID: 3}, Bio: "hi"}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("PATCH", "/me", map[string]string{"bio": "hi"}))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestChangePassword(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.PUT("/me/password", asUser(3), handler.ChangePassword)

	mockService.On("ChangePassword", mock.Anything, uint64(3), "old", "brand-new-pass").Return(nil).Once()
	mockService.On("ChangePassword", mock.Anything, uint64(3), "bad", "brand-new-pass").
		Return(errors.New(errors.CodeInvalidOldPassword, "old password is incorrect", nil)).Once()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("PUT", "/me/password", FormChangePassword{OldPassword: "old", NewPassword: "brand-new-pass"}))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("PUT", "/me/password", FormChangePassword{OldPassword: "bad", NewPassword: "brand-new-pass"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_OLD_PASSWORD")
}

func TestSearchUsers(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.GET("/users/search", asUser(1), handler.SearchUsers)

	mockService.On("SearchUsers", mock.Anything, "jo").Return([]domain.SafeUser{{ID: 2, Username: "john"}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/users/search?q=jo", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data []domain.SafeUser `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response.Data, 1)
	assert.Equal(t, "john", response.Data[0].Username)
}

func TestSetStatus(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()
	router.POST("/users/:id/activate", handler.SetStatus(domain.UserActive))
	router.POST("/users/:id/deactivate", handler.SetStatus(domain.UserDisabled))

	mockService.On("ActivateUser", mock.Anything, uint64(5)).Return(nil)
	mockService.On("DeactivateUser", mock.Anything, uint64(6)).Return(errors.NotFound("user 6 not found", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/users/5/activate", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/users/6/deactivate", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/users/abc/activate", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
