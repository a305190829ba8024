package oplog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/crud"
	"prompt-manager/internal/db/dbtest"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"prompt-manager/internal/middleware"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seed(t *testing.T, db *gorm.DB) (alice, bob uint64) {
	a := &domain.User{Username: "alice", Email: "alice@example.com", Status: domain.UserActive}
	b := &domain.User{Username: "bob", Email: "bob@example.com", Status: domain.UserActive}
	require.NoError(t, db.Create(a).Error)
	require.NoError(t, db.Create(b).Error)

	sink := audit.NewDBSink(db)
	ctx := context.Background()
	write := func(user *uint64, op, resource string, id uint64) {
		require.NoError(t, sink.Write(ctx, audit.Entry{UserID: user, Operation: op, ResourceType: resource, ResourceID: &id}))
	}
	write(&a.ID, domain.OpCreate, domain.ResourcePrompt, 1)
	write(&a.ID, domain.OpUpdate, domain.ResourcePrompt, 1)
	write(&b.ID, domain.OpTest, domain.ResourcePrompt, 1)
	write(&b.ID, domain.OpCreate, domain.ResourceTag, 4)
	write(nil, domain.OpBulkCreate, domain.ResourceSystemConfig, 0)
	return a.ID, b.ID
}

func TestMine(t *testing.T) {
	db := dbtest.Open(t)
	alice, _ := seed(t, db)
	svc := NewService(db)

	page, err := svc.Mine(context.Background(), alice, crud.Query{})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "alice UPDATE prompt #1", page.Data[0].Summary)

	page, err = svc.Mine(context.Background(), alice, crud.Query{Filters: map[string]any{"operation": domain.OpCreate}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Meta.Total)
}

func TestEntrySubject(t *testing.T) {
	db := dbtest.Open(t)
	alice, _ := seed(t, db)
	id := uint64(2)
	require.NoError(t, audit.NewDBSink(db).Write(context.Background(), audit.Entry{
		UserID: &alice, Operation: domain.OpCreate, ResourceType: domain.ResourcePrompt, ResourceID: &id,
		Detail: map[string]any{"title": "summarize", "version_count": 1},
	}))

	page, err := NewService(db).History(context.Background(), domain.ResourcePrompt, 2, crud.Query{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "summarize", page.Data[0].Subject)

	page, err = NewService(db).History(context.Background(), domain.ResourcePrompt, 1, crud.Query{})
	require.NoError(t, err)
	assert.Empty(t, page.Data[0].Subject)
}

func TestHistory(t *testing.T) {
	db := dbtest.Open(t)
	seed(t, db)

	page, err := NewService(db).History(context.Background(), domain.ResourcePrompt, 1, crud.Query{PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Meta.Total)
	assert.Len(t, page.Data, 2)
	assert.True(t, page.Meta.HasNext)
}

type denyAll struct{}

func (denyAll) Viewable(context.Context, uint64, uint64) (*domain.Prompt, error) {
	return nil, errors.Forbidden("You don't have access to this prompt", nil)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.Open(t)
	alice, _ := seed(t, db)
	h := NewHandler(NewService(db), denyAll{})

	router := gin.New()
	router.Use(middleware.ErrorHandler(), func(c *gin.Context) {
		c.Set("user_id", alice)
		c.Next()
	})
	router.GET("/me/activity", h.Mine)
	router.GET("/prompts/:id/activity", h.PromptHistory)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/me/activity?order_by=created_at", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"summary":"alice CREATE prompt #1"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/prompts/1/activity", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
