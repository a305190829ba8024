package crud

import (
	"context"
	"prompt-manager/internal/audit"
	"prompt-manager/internal/db/dbtest"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorded struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (r *recorded) Record(_ context.Context, e audit.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorded) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, e := range r.entries {
		out = append(out, e.Operation)
	}
	return out
}

func tagSchema() Schema[domain.Tag] {
	return Schema[domain.Tag]{
		Resource: domain.ResourceTag,
		ID:       func(t *domain.Tag) uint64 { return t.ID },
		Fields: map[string]Field[domain.Tag]{
			"id":          ReadOnly("id", func(t *domain.Tag) any { return t.ID }),
			"name":        StringField("name", func(t *domain.Tag) *string { return &t.Name }),
			"color":       StringField("color", func(t *domain.Tag) *string { return &t.Color }),
			"usage_count": IntField("usage_count", func(t *domain.Tag) *int { return &t.UsageCount }),
		},
	}
}

func userSchema() Schema[domain.User] {
	return Schema[domain.User]{
		Resource:   domain.ResourceUser,
		ID:         func(u *domain.User) uint64 { return u.ID },
		SoftDelete: func(u *domain.User) { u.SoftDelete() },
		Fields: map[string]Field[domain.User]{
			"username": StringField("username", func(u *domain.User) *string { return &u.Username }),
			"status":   IntField("status", func(u *domain.User) *domain.UserStatus { return &u.Status }),
		},
	}
}

func setup(t *testing.T) (*Service[domain.Tag], *recorded, *gorm.DB) {
	conn := dbtest.Open(t)
	rec := &recorded{}
	return NewService(conn, tagSchema(), rec), rec, conn
}

func seedTags(t *testing.T, s *Service[domain.Tag], names ...string) {
	for i, n := range names {
		require.NoError(t, s.Create(context.Background(), &domain.Tag{Name: n, UsageCount: i}))
	}
}

func TestCreateAndGet(t *testing.T) {
	s, rec, _ := setup(t)
	ctx := context.Background()
	tag := &domain.Tag{Name: "go"}

	require.NoError(t, s.Create(ctx, tag))
	assert.NotZero(t, tag.ID)

	got, err := s.Get(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "go", got.Name)
	assert.Equal(t, []string{domain.OpCreate}, rec.ops())
	assert.Equal(t, "go", rec.entries[0].Detail["name"])
}

func TestRecord_CarriesActor(t *testing.T) {
	s, rec, _ := setup(t)
	ctx := audit.WithActor(context.Background(), audit.Actor{UserID: 3, IPAddress: "10.1.1.1", UserAgent: "cli"})

	require.NoError(t, s.Create(ctx, &domain.Tag{Name: "actor"}))

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	require.NotNil(t, e.UserID)
	assert.Equal(t, uint64(3), *e.UserID)
	assert.Equal(t, "10.1.1.1", e.IPAddress)
	assert.Equal(t, "cli", e.UserAgent)
	assert.False(t, e.At.IsZero())
}

func TestCreate_Failure(t *testing.T) {
	s, rec, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &domain.Tag{Name: "dup"}))

	err := s.Create(ctx, &domain.Tag{Name: "dup"})

	assert.True(t, errors.HasCode(err, errors.CodeCreateFailed))
	assert.Len(t, rec.ops(), 1)
}

func TestFindAndGet_Missing(t *testing.T) {
	s, _, _ := setup(t)

	found, err := s.Find(context.Background(), 404)
	assert.NoError(t, err)
	assert.Nil(t, found)

	_, err = s.Get(context.Background(), 404)
	assert.True(t, errors.HasCode(err, errors.CodeRecordNotFound))
}

func TestUpdate(t *testing.T) {
	s, rec, _ := setup(t)
	ctx := context.Background()
	tag := &domain.Tag{Name: "old"}
	require.NoError(t, s.Create(ctx, tag))

	updated, err := s.Update(ctx, tag.ID, map[string]any{
		"name":    "new",
		"id":      float64(99),
		"unknown": "ignored",
	})

	require.NoError(t, err)
	assert.Equal(t, "new", updated.Name)
	assert.Equal(t, tag.ID, updated.ID)

	e := rec.entries[1]
	assert.Equal(t, domain.OpUpdate, e.Operation)
	assert.Equal(t, map[string]any{"name": "old"}, e.Detail["old_data"])
	assert.Equal(t, map[string]any{"name": "new"}, e.Detail["new_data"])
}

func TestUpdate_Errors(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()
	tag := &domain.Tag{Name: "x"}
	require.NoError(t, s.Create(ctx, tag))

	_, err := s.Update(ctx, 404, map[string]any{"name": "y"})
	assert.True(t, errors.HasCode(err, errors.CodeRecordNotFound))

	_, err = s.Update(ctx, tag.ID, map[string]any{"usage_count": "many"})
	assert.True(t, errors.HasCode(err, errors.CodeValidationFailed))
}

func TestDelete_HardWithoutSoftDelete(t *testing.T) {
	s, rec, _ := setup(t)
	ctx := context.Background()
	tag := &domain.Tag{Name: "bye"}
	require.NoError(t, s.Create(ctx, tag))

	require.NoError(t, s.Delete(ctx, tag.ID))

	found, err := s.Find(ctx, tag.ID)
	assert.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, []string{domain.OpCreate, domain.OpDelete}, rec.ops())

	err = s.Delete(ctx, tag.ID)
	assert.True(t, errors.HasCode(err, errors.CodeRecordNotFound))
}

func TestDelete_Soft(t *testing.T) {
	conn := dbtest.Open(t)
	rec := &recorded{}
	s := NewService(conn, userSchema(), rec)
	ctx := context.Background()
	u := &domain.User{Username: "ann", Email: "ann@example.com", Status: domain.UserActive}
	require.NoError(t, s.Create(ctx, u))

	require.NoError(t, s.Delete(ctx, u.ID))

	got, err := s.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserDeleted, got.Status)
	assert.Equal(t, []string{domain.OpCreate, domain.OpSoftDelete}, rec.ops())

	n, err := s.Count(ctx, map[string]any{"status": domain.UserActive})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestList_PaginationAndOrder(t *testing.T) {
	s, _, _ := setup(t)
	seedTags(t, s, "a", "b", "c", "d", "e")

	page, err := s.List(context.Background(), Query{Page: 2, PerPage: 2, OrderBy: "-name"})

	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "c", page.Data[0].Name)
	assert.Equal(t, "b", page.Data[1].Name)
	assert.Equal(t, Meta{Total: 5, CurrentPage: 2, PerPage: 2, TotalPage: 3, HasPrev: true, HasNext: true}, page.Meta)
}

func TestList_Filters(t *testing.T) {
	s, _, _ := setup(t)
	seedTags(t, s, "alpha", "beta", "gamma", "delta")
	ctx := context.Background()

	tests := []struct {
		name    string
		filters map[string]any
		want    []string
	}{
		{"eq", map[string]any{"name": "beta"}, []string{"beta"}},
		{"gt", map[string]any{"usage_count": map[string]any{"gt": 1}}, []string{"gamma", "delta"}},
		{"range", map[string]any{"usage_count": map[string]any{"gte": 1, "lte": 2}}, []string{"beta", "gamma"}},
		{"lt", map[string]any{"usage_count": map[string]any{"lt": 1}}, []string{"alpha"}},
		{"like", map[string]any{"name": map[string]any{"like": "%ta"}}, []string{"beta", "delta"}},
		{"in", map[string]any{"name": map[string]any{"in": []string{"alpha", "delta"}}}, []string{"alpha", "delta"}},
		{"unknown field ignored", map[string]any{"nope": 1}, []string{"alpha", "beta", "gamma", "delta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.List(ctx, Query{Filters: tt.filters, OrderBy: "usage_count"})
			require.NoError(t, err)
			names := []string{}
			for _, tag := range page.Data {
				names = append(names, tag.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, int64(len(tt.want)), page.Meta.Total)
		})
	}
}

func TestList_BadInFilter(t *testing.T) {
	s, _, _ := setup(t)

	_, err := s.List(context.Background(), Query{Filters: map[string]any{"name": map[string]any{"in": "x"}}})

	assert.True(t, errors.HasCode(err, errors.CodeValidationFailed))
}

func TestList_Defaults(t *testing.T) {
	s, _, _ := setup(t)

	page, err := s.List(context.Background(), Query{Page: -1, PerPage: 1000})

	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.Meta.CurrentPage)
	assert.Equal(t, DefaultPerPage, page.Meta.PerPage)
	assert.False(t, page.Meta.HasNext)
}

func TestBulkCreateAndCount(t *testing.T) {
	s, rec, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, s.BulkCreate(ctx, []domain.Tag{{Name: "x"}, {Name: "y"}, {Name: "z"}}))

	n, err := s.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []string{domain.OpBulkCreate}, rec.ops())

	err = s.BulkCreate(ctx, []domain.Tag{{Name: "x"}})
	assert.True(t, errors.HasCode(err, errors.CodeBulkCreateFailed))
}

func TestTransaction(t *testing.T) {
	s, _, conn := setup(t)
	ctx := context.Background()

	err := s.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&domain.Tag{Name: "kept?"}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Tag{Name: "kept?"}).Error
	})
	assert.True(t, errors.HasCode(err, errors.CodeTransactionFailed))

	var n int64
	conn.Model(&domain.Tag{}).Count(&n)
	assert.Zero(t, n, "rolled back")

	err = s.Transaction(ctx, func(tx *gorm.DB) error {
		return errors.Forbidden("no", nil)
	})
	assert.True(t, errors.HasCode(err, errors.CodeForbidden))
}

func TestToInt64(t *testing.T) {
	n, err := toInt64(float64(3))
	assert.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = toInt64(3.5)
	assert.Error(t, err)

	n, err = toInt64("12")
	assert.NoError(t, err)
	assert.Equal(t, int64(12), n)
}
