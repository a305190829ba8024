package audit

import (
	"context"
	defError "errors"
	"prompt-manager/internal/db/dbtest"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/worker"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (m *memSink) Name() string { return "mem" }

func (m *memSink) Write(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func (m *memSink) all() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func TestDispatcher_FillsActor(t *testing.T) {
	sink := &memSink{}
	d := NewDispatcher(nil, sink)

	ctx := WithActor(context.Background(), Actor{UserID: 4, IPAddress: "10.0.0.1", UserAgent: "curl"})
	d.Record(ctx, Entry{Operation: domain.OpCreate, ResourceType: domain.ResourcePrompt, ResourceID: ID(9)})

	got := sink.all()
	require.Len(t, got, 1)
	require.NotNil(t, got[0].UserID)
	assert.Equal(t, uint64(4), *got[0].UserID)
	assert.Equal(t, "10.0.0.1", got[0].IPAddress)
	assert.Equal(t, "curl", got[0].UserAgent)
	assert.False(t, got[0].At.IsZero())
}

func TestDispatcher_AnonymousAndExplicitUser(t *testing.T) {
	sink := &memSink{}
	d := NewDispatcher(nil, sink)

	d.Record(context.Background(), Entry{Operation: domain.OpView})
	d.Record(WithUser(WithActor(context.Background(), Actor{IPAddress: "1.2.3.4"}), 8), Entry{Operation: domain.OpLogin})

	got := sink.all()
	require.Len(t, got, 2)
	assert.Nil(t, got[0].UserID)
	require.NotNil(t, got[1].UserID)
	assert.Equal(t, uint64(8), *got[1].UserID)
	assert.Equal(t, "1.2.3.4", got[1].IPAddress)
}

func TestDispatcher_SinkErrorDoesNotStopOthers(t *testing.T) {
	failing := &memSink{err: defError.New("down")}
	ok := &memSink{}
	d := NewDispatcher(nil, failing, ok)

	d.Record(context.Background(), Entry{Operation: domain.OpDelete})

	assert.Len(t, failing.all(), 1)
	assert.Len(t, ok.all(), 1)
}

func TestDispatcher_Pool(t *testing.T) {
	sink := &memSink{}
	pool := worker.NewWorkerPool("audit-test", 2)
	d := NewDispatcher(pool, sink)

	for range 5 {
		d.Record(context.Background(), Entry{Operation: domain.OpUpdate})
	}
	pool.Shutdown()

	assert.Len(t, sink.all(), 5)
}

func TestDBSink(t *testing.T) {
	conn := dbtest.Open(t)
	user := &domain.User{Username: "alice", Email: "a@example.com", Status: domain.UserActive}
	require.NoError(t, conn.Create(user).Error)

	d := NewDispatcher(nil, NewDBSink(conn))
	ctx := WithActor(context.Background(), Actor{UserID: user.ID, IPAddress: "127.0.0.1"})
	d.Record(ctx, Entry{
		Operation:    domain.OpUpdate,
		ResourceType: domain.ResourceUser,
		ResourceID:   ID(user.ID),
		Detail:       map[string]any{"field": "password"},
	})

	var logs []domain.OperationLog
	require.NoError(t, conn.Preload("User").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.OpUpdate, logs[0].Operation)
	assert.Equal(t, "password", logs[0].DetailValue("field", nil))
	assert.Equal(t, "127.0.0.1", logs[0].IPAddress)
	assert.Contains(t, logs[0].Summary(), "alice")
}

func TestStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	d := NewDispatcher(nil, NewStreamSink(client, "audit"))
	d.Record(WithActor(context.Background(), Actor{UserID: 2}), Entry{
		Operation:    domain.OpRollback,
		ResourceType: domain.ResourcePrompt,
		ResourceID:   ID(11),
		Detail:       map[string]any{"to_version": 1},
	})

	msgs, err := client.XRange(context.Background(), "audit", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "ROLLBACK", msgs[0].Values["operation"])
	assert.Equal(t, "2", msgs[0].Values["user_id"])
	assert.Equal(t, "11", msgs[0].Values["resource_id"])
	assert.JSONEq(t, `{"to_version":1}`, msgs[0].Values["detail"].(string))
}
