package audit

import (
	"context"
	"time"
)

// Entry is one audit record as handed to sinks.
type Entry struct {
	UserID       *uint64
	Operation    string
	ResourceType string
	ResourceID   *uint64
	Detail       map[string]any
	IPAddress    string
	UserAgent    string
	At           time.Time
}

// Recorder accepts audit entries. Recording never fails from the caller's
// point of view.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, e Entry)

func (f RecorderFunc) Record(ctx context.Context, e Entry) { f(ctx, e) }

// Nop discards every entry.
var Nop Recorder = RecorderFunc(func(context.Context, Entry) {})

// Sink persists or forwards an entry.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Entry) error
}

// Actor identifies who triggered a request.
type Actor struct {
	UserID    uint64
	IPAddress string
	UserAgent string
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// WithUser keeps the request metadata already on ctx and sets the user.
func WithUser(ctx context.Context, userID uint64) context.Context {
	a, _ := ActorFrom(ctx)
	a.UserID = userID
	return WithActor(ctx, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// FillFrom completes e with the actor on ctx and a timestamp. Fields that
// are already set win.
func (e Entry) FillFrom(ctx context.Context) Entry {
	if actor, ok := ActorFrom(ctx); ok {
		if e.UserID == nil {
			e.UserID = ID(actor.UserID)
		}
		if e.IPAddress == "" {
			e.IPAddress = actor.IPAddress
		}
		if e.UserAgent == "" {
			e.UserAgent = actor.UserAgent
		}
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e
}

// ID returns a pointer to id, or nil for zero.
func ID(id uint64) *uint64 {
	if id == 0 {
		return nil
	}
	return &id
}
