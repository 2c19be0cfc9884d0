// Package tools holds the AnyList tool registry and its handlers.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/revittco/anylist-mcp/internal/anylist"
	"github.com/revittco/anylist-mcp/internal/schema"
)

// ErrToolNotFound is returned by Call for names not in the registry.
var ErrToolNotFound = errors.New("unknown tool")

// Client is the data access the handlers need. Implemented by
// cache.CachingClient.
type Client interface {
	Lists(ctx context.Context, sessionID string) (anylist.Snapshot[*anylist.List], error)
	Recipes(ctx context.Context, sessionID string) (anylist.Snapshot[*anylist.Recipe], error)
	MealPlanEvents(ctx context.Context) (anylist.Snapshot[*anylist.MealPlanEvent], error)
	MealPlanLabels(ctx context.Context) (anylist.Snapshot[*anylist.Label], error)

	AddItem(ctx context.Context, sessionID, listID string, item *anylist.Item) (*anylist.Item, error)
	SaveItem(ctx context.Context, sessionID string, item *anylist.Item) error
	RemoveItem(ctx context.Context, sessionID, listID, itemID string) error
	UncheckAll(ctx context.Context, sessionID, listID string) error
	SaveRecipe(ctx context.Context, sessionID string, r *anylist.Recipe) error
	DeleteRecipe(ctx context.Context, sessionID, id string) error
	SaveEvent(ctx context.Context, e *anylist.MealPlanEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

// Handler runs one tool call. The returned value is marshalled as the
// tool's JSON result.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool is a registry entry.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	handler     Handler
}

// Registry is the fixed, ordered set of tools. It is not modified after
// NewRegistry returns.
type Registry struct {
	tools  []Tool
	byName map[string]int
}

// Option configures a Registry.
type Option func(*handlers)

// WithClock overrides the clock used to stamp created recipes.
func WithClock(now func() time.Time) Option {
	return func(h *handlers) { h.now = now }
}

// NewRegistry builds the registry around client.
func NewRegistry(client Client, opts ...Option) *Registry {
	h := &handlers{client: client, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}

	tools := definitions(h)
	r := &Registry{tools: tools, byName: make(map[string]int, len(tools))}
	for i, t := range tools {
		r.byName[t.Name] = i
	}
	return r
}

// Tools returns the tool descriptors in registration order.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Call validates args and runs the named tool. Validation failures are
// *schema.ValidationError and happen before the handler runs.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return r.tools[i].handler(ctx, args)
}

// bind adapts a typed handler: args are decoded strictly and validated
// before fn runs.
func bind[T any, PT interface {
	*T
	schema.Input
}](fn func(context.Context, *T) (any, error)) Handler {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		in := PT(new(T))
		if err := schema.Decode(args, in); err != nil {
			return nil, err
		}
		return fn(ctx, (*T)(in))
	}
}

type sessionKey struct{}

// WithSessionID attaches the calling session's cache partition to ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionIDFrom returns the session id attached to ctx, or "".
func SessionIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
