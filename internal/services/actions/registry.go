package actions

import (
	"context"
	"slices"

	"github.com/mcoot/quizgame/internal/model"
)

// Handler executes one type of game action against a freshly built context.
// It mutates ec.Game in place and describes every write as a DataMutation.
type Handler interface {
	Execute(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error)
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error)

// Execute calls f
func (f HandlerFunc) Execute(ctx context.Context, ec *model.ActionExecutionContext) (*model.ActionResult, error) {
	return f(ctx, ec)
}

// Registry maps action types to their handlers
type Registry struct {
	handlers map[model.ActionType]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[model.ActionType]Handler)}
}

// Register adds or replaces the handler of an action type
func (r *Registry) Register(actionType model.ActionType, h Handler) {
	r.handlers[actionType] = h
}

// Get returns the handler of an action type
func (r *Registry) Get(actionType model.ActionType) (Handler, bool) {
	h, ok := r.handlers[actionType]
	return h, ok
}

// Types returns the registered action types in sorted order
func (r *Registry) Types() []model.ActionType {
	types := make([]model.ActionType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
